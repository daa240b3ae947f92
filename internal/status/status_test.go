package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/bulb-driver/internal/color"
	"github.com/sweeney/bulb-driver/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		Broker:      "tcp://localhost:1883",
		TopicPrefix: "home/bulb",
		HTTPAddr:    ":80",
		HeartbeatMs: 900000,
		PWMPeriodUs: 10000,
		Calibration: color.DefaultCalibration(),
	}
}

func TestNewTracker(t *testing.T) {
	tr := NewTracker(start, testConfig())

	snap := tr.Snapshot()
	assert.True(t, snap.StartTime.Equal(start))
	assert.Equal(t, testConfig(), snap.Config)
	assert.False(t, snap.Ready)
	assert.False(t, snap.MQTTConnected)
	assert.Nil(t, snap.LastFault)
	assert.Equal(t, color.ModeNone, snap.Mode)
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, Config{})
	v := color.LightColorValues{IsOn: true, Brightness: 1, Red: 1, ColorMode: color.ColorModeRGB}

	tr.Update(v, color.ModeRGBLight, color.Outputs{Red: 1}, true, logic.ModeCounts{RGBLight: 3})

	snap := tr.Snapshot()
	assert.Equal(t, v, snap.Values)
	assert.Equal(t, color.ModeRGBLight, snap.Mode)
	assert.Equal(t, color.Outputs{Red: 1}, snap.Outputs)
	assert.True(t, snap.Ready)
	assert.Equal(t, 3, snap.Counts.RGBLight)
}

func TestSetFault(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetFault(start.Add(time.Minute), "no mode", logic.ModeCounts{Faults: 1})

	snap := tr.Snapshot()
	require.NotNil(t, snap.LastFault)
	assert.Equal(t, "no mode", snap.LastFault.Message)
	assert.True(t, snap.LastFault.At.Equal(start.Add(time.Minute)))
	assert.Equal(t, 1, snap.Counts.Faults)
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetMQTTConnected(true)
	assert.True(t, tr.Snapshot().MQTTConnected)

	tr.SetMQTTConnected(false)
	assert.False(t, tr.Snapshot().MQTTConnected)
}

func TestSetMQTTDroppedInJSON(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetMQTTDropped(7)

	assert.Equal(t, 7, tr.Snapshot().MQTTDropped)
	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(tr.Snapshot()), &parsed))
	assert.Equal(t, 7, parsed.Status.MQTT.Dropped)
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(start, Config{})
	assert.Nil(t, tr.Snapshot().Network)

	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})

	snap := tr.Snapshot()
	require.NotNil(t, snap.Network)
	assert.Equal(t, "192.168.1.42", snap.Network.IP)
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(15 * time.Minute)}
	assert.Equal(t, 15*time.Minute, snap.Uptime())
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(start, Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	assert.False(t, snap.Now.Before(before) || snap.Now.After(after), "Now (%v) not between %v and %v", snap.Now, before, after)
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.Update(color.LightColorValues{IsOn: true}, color.ModeNightLight, color.Outputs{Night: 0.04}, true, logic.ModeCounts{})

	snap1 := tr.Snapshot()
	tr.Update(color.LightColorValues{}, color.ModeOff, color.Outputs{}, true, logic.ModeCounts{Off: 1})

	assert.Equal(t, color.ModeNightLight, snap1.Mode)
	assert.Equal(t, 0.04, snap1.Outputs.Night)
}

func TestStateAndModeStrings(t *testing.T) {
	assert.Equal(t, "UNKNOWN", StateString(Snapshot{}))
	assert.Equal(t, "UNKNOWN", ModeString(Snapshot{}))
	assert.Equal(t, "OFF", StateString(Snapshot{Mode: color.ModeOff}))
	assert.Equal(t, "ON", StateString(Snapshot{Mode: color.ModeWhiteLight, Values: color.LightColorValues{IsOn: true}}))
	assert.Equal(t, "WHITE_LIGHT", ModeString(Snapshot{Mode: color.ModeWhiteLight}))
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		Values:        color.LightColorValues{IsOn: true, Brightness: 0.5, ColorTemperature: 326.5, ColorMode: color.ColorModeColorTemperature},
		Mode:          color.ModeWhiteLight,
		Outputs:       color.Outputs{Warm: 0.25, Cold: 0.25},
		Ready:         true,
		Counts:        logic.ModeCounts{Off: 2, WhiteLight: 5, Faults: 1},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        testConfig(),
	}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &parsed))

	s := parsed.Status
	assert.Equal(t, "ON", s.State)
	assert.Equal(t, "WHITE_LIGHT", s.Mode)
	assert.True(t, s.Ready)
	assert.Equal(t, 0.5, s.Request.Brightness)
	assert.Equal(t, "color_temp", s.Request.ColorMode)
	assert.Equal(t, DutiesJSON{Warm: 0.25, Cold: 0.25}, s.Duties)
	assert.Equal(t, int64(900), s.UptimeSeconds)
	assert.True(t, s.MQTT.Connected)
	assert.Equal(t, CountsJSON{Off: 2, WhiteLight: 5, Faults: 1}, s.Counts)
	assert.Equal(t, 0.04, s.Config.Calibration.NightLightDuty)
	assert.Equal(t, int64(10000), s.Config.PWMPeriodUs)
	assert.Empty(t, s.Event)
	assert.Empty(t, s.Reason)
	assert.Nil(t, s.LastFault)
}

func TestFormatJSONUnknownState(t *testing.T) {
	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(Snapshot{StartTime: start, Now: start.Add(time.Second)}), &parsed))

	assert.Equal(t, "UNKNOWN", parsed.Status.State)
	assert.Equal(t, "UNKNOWN", parsed.Status.Mode)
}

func TestFormatJSONWithFaultAndNetwork(t *testing.T) {
	snap := Snapshot{
		Mode:      color.ModeOff,
		LastFault: &Fault{At: start.Add(time.Minute), Message: "no mode"},
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
		StartTime: start,
		Now:       start.Add(2 * time.Minute),
	}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &parsed))

	require.NotNil(t, parsed.Status.LastFault)
	assert.Equal(t, "2026-01-01T00:01:00Z", parsed.Status.LastFault.Timestamp)
	assert.Equal(t, "no mode", parsed.Status.LastFault.Message)
	require.NotNil(t, parsed.Status.Network)
	assert.Equal(t, "MyNet", parsed.Status.Network.SSID)
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		Mode:      color.ModeOff,
		Ready:     true,
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    testConfig(),
	}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"), &parsed))

	assert.Equal(t, "SHUTDOWN", parsed.Status.Event)
	assert.Equal(t, "SIGTERM", parsed.Status.Reason)
	assert.Equal(t, "OFF", parsed.Status.State)
	assert.Equal(t, int64(1800), parsed.Status.UptimeSeconds)
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := FormatStatusEvent(Snapshot{StartTime: start, Now: start}, "STARTUP", "")

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	inner := raw["status"].(map[string]interface{})

	_, exists := inner["reason"]
	assert.False(t, exists, "reason should be omitted when empty")
	assert.Equal(t, "STARTUP", inner["event"])
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(color.LightColorValues{IsOn: true}, color.ModeRGBLight, color.Outputs{}, true, logic.ModeCounts{RGBLight: i})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
			tr.SetFault(time.Now(), "x", logic.ModeCounts{Faults: i})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = FormatJSON(tr.Snapshot())
		}
	}()

	wg.Wait()
}
