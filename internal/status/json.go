package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Mode          string       `json:"mode"`
	Ready         bool         `json:"ready"`
	Request       RequestJSON  `json:"request"`
	Duties        DutiesJSON   `json:"duties"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"mode_counts"`
	LastFault     *FaultJSON   `json:"last_fault,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// RequestJSON is the last resolved light request.
type RequestJSON struct {
	Brightness       float64 `json:"brightness"`
	ColorMode        string  `json:"color_mode,omitempty"`
	ColorTemperature float64 `json:"color_temp"`
	Red              float64 `json:"red"`
	Green            float64 `json:"green"`
	Blue             float64 `json:"blue"`
}

// DutiesJSON holds one duty per channel.
type DutiesJSON struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
	Warm  float64 `json:"warm"`
	Cold  float64 `json:"cold"`
	Night float64 `json:"night"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Dropped   int    `json:"dropped"`
}

// CountsJSON is the JSON representation of mode counters.
type CountsJSON struct {
	Off        int `json:"off"`
	NightLight int `json:"night_light"`
	WhiteLight int `json:"white_light"`
	RGBLight   int `json:"rgb_light"`
	Faults     int `json:"faults"`
}

// FaultJSON is the JSON representation of the last fault.
type FaultJSON struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker      string          `json:"broker"`
	TopicPrefix string          `json:"topic_prefix"`
	HTTPAddr    string          `json:"http_addr"`
	HeartbeatMs int64           `json:"heartbeat_ms"`
	PWMPeriodUs int64           `json:"pwm_period_us"`
	Calibration CalibrationJSON `json:"calibration"`
}

// CalibrationJSON is the JSON representation of the mode constants.
type CalibrationJSON struct {
	NightLightThreshold float64 `json:"night_light_threshold"`
	NightLightDuty      float64 `json:"night_light_duty"`
	ColdMireds          float64 `json:"cold_mireds"`
	WarmMireds          float64 `json:"warm_mireds"`
	Gamma               float64 `json:"gamma"`
}

// StateString returns "ON", "OFF", or "UNKNOWN" before the first request.
func StateString(snap Snapshot) string {
	if snap.Mode == "" {
		return "UNKNOWN"
	}
	if snap.Values.IsOn {
		return "ON"
	}
	return "OFF"
}

// ModeString returns the resolved mode or "UNKNOWN" before the first request.
func ModeString(snap Snapshot) string {
	if snap.Mode == "" {
		return "UNKNOWN"
	}
	return string(snap.Mode)
}

func buildInner(snap Snapshot) StatusInner {
	v := snap.Values
	o := snap.Outputs
	cal := snap.Config.Calibration

	inner := StatusInner{
		State: StateString(snap),
		Mode:  ModeString(snap),
		Ready: snap.Ready,
		Request: RequestJSON{
			Brightness:       v.Brightness,
			ColorMode:        string(v.ColorMode),
			ColorTemperature: v.ColorTemperature,
			Red:              v.Red,
			Green:            v.Green,
			Blue:             v.Blue,
		},
		Duties:        DutiesJSON{Red: o.Red, Green: o.Green, Blue: o.Blue, Warm: o.Warm, Cold: o.Cold, Night: o.Night},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker, Dropped: snap.MQTTDropped},
		Counts: CountsJSON{
			Off:        snap.Counts.Off,
			NightLight: snap.Counts.NightLight,
			WhiteLight: snap.Counts.WhiteLight,
			RGBLight:   snap.Counts.RGBLight,
			Faults:     snap.Counts.Faults,
		},
		Config: ConfigJSON{
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPAddr:    snap.Config.HTTPAddr,
			HeartbeatMs: snap.Config.HeartbeatMs,
			PWMPeriodUs: snap.Config.PWMPeriodUs,
			Calibration: CalibrationJSON{
				NightLightThreshold: cal.NightLightThreshold,
				NightLightDuty:      cal.NightLightDuty,
				ColdMireds:          cal.ColdMireds,
				WarmMireds:          cal.WarmMireds,
				Gamma:               cal.Gamma,
			},
		},
	}

	if snap.LastFault != nil {
		inner.LastFault = &FaultJSON{
			Timestamp: snap.LastFault.At.UTC().Format(time.RFC3339),
			Message:   snap.LastFault.Message,
		}
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
