// Package status provides a thread-safe status tracker for the bulb-driver daemon.
// It is read by the HTTP handlers and by the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/bulb-driver/internal/color"
	"github.com/sweeney/bulb-driver/internal/logic"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Broker      string
	TopicPrefix string
	HTTPAddr    string
	HeartbeatMs int64
	PWMPeriodUs int64
	Calibration color.Calibration
}

// Fault is the most recent request no mode could resolve.
type Fault struct {
	At      time.Time
	Message string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Values        color.LightColorValues
	Mode          color.Mode
	Outputs       color.Outputs
	Ready         bool
	Counts        logic.ModeCounts
	LastFault     *Fault
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTDropped   int // messages discarded from the offline outbox
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the last resolved request and the detector counters.
func (t *Tracker) Update(values color.LightColorValues, mode color.Mode, outputs color.Outputs, ready bool, counts logic.ModeCounts) {
	t.mu.Lock()
	t.snap.Values = values
	t.snap.Mode = mode
	t.snap.Outputs = outputs
	t.snap.Ready = ready
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetFault records an unresolved request and the updated counters.
func (t *Tracker) SetFault(at time.Time, message string, counts logic.ModeCounts) {
	t.mu.Lock()
	t.snap.LastFault = &Fault{At: at, Message: message}
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTDropped records how many offline messages the client discarded.
func (t *Tracker) SetMQTTDropped(n int) {
	t.mu.Lock()
	t.snap.MQTTDropped = n
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
