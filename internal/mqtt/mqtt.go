// Package mqtt provides the MQTT command and state transport with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/bulb-driver/internal/color"
)

// DefaultTopicPrefix is the topic root used when none is configured.
const DefaultTopicPrefix = "home/bulb"

// Topics holds the topics derived from one prefix.
type Topics struct {
	Command string // light commands, subscribed
	State   string // resolved light state, retained
	System  string // lifecycle events
}

// NewTopics derives the command, state and system topics from prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Command: prefix + "/set",
		State:   prefix + "/state",
		System:  prefix + "/system",
	}
}

// Publisher publishes state and lifecycle events.
type Publisher interface {
	// PublishState sends the resolved light state to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishState(event StateEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// CommandHandler receives raw command payloads.
type CommandHandler func(payload []byte)

// Subscriber delivers light commands.
type Subscriber interface {
	// Subscribe registers handler for the command topic. The handler may be
	// called from another goroutine.
	Subscribe(handler CommandHandler) error
}

// ConnectionStatus reports whether the MQTT connection is active and how
// many messages were lost while it was not.
type ConnectionStatus interface {
	IsConnected() bool
	Dropped() int
}

// StateEvent is one resolved light state.
type StateEvent struct {
	Timestamp time.Time
	Values    color.LightColorValues
	Mode      color.Mode
	Outputs   color.Outputs
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "FAULT"
	Reason     string // e.g., "SIGTERM", or the fault message
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// StatePayload is the retained state message, in the Home Assistant JSON
// light schema plus the resolved mode and channel duties.
type StatePayload struct {
	State      string      `json:"state"`
	Brightness int         `json:"brightness"`
	ColorMode  string      `json:"color_mode,omitempty"`
	ColorTemp  int         `json:"color_temp,omitempty"`
	Color      *RGBPayload `json:"color,omitempty"`
	Mode       string      `json:"mode"`
	Duties     DutyPayload `json:"duties"`
	Timestamp  string      `json:"timestamp"`
}

// RGBPayload is an 8-bit colour triplet.
type RGBPayload struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// DutyPayload holds one duty per channel.
type DutyPayload struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
	Warm  float64 `json:"warm"`
	Cold  float64 `json:"cold"`
	Night float64 `json:"night"`
}

// FormatStatePayload creates the JSON payload for a state event.
func FormatStatePayload(event StateEvent) ([]byte, error) {
	v := event.Values
	payload := StatePayload{
		State:      "OFF",
		Brightness: to8bit(v.Brightness),
		ColorMode:  string(v.ColorMode),
		Mode:       string(event.Mode),
		Duties: DutyPayload{
			Red:   event.Outputs.Red,
			Green: event.Outputs.Green,
			Blue:  event.Outputs.Blue,
			Warm:  event.Outputs.Warm,
			Cold:  event.Outputs.Cold,
			Night: event.Outputs.Night,
		},
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
	}
	if v.IsOn {
		payload.State = "ON"
	}
	switch v.ColorMode {
	case color.ColorModeColorTemperature:
		payload.ColorTemp = int(math.Round(v.ColorTemperature))
	case color.ColorModeRGB:
		payload.Color = &RGBPayload{R: to8bit(v.Red), G: to8bit(v.Green), B: to8bit(v.Blue)}
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// FormatWillPayload returns the last-will message the broker publishes
// if the daemon drops off without a clean disconnect. It has no timestamp
// because it is registered at connect time.
func FormatWillPayload() []byte {
	data, _ := json.Marshal(SystemPayload{
		System: SystemPayloadInner{Event: "LWT", Reason: "unexpected disconnect"},
	})
	return data
}

func to8bit(f float64) int {
	if !(f > 0) {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return int(math.Round(f * 255))
}
