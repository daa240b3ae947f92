// Package logic tracks resolved light modes over time.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"time"

	"github.com/sweeney/bulb-driver/internal/color"
)

// Input is one resolved light mode.
type Input struct {
	Mode color.Mode
	Time time.Time
}

// Event is a mode transition to be published.
type Event struct {
	Timestamp time.Time
	From      color.Mode
	To        color.Mode
}

// ModeCounts tracks transitions into each mode and resolution faults since startup.
type ModeCounts struct {
	Off        int
	NightLight int
	WhiteLight int
	RGBLight   int
	Faults     int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    ModeCounts
}
