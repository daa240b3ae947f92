package logic

import (
	"time"

	"github.com/sweeney/bulb-driver/internal/color"
)

// Detector tracks the resolved mode and detects transitions.
type Detector struct {
	current       color.Mode
	baselined     bool
	startTime     time.Time
	counts        ModeCounts
	lastHeartbeat time.Time
}

// NewDetector creates a new mode detector.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(startTime time.Time) *Detector {
	return &Detector{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes a resolved mode and returns the transition it causes, if any.
// The first mode seen is the baseline and produces no event.
func (d *Detector) Process(input Input) *Event {
	if !d.baselined {
		d.current = input.Mode
		d.baselined = true
		return nil
	}

	if input.Mode == d.current {
		return nil
	}

	event := &Event{
		Timestamp: input.Time,
		From:      d.current,
		To:        input.Mode,
	}
	d.current = input.Mode

	switch input.Mode {
	case color.ModeOff:
		d.counts.Off++
	case color.ModeNightLight:
		d.counts.NightLight++
	case color.ModeWhiteLight:
		d.counts.WhiteLight++
	case color.ModeRGBLight:
		d.counts.RGBLight++
	}

	return event
}

// RecordFault counts a request that no mode could resolve.
func (d *Detector) RecordFault() {
	d.counts.Faults++
}

// IsBaselined returns whether the detector has seen a first mode.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentMode returns the last resolved mode.
func (d *Detector) CurrentMode() color.Mode {
	return d.current
}

// CountsSnapshot returns a copy of the counters.
func (d *Detector) CountsSnapshot() ModeCounts {
	return d.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.counts,
	}
}
