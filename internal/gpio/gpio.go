// Package gpio drives channel duty cycles onto GPIO output lines.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/bulb-driver/internal/color"

// Writer drives duty cycles onto the bulb's channels.
type Writer interface {
	// Write replaces the duty of every channel.
	Write(out color.Outputs) error

	// Close turns every channel off and releases GPIO resources.
	Close() error
}

// clampDuty keeps a duty within [0,1]; NaN is treated as off.
func clampDuty(d float64) float64 {
	if !(d > 0) {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}
