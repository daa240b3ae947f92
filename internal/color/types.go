// Package color translates a requested light colour into per-channel duty
// cycles for the bulb's drive channels.
// This package has NO external dependencies (no GPIO, MQTT, OS or clock).
package color

import "fmt"

// ColorMode tells which fields of a request carry the colour.
type ColorMode string

const (
	ColorModeUnknown          ColorMode = ""
	ColorModeColorTemperature ColorMode = "color_temp"
	ColorModeRGB              ColorMode = "rgb"
)

// LightColorValues is one requested light state.
type LightColorValues struct {
	IsOn             bool
	Brightness       float64 // 0..1
	ColorTemperature float64 // mireds
	Red              float64 // 0..1
	Green            float64
	Blue             float64
	ColorMode        ColorMode
}

// Channel names one physical drive channel.
type Channel string

const (
	ChannelRed   Channel = "red"
	ChannelGreen Channel = "green"
	ChannelBlue  Channel = "blue"
	ChannelWarm  Channel = "warm"
	ChannelCold  Channel = "cold"
	ChannelNight Channel = "night"
)

// Channels lists every channel in output order.
var Channels = []Channel{ChannelRed, ChannelGreen, ChannelBlue, ChannelWarm, ChannelCold, ChannelNight}

// Outputs holds one duty value (0..1) per channel.
type Outputs struct {
	Red   float64
	Green float64
	Blue  float64
	Warm  float64
	Cold  float64
	Night float64
}

// CopyTo overwrites every duty in dst with the values in o.
func (o *Outputs) CopyTo(dst *Outputs) {
	*dst = *o
}

// Duty returns the duty for ch, or 0 for an unknown channel.
func (o Outputs) Duty(ch Channel) float64 {
	switch ch {
	case ChannelRed:
		return o.Red
	case ChannelGreen:
		return o.Green
	case ChannelBlue:
		return o.Blue
	case ChannelWarm:
		return o.Warm
	case ChannelCold:
		return o.Cold
	case ChannelNight:
		return o.Night
	}
	return 0
}

// Calibration holds the device-specific constants used by the modes.
type Calibration struct {
	// NightLightThreshold is the lowest brightness step. Requests at or
	// below it switch to the night light.
	NightLightThreshold float64 `yaml:"night_light_threshold"`
	// NightLightDuty is the fixed duty of the night channel.
	NightLightDuty float64 `yaml:"night_light_duty"`
	// ColdMireds and WarmMireds are the colour temperatures at which the
	// white mix is fully cold or fully warm.
	ColdMireds float64 `yaml:"cold_mireds"`
	WarmMireds float64 `yaml:"warm_mireds"`
	// Gamma is applied to RGB duties. 1 is linear.
	Gamma float64 `yaml:"gamma"`
}

// DefaultCalibration returns the calibration measured on the reference board.
func DefaultCalibration() Calibration {
	return Calibration{
		NightLightThreshold: 0.01,
		NightLightDuty:      0.04,
		ColdMireds:          153,
		WarmMireds:          500,
		Gamma:               1.0,
	}
}

// Validate reports the first constant that cannot drive the modes.
func (c Calibration) Validate() error {
	if c.NightLightThreshold <= 0 || c.NightLightThreshold >= 1 {
		return fmt.Errorf("night_light_threshold must be in (0,1), got %v", c.NightLightThreshold)
	}
	if c.NightLightDuty <= 0 || c.NightLightDuty > 1 {
		return fmt.Errorf("night_light_duty must be in (0,1], got %v", c.NightLightDuty)
	}
	if c.ColdMireds <= 0 {
		return fmt.Errorf("cold_mireds must be positive, got %v", c.ColdMireds)
	}
	if c.WarmMireds <= c.ColdMireds {
		return fmt.Errorf("warm_mireds (%v) must be greater than cold_mireds (%v)", c.WarmMireds, c.ColdMireds)
	}
	if c.Gamma <= 0 {
		return fmt.Errorf("gamma must be positive, got %v", c.Gamma)
	}
	return nil
}
