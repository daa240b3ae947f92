package color

import "math"

// Mode is one of the mutually exclusive physical lighting behaviours.
type Mode string

const (
	ModeNone       Mode = ""
	ModeOff        Mode = "OFF"
	ModeNightLight Mode = "NIGHT_LIGHT"
	ModeWhiteLight Mode = "WHITE_LIGHT"
	ModeRGBLight   Mode = "RGB_LIGHT"
)

// Modes lists the modes in resolution priority order.
var Modes = []Mode{ModeOff, ModeNightLight, ModeWhiteLight, ModeRGBLight}

// applyFunc fills out and returns true when the mode claims v.
// out is only meaningful when it returns true.
type applyFunc func(cal Calibration, v LightColorValues, out *Outputs) bool

// strategy pairs a mode with its compute function and scratch outputs.
type strategy struct {
	mode  Mode
	apply applyFunc
	out   Outputs
}

func (s *strategy) try(cal Calibration, v LightColorValues) bool {
	s.out = Outputs{}
	return s.apply(cal, v, &s.out)
}

func applyOff(_ Calibration, v LightColorValues, out *Outputs) bool {
	if v.IsOn && v.Brightness != 0 {
		return false
	}
	*out = Outputs{}
	return true
}

func applyNightLight(cal Calibration, v LightColorValues, out *Outputs) bool {
	if !v.IsOn || !(v.Brightness <= cal.NightLightThreshold) {
		return false
	}
	*out = Outputs{Night: cal.NightLightDuty}
	return true
}

func applyWhiteLight(cal Calibration, v LightColorValues, out *Outputs) bool {
	if !v.IsOn || !(v.Brightness > cal.NightLightThreshold) || v.ColorMode != ColorModeColorTemperature {
		return false
	}
	warm := warmRatio(cal, v.ColorTemperature)
	*out = Outputs{
		Warm: v.Brightness * warm,
		Cold: v.Brightness * (1 - warm),
	}
	return true
}

func applyRGBLight(cal Calibration, v LightColorValues, out *Outputs) bool {
	if !v.IsOn || !(v.Brightness > cal.NightLightThreshold) || v.ColorMode != ColorModeRGB {
		return false
	}
	*out = Outputs{
		Red:   gammaDuty(v.Red*v.Brightness, cal.Gamma),
		Green: gammaDuty(v.Green*v.Brightness, cal.Gamma),
		Blue:  gammaDuty(v.Blue*v.Brightness, cal.Gamma),
	}
	return true
}

// warmRatio maps mireds onto the warm share of the white mix, 0 at
// ColdMireds and 1 at WarmMireds.
func warmRatio(cal Calibration, mireds float64) float64 {
	t := (mireds - cal.ColdMireds) / (cal.WarmMireds - cal.ColdMireds)
	return math.Max(0, math.Min(1, t))
}

func gammaDuty(d, gamma float64) float64 {
	if gamma == 1 || d <= 0 {
		return d
	}
	return math.Pow(d, gamma)
}
