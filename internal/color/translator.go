package color

import (
	"errors"
	"fmt"
)

// ErrModeUnresolved means no mode claimed a request. The modes cover every
// in-domain input, so this is a programming or contract fault, never a
// transient condition.
var ErrModeUnresolved = errors.New("color: no light mode handles the requested light state")

// Translator resolves requests to a mode and holds the resulting duties.
// Not safe for concurrent use; callers serialise calls.
type Translator struct {
	cal        Calibration
	strategies [4]strategy
	outputs    Outputs
	mode       Mode
	values     LightColorValues
}

// NewTranslator creates a Translator using the given calibration.
func NewTranslator(cal Calibration) *Translator {
	return &Translator{
		cal: cal,
		strategies: [4]strategy{
			{mode: ModeOff, apply: applyOff},
			{mode: ModeNightLight, apply: applyNightLight},
			{mode: ModeWhiteLight, apply: applyWhiteLight},
			{mode: ModeRGBLight, apply: applyRGBLight},
		},
	}
}

// SetLightColorValues resolves v and replaces the held outputs with the
// duties of the first mode that claims it. When no mode claims v the
// returned error wraps ErrModeUnresolved and the held state is unchanged.
func (t *Translator) SetLightColorValues(v LightColorValues) error {
	for i := range t.strategies {
		s := &t.strategies[i]
		if !s.try(t.cal, v) {
			continue
		}
		s.out.CopyTo(&t.outputs)
		t.mode = s.mode
		t.values = v
		return nil
	}
	return fmt.Errorf("%w (on=%v brightness=%v color_mode=%q)", ErrModeUnresolved, v.IsOn, v.Brightness, v.ColorMode)
}

// Outputs returns the duties of the last resolved request.
func (t *Translator) Outputs() Outputs {
	return t.outputs
}

// Mode returns the mode of the last resolved request, or ModeNone.
func (t *Translator) Mode() Mode {
	return t.mode
}

// Values returns the last resolved request.
func (t *Translator) Values() LightColorValues {
	return t.values
}

// Calibration returns the constants the translator was built with.
func (t *Translator) Calibration() Calibration {
	return t.cal
}
