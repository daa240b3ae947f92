package color

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTranslator(t *testing.T) *Translator {
	t.Helper()
	cal := DefaultCalibration()
	require.NoError(t, cal.Validate())
	return NewTranslator(cal)
}

func TestNewTranslatorStartsEmpty(t *testing.T) {
	tr := newTestTranslator(t)

	assert.Equal(t, ModeNone, tr.Mode())
	assert.Equal(t, Outputs{}, tr.Outputs())
	assert.Equal(t, DefaultCalibration(), tr.Calibration())
}

func TestOffIgnoresOtherFields(t *testing.T) {
	tests := []struct {
		name string
		v    LightColorValues
	}{
		{"bare", LightColorValues{}},
		{"bright rgb", LightColorValues{Brightness: 1, Red: 1, Green: 1, Blue: 1, ColorMode: ColorModeRGB}},
		{"white", LightColorValues{Brightness: 0.5, ColorTemperature: 300, ColorMode: ColorModeColorTemperature}},
		{"min step", LightColorValues{Brightness: 0.01}},
		{"unknown mode", LightColorValues{Brightness: 0.8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTranslator(t)
			require.NoError(t, tr.SetLightColorValues(tt.v))
			assert.Equal(t, ModeOff, tr.Mode())
			assert.Equal(t, Outputs{}, tr.Outputs())
		})
	}
}

func TestZeroBrightnessIsOff(t *testing.T) {
	tr := newTestTranslator(t)

	require.NoError(t, tr.SetLightColorValues(LightColorValues{IsOn: true, Brightness: 0, ColorMode: ColorModeRGB, Red: 1}))
	assert.Equal(t, ModeOff, tr.Mode())
	assert.Equal(t, Outputs{}, tr.Outputs())
}

func TestNightLightAtMinimumStep(t *testing.T) {
	for _, mode := range []ColorMode{ColorModeUnknown, ColorModeColorTemperature, ColorModeRGB} {
		t.Run(string(mode), func(t *testing.T) {
			tr := newTestTranslator(t)
			err := tr.SetLightColorValues(LightColorValues{
				IsOn:             true,
				Brightness:       0.01,
				ColorTemperature: 370,
				Red:              1,
				ColorMode:        mode,
			})
			require.NoError(t, err)
			assert.Equal(t, ModeNightLight, tr.Mode())
			assert.Equal(t, Outputs{Night: 0.04}, tr.Outputs())
		})
	}
}

func TestWhiteLightMix(t *testing.T) {
	tests := []struct {
		name       string
		brightness float64
		mireds     float64
		wantWarm   float64
		wantCold   float64
	}{
		{"coldest full", 1, 153, 0, 1},
		{"warmest full", 1, 500, 1, 0},
		{"midpoint full", 1, 326.5, 0.5, 0.5},
		{"midpoint half", 0.5, 326.5, 0.25, 0.25},
		{"below cold clamps", 0.8, 100, 0, 0.8},
		{"above warm clamps", 0.8, 600, 0.8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTranslator(t)
			err := tr.SetLightColorValues(LightColorValues{
				IsOn:             true,
				Brightness:       tt.brightness,
				ColorTemperature: tt.mireds,
				Red:              1, // ignored in colour temperature mode
				ColorMode:        ColorModeColorTemperature,
			})
			require.NoError(t, err)
			assert.Equal(t, ModeWhiteLight, tr.Mode())

			out := tr.Outputs()
			assert.InDelta(t, tt.wantWarm, out.Warm, 1e-9)
			assert.InDelta(t, tt.wantCold, out.Cold, 1e-9)
			assert.Zero(t, out.Red)
			assert.Zero(t, out.Green)
			assert.Zero(t, out.Blue)
			assert.Zero(t, out.Night)
		})
	}
}

func TestRGBLightPureRed(t *testing.T) {
	tr := newTestTranslator(t)

	err := tr.SetLightColorValues(LightColorValues{IsOn: true, Brightness: 1, Red: 1, ColorMode: ColorModeRGB})
	require.NoError(t, err)

	assert.Equal(t, ModeRGBLight, tr.Mode())
	assert.Equal(t, Outputs{Red: 1}, tr.Outputs())
}

func TestRGBLightScalesByBrightness(t *testing.T) {
	tr := newTestTranslator(t)

	err := tr.SetLightColorValues(LightColorValues{
		IsOn:             true,
		Brightness:       0.5,
		Red:              0.2,
		Green:            0.6,
		Blue:             1,
		ColorTemperature: 400, // ignored in RGB mode
		ColorMode:        ColorModeRGB,
	})
	require.NoError(t, err)

	out := tr.Outputs()
	assert.InDelta(t, 0.1, out.Red, 1e-9)
	assert.InDelta(t, 0.3, out.Green, 1e-9)
	assert.InDelta(t, 0.5, out.Blue, 1e-9)
	assert.Zero(t, out.Warm)
	assert.Zero(t, out.Cold)
	assert.Zero(t, out.Night)
}

func TestRGBLightGamma(t *testing.T) {
	cal := DefaultCalibration()
	cal.Gamma = 2
	tr := NewTranslator(cal)

	err := tr.SetLightColorValues(LightColorValues{IsOn: true, Brightness: 0.5, Red: 1, Green: 0.5, ColorMode: ColorModeRGB})
	require.NoError(t, err)

	out := tr.Outputs()
	assert.InDelta(t, 0.25, out.Red, 1e-9)
	assert.InDelta(t, 0.0625, out.Green, 1e-9)
	assert.Zero(t, out.Blue)
}

func TestJustAboveThresholdLeavesNightLight(t *testing.T) {
	tr := newTestTranslator(t)

	err := tr.SetLightColorValues(LightColorValues{IsOn: true, Brightness: 0.011, Green: 1, ColorMode: ColorModeRGB})
	require.NoError(t, err)
	assert.Equal(t, ModeRGBLight, tr.Mode())
	assert.Zero(t, tr.Outputs().Night)
}

func TestIdempotent(t *testing.T) {
	tr := newTestTranslator(t)
	v := LightColorValues{IsOn: true, Brightness: 0.73, ColorTemperature: 222, ColorMode: ColorModeColorTemperature}

	require.NoError(t, tr.SetLightColorValues(v))
	first := tr.Outputs()
	require.NoError(t, tr.SetLightColorValues(v))
	second := tr.Outputs()

	assert.Equal(t, first, second)
}

func TestNoResidualState(t *testing.T) {
	b := LightColorValues{IsOn: true, Brightness: 0.4, ColorTemperature: 300, ColorMode: ColorModeColorTemperature}

	fresh := newTestTranslator(t)
	require.NoError(t, fresh.SetLightColorValues(b))

	priors := []LightColorValues{
		{IsOn: true, Brightness: 1, Red: 1, Green: 1, Blue: 1, ColorMode: ColorModeRGB},
		{IsOn: true, Brightness: 0.01},
		{},
	}
	for _, a := range priors {
		tr := newTestTranslator(t)
		require.NoError(t, tr.SetLightColorValues(a))
		require.NoError(t, tr.SetLightColorValues(b))
		assert.Equal(t, fresh.Outputs(), tr.Outputs())
		assert.Equal(t, fresh.Mode(), tr.Mode())
		assert.Equal(t, b, tr.Values())
	}
}

func TestUnresolvedModeIsFault(t *testing.T) {
	tests := []struct {
		name string
		v    LightColorValues
	}{
		{"unknown color mode", LightColorValues{IsOn: true, Brightness: 0.5}},
		{"nan brightness", LightColorValues{IsOn: true, Brightness: math.NaN(), ColorMode: ColorModeRGB}},
		{"bogus color mode", LightColorValues{IsOn: true, Brightness: 0.5, ColorMode: "hs"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTranslator(t)
			prev := LightColorValues{IsOn: true, Brightness: 1, Blue: 1, ColorMode: ColorModeRGB}
			require.NoError(t, tr.SetLightColorValues(prev))

			err := tr.SetLightColorValues(tt.v)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrModeUnresolved))

			// previous resolution is left intact
			assert.Equal(t, ModeRGBLight, tr.Mode())
			assert.Equal(t, Outputs{Blue: 1}, tr.Outputs())
			assert.Equal(t, prev, tr.Values())
		})
	}
}

func TestOutputsCopyToOverwrites(t *testing.T) {
	src := Outputs{Warm: 0.3, Cold: 0.7}
	dst := Outputs{Red: 1, Green: 1, Blue: 1, Night: 1}

	src.CopyTo(&dst)

	assert.Equal(t, src, dst)
}

func TestOutputsDuty(t *testing.T) {
	o := Outputs{Red: 0.1, Green: 0.2, Blue: 0.3, Warm: 0.4, Cold: 0.5, Night: 0.6}
	want := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}

	require.Len(t, Channels, len(want))
	for i, ch := range Channels {
		assert.Equal(t, want[i], o.Duty(ch), "channel %s", ch)
	}
	assert.Zero(t, o.Duty("ultraviolet"))
}

func TestCalibrationValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Calibration)
	}{
		{"zero threshold", func(c *Calibration) { c.NightLightThreshold = 0 }},
		{"threshold one", func(c *Calibration) { c.NightLightThreshold = 1 }},
		{"zero night duty", func(c *Calibration) { c.NightLightDuty = 0 }},
		{"night duty above one", func(c *Calibration) { c.NightLightDuty = 1.5 }},
		{"zero cold", func(c *Calibration) { c.ColdMireds = 0 }},
		{"warm not above cold", func(c *Calibration) { c.WarmMireds = c.ColdMireds }},
		{"zero gamma", func(c *Calibration) { c.Gamma = 0 }},
	}

	require.NoError(t, DefaultCalibration().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := DefaultCalibration()
			tt.modify(&cal)
			assert.Error(t, cal.Validate())
		})
	}
}
