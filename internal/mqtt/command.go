package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/sweeney/bulb-driver/internal/color"
)

// Command is a light command in the Home Assistant JSON light schema.
// Absent fields leave the previous request unchanged.
type Command struct {
	State      *string     `json:"state,omitempty"`
	Brightness *int        `json:"brightness,omitempty"` // 0..255
	ColorTemp  *int        `json:"color_temp,omitempty"` // mireds
	Color      *RGBPayload `json:"color,omitempty"`
	ColorMode  *string     `json:"color_mode,omitempty"`
}

// DefaultColorTemp is the white point of a fresh request, in mireds.
const DefaultColorTemp = 370

// DefaultRequest is the request a command is merged onto before any
// command has been applied: off, full brightness, warm white.
func DefaultRequest() color.LightColorValues {
	return color.LightColorValues{
		Brightness:       1,
		ColorTemperature: DefaultColorTemp,
		ColorMode:        color.ColorModeColorTemperature,
	}
}

// ParseCommand decodes and checks a command payload.
func ParseCommand(payload []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}

	if cmd.State != nil && *cmd.State != "ON" && *cmd.State != "OFF" {
		return Command{}, fmt.Errorf("invalid state %q", *cmd.State)
	}
	if cmd.Brightness != nil && !in8bit(*cmd.Brightness) {
		return Command{}, fmt.Errorf("brightness %d out of range 0..255", *cmd.Brightness)
	}
	if cmd.ColorTemp != nil && *cmd.ColorTemp <= 0 {
		return Command{}, fmt.Errorf("color_temp must be positive, got %d", *cmd.ColorTemp)
	}
	if c := cmd.Color; c != nil && (!in8bit(c.R) || !in8bit(c.G) || !in8bit(c.B)) {
		return Command{}, fmt.Errorf("color (%d,%d,%d) out of range 0..255", c.R, c.G, c.B)
	}
	if cmd.ColorMode != nil {
		switch color.ColorMode(*cmd.ColorMode) {
		case color.ColorModeColorTemperature, color.ColorModeRGB:
		default:
			return Command{}, fmt.Errorf("unsupported color_mode %q", *cmd.ColorMode)
		}
	}
	return cmd, nil
}

// Apply merges the command onto prev and returns the new request.
// A color switches to RGB mode and a color_temp to colour temperature mode;
// an explicit color_mode wins over both. Brightness 0 turns the light off
// and keeps the previous level, so a later ON restores it.
func (c Command) Apply(prev color.LightColorValues) color.LightColorValues {
	v := prev
	if c.State != nil {
		v.IsOn = *c.State == "ON"
	}
	if c.Brightness != nil {
		if *c.Brightness == 0 {
			v.IsOn = false
		} else {
			v.Brightness = float64(*c.Brightness) / 255
		}
	}
	if v.IsOn && v.Brightness == 0 {
		v.Brightness = 1
	}
	if c.ColorTemp != nil {
		v.ColorTemperature = float64(*c.ColorTemp)
		v.ColorMode = color.ColorModeColorTemperature
	}
	if c.Color != nil {
		v.Red = float64(c.Color.R) / 255
		v.Green = float64(c.Color.G) / 255
		v.Blue = float64(c.Color.B) / 255
		v.ColorMode = color.ColorModeRGB
	}
	if c.ColorMode != nil {
		v.ColorMode = color.ColorMode(*c.ColorMode)
	}
	return v
}

func in8bit(n int) bool {
	return n >= 0 && n <= 255
}
