// Package ui draws the HUD and control panel and reads raylib input for
// the core.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// Theme holds UI styling constants.
type Theme struct {
	PanelBg        rl.Color
	PanelBorder    rl.Color
	SectionHeader  rl.Color
	LabelColor     rl.Color
	ValueColor     rl.Color
	BarBg          rl.Color
	BarFill        rl.Color
	BarFillDone    rl.Color
	Banner         rl.Color
	Padding        int32
	LineHeight     int32
	LabelWidth     int32
	BarHeight      int32
	FontSize       int32
	HeaderFontSize int32
	BannerFontSize int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:        rl.Color{R: 20, G: 25, B: 30, A: 200},
		PanelBorder:    rl.Color{R: 60, G: 70, B: 80, A: 255},
		SectionHeader:  rl.Yellow,
		LabelColor:     rl.LightGray,
		ValueColor:     rl.RayWhite,
		BarBg:          rl.Color{R: 40, G: 40, B: 40, A: 255},
		BarFill:        rl.Color{R: 230, G: 90, B: 150, A: 255},
		BarFillDone:    rl.Color{R: 100, G: 200, B: 100, A: 255},
		Banner:         rl.Color{R: 255, G: 220, B: 80, A: 255},
		Padding:        10,
		LineHeight:     20,
		LabelWidth:     70,
		BarHeight:      14,
		FontSize:       16,
		HeaderFontSize: 18,
		BannerFontSize: 40,
	}
}
