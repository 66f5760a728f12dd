package ui

import "image/color"

type Theme struct {
	AppBackground   color.RGBA
	TopBar          color.RGBA
	Toolbar         color.RGBA
	Canvas          color.RGBA
	Panel           color.RGBA
	PanelActive     color.RGBA
	Border          color.RGBA
	StatusBar       color.RGBA
	Accent          color.RGBA
	Shadow          color.RGBA
	Selection       color.RGBA
	Caret           color.RGBA
	Text            color.RGBA
	MenuHeightDp    int
	ToolbarHeightDp int
	StatusHeightDp  int
	PanelWidthDp    int
	LayerRowDp      int
	SwatchDp        int
	MarginDp        int
}

func DefaultTheme() Theme {
	return Theme{
		AppBackground:   color.RGBA{0x1E, 0x20, 0x26, 0xFF},
		TopBar:          color.RGBA{0x2B, 0x57, 0x9A, 0xFF},
		Toolbar:         color.RGBA{0x2A, 0x2D, 0x35, 0xFF},
		Canvas:          color.RGBA{0x16, 0x18, 0x1D, 0xFF},
		Panel:           color.RGBA{0x26, 0x29, 0x31, 0xFF},
		PanelActive:     color.RGBA{0x3A, 0x4A, 0x66, 0xFF},
		Border:          color.RGBA{0x44, 0x4B, 0x58, 0xFF},
		StatusBar:       color.RGBA{0x23, 0x26, 0x2D, 0xFF},
		Accent:          color.RGBA{0xF2, 0xC1, 0x4E, 0xFF},
		Shadow:          color.RGBA{0x0C, 0x0D, 0x10, 0xFF},
		Selection:       color.RGBA{0x4E, 0xC9, 0xF2, 0xFF},
		Caret:           color.RGBA{0xF2, 0x4E, 0x8B, 0xFF},
		Text:            color.RGBA{0xD8, 0xDE, 0xE9, 0xFF},
		MenuHeightDp:    30,
		ToolbarHeightDp: 36,
		StatusHeightDp:  26,
		PanelWidthDp:    180,
		LayerRowDp:      22,
		SwatchDp:        24,
		MarginDp:        16,
	}
}
