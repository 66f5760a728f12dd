package ui

import (
	"zxpaint/internal/editor"
	"zxpaint/internal/render"
	"zxpaint/pkg/scr"
)

type Layout struct {
	Scale     float32
	MenuH     int
	ToolbarH  int
	StatusH   int
	CanvasY   int
	CanvasH   int
	CanvasW   int
	PanelX    int
	PanelW    int
	LayerRowH int
	SwatchX   int
	SwatchY   int
	SwatchW   int
	ImageX    int
	ImageY    int
	ImageW    int
	ImageH    int
	Zoom      int
	StatusBar int
}

// ComputeLayout places the menu, palette toolbar, layer panel and the
// zoomed image for a window of w x h. frameW and frameH are the size of
// the rendered frame; zoomPercent is rounded down to whole pixels.
func ComputeLayout(w, h int, theme Theme, scale float32, frameW, frameH, zoomPercent int) Layout {
	if scale <= 0 {
		scale = 1
	}
	dp := func(v int) int { return int(float32(v) * scale) }

	menuH := dp(theme.MenuHeightDp)
	toolbarH := dp(theme.ToolbarHeightDp)
	statusH := dp(theme.StatusHeightDp)
	panelW := dp(theme.PanelWidthDp)
	margin := dp(theme.MarginDp)

	canvasY := menuH + toolbarH
	canvasH := h - canvasY - statusH
	if canvasH < 0 {
		canvasH = 0
	}
	canvasW := w - panelW
	if canvasW < 0 {
		canvasW = 0
	}

	zoom := zoomPercent / 100
	if zoom < 1 {
		zoom = 1
	}
	// Shrink until the frame fits, never below 1:1.
	for zoom > 1 && (frameW*zoom > canvasW-2*margin || frameH*zoom > canvasH-2*margin) {
		zoom--
	}
	imgW, imgH := frameW*zoom, frameH*zoom
	imgX := (canvasW - imgW) / 2
	imgY := canvasY + (canvasH-imgH)/2
	if imgX < 0 {
		imgX = 0
	}
	if imgY < canvasY {
		imgY = canvasY
	}

	swatch := dp(theme.SwatchDp)
	return Layout{
		Scale:     scale,
		MenuH:     menuH,
		ToolbarH:  toolbarH,
		StatusH:   statusH,
		CanvasY:   canvasY,
		CanvasH:   canvasH,
		CanvasW:   canvasW,
		PanelX:    canvasW,
		PanelW:    panelW,
		LayerRowH: dp(theme.LayerRowDp),
		SwatchX:   margin,
		SwatchY:   menuH + (toolbarH-swatch)/2,
		SwatchW:   swatch,
		ImageX:    imgX,
		ImageY:    imgY,
		ImageW:    imgW,
		ImageH:    imgH,
		Zoom:      zoom,
		StatusBar: h - statusH,
	}
}

// FramePoint converts a window position into rendered frame coordinates.
func (l Layout) FramePoint(mx, my int) (fx, fy int, ok bool) {
	if l.Zoom <= 0 || mx < l.ImageX || my < l.ImageY || mx >= l.ImageX+l.ImageW || my >= l.ImageY+l.ImageH {
		return 0, 0, false
	}
	return (mx - l.ImageX) / l.Zoom, (my - l.ImageY) / l.Zoom, true
}

// SwatchAt reports which of the eight color swatches, or the transparent
// swatch (editor.ColorTransparent), is under the pointer.
func (l Layout) SwatchAt(mx, my int) (int, bool) {
	if my < l.SwatchY || my >= l.SwatchY+l.SwatchW || mx < l.SwatchX {
		return 0, false
	}
	i := (mx - l.SwatchX) / (l.SwatchW + 2)
	switch {
	case i < 8:
		return i, true
	case i == 8:
		return editor.ColorTransparent, true
	}
	return 0, false
}

// LayerRowAt maps a pointer position in the layer panel to a layer index.
// Rows are drawn top layer first.
func (l Layout) LayerRowAt(mx, my, count int) (int, bool) {
	if mx < l.PanelX || mx >= l.PanelX+l.PanelW || l.LayerRowH <= 0 {
		return 0, false
	}
	row := (my - l.CanvasY) / l.LayerRowH
	if my < l.CanvasY || row >= count {
		return 0, false
	}
	return count - 1 - row, true
}

// LayerRowY is the top edge of the panel row showing layer i.
func (l Layout) LayerRowY(i, count int) int {
	return l.CanvasY + (count-1-i)*l.LayerRowH
}

// ScreenOffset is where the 256x192 screen starts inside the rendered
// frame.
func ScreenOffset(d scr.Descriptor, withBorder bool) (int, int) {
	if withBorder && d.Border != nil {
		return d.Border.Left, d.Border.Top
	}
	return 0, 0
}

// DrawShell paints the chrome, the zoomed frame, the selection and caret
// overlays and the layer panel rows into fb. Labels are left to the caller.
func DrawShell(fb *render.FrameBuffer, state *editor.State, frame *render.FrameBuffer, theme Theme, scale float32, withBorder bool) Layout {
	layout := ComputeLayout(fb.W, fb.H, theme, scale, frame.W, frame.H, state.ZoomPercent)

	fb.Clear(theme.AppBackground)

	fb.FillRect(0, 0, fb.W, layout.MenuH, theme.TopBar)
	fb.FillRect(0, layout.MenuH, fb.W, layout.ToolbarH, theme.Toolbar)
	fb.StrokeRect(0, 0, fb.W, layout.MenuH+layout.ToolbarH, 1, theme.Border)
	drawSwatches(fb, layout, state, theme)

	fb.FillRect(0, layout.CanvasY, layout.CanvasW, layout.CanvasH, theme.Canvas)
	fb.FillRect(layout.ImageX+3, layout.ImageY+3, layout.ImageW, layout.ImageH, theme.Shadow)
	blit(fb, frame, layout)
	fb.StrokeRect(layout.ImageX-1, layout.ImageY-1, layout.ImageW+2, layout.ImageH+2, 1, theme.Border)

	ox, oy := ScreenOffset(state.Image.Format(), withBorder)
	z := layout.Zoom
	if state.HasSelection() {
		r := state.Selection()
		fb.StrokeRect(layout.ImageX+(ox+r.X0)*z, layout.ImageY+(oy+r.Y0)*z, (r.X1-r.X0)*z, (r.Y1-r.Y0)*z, 1, theme.Selection)
	}
	if state.Tool == editor.ToolText {
		cx := layout.ImageX + (ox+state.Caret.Col*8)*z
		cy := layout.ImageY + (oy+state.Caret.Row*8)*z
		fb.StrokeRect(cx, cy, 8*z, 8*z, 1, theme.Caret)
	}

	fb.FillRect(layout.PanelX, layout.CanvasY, layout.PanelW, layout.CanvasH, theme.Panel)
	if st := state.Image.Layers(); st != nil {
		for i := 0; i < st.Len(); i++ {
			y := layout.LayerRowY(i, st.Len())
			if i == st.Active() {
				fb.FillRect(layout.PanelX, y, layout.PanelW, layout.LayerRowH, theme.PanelActive)
			}
			mark := theme.Border
			if st.Layer(i).Visible {
				mark = theme.Accent
			}
			pad := layout.LayerRowH / 4
			fb.FillRect(layout.PanelX+pad, y+pad, layout.LayerRowH-2*pad, layout.LayerRowH-2*pad, mark)
			fb.FillRect(layout.PanelX, y+layout.LayerRowH-1, layout.PanelW, 1, theme.Border)
		}
	}
	fb.FillRect(layout.PanelX, layout.CanvasY, 1, layout.CanvasH, theme.Border)

	fb.FillRect(0, layout.StatusBar, fb.W, layout.StatusH, theme.StatusBar)
	fb.StrokeRect(0, layout.StatusBar, fb.W, layout.StatusH, 1, theme.Border)
	return layout
}

func drawSwatches(fb *render.FrameBuffer, l Layout, state *editor.State, theme Theme) {
	bright := state.Ctx.Bright
	for i := 0; i <= 8; i++ {
		x := l.SwatchX + i*(l.SwatchW+2)
		if i == 8 {
			// transparent: checkerboard
			half := l.SwatchW / 2
			fb.FillRect(x, l.SwatchY, l.SwatchW, l.SwatchW, theme.Text)
			fb.FillRect(x, l.SwatchY, half, half, theme.Border)
			fb.FillRect(x+half, l.SwatchY+half, l.SwatchW-half, l.SwatchW-half, theme.Border)
		} else {
			fb.FillRect(x, l.SwatchY, l.SwatchW, l.SwatchW, scr.SpectrumColor(i, bright))
		}
		c := i
		if i == 8 {
			c = editor.ColorTransparent
		}
		if c == state.Ctx.Ink {
			fb.StrokeRect(x-2, l.SwatchY-2, l.SwatchW+4, l.SwatchW+4, 2, theme.Accent)
		}
		if c == state.Ctx.Paper {
			fb.StrokeRect(x, l.SwatchY+l.SwatchW+1, l.SwatchW, 2, 1, theme.Selection)
		}
	}
}

func blit(dst, src *render.FrameBuffer, l Layout) {
	z := l.Zoom
	for y := 0; y < src.H; y++ {
		for x := 0; x < src.W; x++ {
			dst.FillRect(l.ImageX+x*z, l.ImageY+y*z, z, z, src.At(x, y))
		}
	}
}
