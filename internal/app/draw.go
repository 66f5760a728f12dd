package app

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"zxpaint/internal/editor"
	"zxpaint/internal/render"
	"zxpaint/internal/ui"
)

type fontKey struct {
	size  int
	bold  bool
	scale int
}

type fontBank struct {
	regular *opentype.Font
	bold    *opentype.Font
	cache   map[fontKey]font.Face
}

func newFontBank() fontBank {
	bank := fontBank{cache: map[fontKey]font.Face{}}
	reg, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return bank
	}
	bol, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return bank
	}
	bank.regular = reg
	bank.bold = bol
	return bank
}

func (a *App) Draw(screen *ebiten.Image) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	if a.frameBuffer == nil || a.frameBuffer.W != w || a.frameBuffer.H != h {
		a.frameBuffer = render.NewFrameBuffer(w, h)
		a.canvas = ebiten.NewImage(w, h)
	}

	img := a.state.Image
	frame, err := render.RenderScreen(img.Format(), img.Committed(), render.Options{FlashOn: a.state.FlashOn, Border: a.showBorder})
	if err != nil {
		a.status = "Render failed: " + err.Error()
		frame = render.NewFrameBuffer(1, 1)
	}
	scale := a.uiScales[a.uiScaleIdx]
	a.layout = ui.DrawShell(a.frameBuffer, a.state, frame, a.theme, scale, a.showBorder)

	menuFace := a.uiFace(11, false)
	statusFace := a.uiFace(10, false)
	a.layoutTopActions(menuFace, a.layout)

	a.canvas.WritePixels(a.frameBuffer.Pixels)
	screen.DrawImage(a.canvas, nil)

	a.drawTopActionLabels(screen, menuFace)
	a.drawToolbarLabels(screen, statusFace)
	a.drawLayerLabels(screen, statusFace)
	text.Draw(screen, a.statusLine(), statusFace, 12, a.layout.StatusBar+a.layout.StatusH-8, a.theme.Text)

	a.drawPrompt(screen, w, h)
	if a.showHelp {
		a.drawHelpOverlay(screen, menuFace)
	}
}

func (a *App) statusLine() string {
	st := a.state
	d := st.Image.Format()
	name := st.Path
	if name == "" {
		name = "Untitled"
	} else {
		name = filepath.Base(name)
	}
	if st.Dirty {
		name += "*"
	}
	parts := []string{
		d.Name,
		st.Tool.String(),
		"ink " + colorLabel(st.Ctx.Ink) + " paper " + colorLabel(st.Ctx.Paper),
	}
	if st.Ctx.Bright {
		parts = append(parts, "bright")
	}
	if st.Ctx.Flash {
		parts = append(parts, "flash")
	}
	if d.AttrFrames() == 2 {
		parts = append(parts, "blend "+st.Ctx.Blend.String())
	}
	if ls := st.Image.Layers(); ls != nil {
		parts = append(parts, fmt.Sprintf("layer %d/%d", ls.Active()+1, ls.Len()))
	}
	parts = append(parts, fmt.Sprintf("%dx", a.layout.Zoom), name)
	if a.reloadPending {
		parts = append(parts, "changed on disk (Ctrl+R)")
	}
	line := "[ " + strings.Join(parts, " ] [ ") + " ]"
	if a.status != "" {
		line += "  " + a.status
	}
	return line
}

func colorLabel(c int) string {
	if c == editor.ColorTransparent {
		return "T"
	}
	return fmt.Sprint(c)
}

func (a *App) layoutTopActions(face font.Face, layout ui.Layout) {
	a.topActions = a.topActions[:0]
	x := 10
	y := 4
	h := layout.MenuH - 8
	if h < 20 {
		h = 20
	}
	buttons := []actionButton{
		{id: "new", label: "New"},
		{id: "format", label: "Format"},
		{id: "open", label: "Open"},
		{id: "save", label: "Save"},
		{id: "save_as", label: "Save As"},
		{id: "export", label: "PNG"},
		{id: "undo", label: "Undo"},
		{id: "redo", label: "Redo"},
		{id: "layers", label: "Layers", active: a.state.Image.Layered()},
		{id: "encryption", label: "Encryption", active: a.prompt == promptSave},
		{id: "scale_down", label: "A-"},
		{id: "scale_up", label: "A+"},
		{id: "help", label: "Help", active: a.showHelp},
	}
	mx, my := ebiten.CursorPosition()
	for _, btn := range buttons {
		w := a.measureString(face, btn.label) + 24
		if w < 48 {
			w = 48
		}
		r := rect{x: x, y: y, w: w, h: h}
		bg := color.RGBA{R: 46, G: 84, B: 145, A: 255}
		if btn.active {
			bg = color.RGBA{R: 71, G: 116, B: 186, A: 255}
		}
		if r.contains(mx, my) {
			bg = color.RGBA{R: 58, G: 102, B: 172, A: 255}
		}
		a.frameBuffer.FillRect(r.x, r.y, r.w, r.h, bg)
		a.frameBuffer.StrokeRect(r.x, r.y, r.w, r.h, 1, color.RGBA{R: 27, G: 54, B: 97, A: 255})
		btn.r = r
		a.topActions = append(a.topActions, btn)
		x += w + 6
	}
}

func (a *App) drawTopActionLabels(screen *ebiten.Image, face font.Face) {
	textColor := color.RGBA{R: 244, G: 248, B: 255, A: 255}
	for _, btn := range a.topActions {
		tw := a.measureString(face, btn.label)
		ascent := face.Metrics().Ascent.Round()
		descent := face.Metrics().Descent.Round()
		x := btn.r.x + (btn.r.w-tw)/2
		baseline := btn.r.y + (btn.r.h+ascent+descent)/2 - descent
		text.Draw(screen, btn.label, face, x, baseline, textColor)
	}
}

// drawToolbarLabels names the tool keys to the right of the swatches.
func (a *App) drawToolbarLabels(screen *ebiten.Image, face font.Face) {
	x := a.layout.SwatchX + 9*(a.layout.SwatchW+2) + 16
	y := a.layout.SwatchY + a.layout.SwatchW - 6
	for i, t := range []editor.Tool{editor.ToolPencil, editor.ToolEraser, editor.ToolAttribute, editor.ToolText, editor.ToolBorder, editor.ToolSelect} {
		label := fmt.Sprintf("F%d %s", i+2, t)
		c := a.theme.Text
		if t == a.state.Tool {
			c = a.theme.Accent
		}
		text.Draw(screen, label, face, x, y, c)
		x += a.measureString(face, label) + 14
	}
}

func (a *App) drawLayerLabels(screen *ebiten.Image, face font.Face) {
	st := a.state.Image.Layers()
	if st == nil {
		text.Draw(screen, "No layers", face, a.layout.PanelX+8, a.layout.CanvasY+16, a.theme.Text)
		return
	}
	for i := 0; i < st.Len(); i++ {
		y := a.layout.LayerRowY(i, st.Len())
		name := st.Layer(i).Name
		if name == "" {
			name = fmt.Sprintf("Layer %d", i)
		}
		text.Draw(screen, name, face, a.layout.PanelX+a.layout.LayerRowH+4, y+a.layout.LayerRowH-7, a.theme.Text)
	}
}

func (a *App) measureString(face font.Face, s string) int {
	if face == nil || s == "" {
		return 0
	}
	adv := font.MeasureString(face, s)
	px := (int(adv) + 32) >> 6
	if px < 0 {
		px = 0
	}
	return px
}

// uiFace returns a cached face for the UI, scaling by current UI scale.
func (a *App) uiFace(size int, bold bool) font.Face {
	scaleKey := int(math.Round(float64(a.uiScales[a.uiScaleIdx] * 1000)))
	key := fontKey{size: size, bold: bold, scale: scaleKey}
	if f, ok := a.fonts.cache[key]; ok {
		return f
	}
	base := a.fonts.regular
	if bold {
		base = a.fonts.bold
	}
	if base == nil {
		return basicfont.Face7x13
	}
	opts := &opentype.FaceOptions{Size: float64(size) * float64(a.uiScales[a.uiScaleIdx]), DPI: 72, Hinting: font.HintingFull}
	face, err := opentype.NewFace(base, opts)
	if err != nil {
		return basicfont.Face7x13
	}
	a.fonts.cache[key] = face
	return face
}

func (a *App) drawFilledRectOnScreen(screen *ebiten.Image, x, y, w, h int, c color.RGBA) {
	for yy := y; yy < y+h; yy++ {
		ebitenutil.DrawLine(screen, float64(x), float64(yy), float64(x+w), float64(yy), c)
	}
}

func (a *App) drawOutlineOnScreen(screen *ebiten.Image, r rect, c color.RGBA) {
	ebitenutil.DrawLine(screen, float64(r.x), float64(r.y), float64(r.x+r.w), float64(r.y), c)
	ebitenutil.DrawLine(screen, float64(r.x), float64(r.y+r.h), float64(r.x+r.w), float64(r.y+r.h), c)
	ebitenutil.DrawLine(screen, float64(r.x), float64(r.y), float64(r.x), float64(r.y+r.h), c)
	ebitenutil.DrawLine(screen, float64(r.x+r.w), float64(r.y), float64(r.x+r.w), float64(r.y+r.h), c)
}

func (a *App) layoutPromptBounds(w, h int) {
	pw := int(460 * a.uiScales[a.uiScaleIdx])
	ph := int(230 * a.uiScales[a.uiScaleIdx])
	if pw > w-40 {
		pw = w - 40
	}
	if ph > h-40 {
		ph = h - 40
	}
	px := (w - pw) / 2
	py := (h - ph) / 2
	a.promptRect = rect{x: px, y: py, w: pw, h: ph}
	a.promptSubmit = rect{x: px + pw - 186, y: py + ph - 46, w: 80, h: 30}
	a.promptCancel = rect{x: px + pw - 96, y: py + ph - 46, w: 80, h: 30}
}

func (a *App) promptInputRect() rect {
	r := a.promptRect
	return rect{x: r.x + 20, y: r.y + 84, w: r.w - 40, h: 34}
}

func (a *App) drawPrompt(screen *ebiten.Image, w, h int) {
	if a.prompt == promptNone {
		return
	}
	a.layoutPromptBounds(w, h)
	a.drawFilledRectOnScreen(screen, 0, 0, w, h, color.RGBA{A: 120})

	r := a.promptRect
	a.drawFilledRectOnScreen(screen, r.x, r.y, r.w, r.h, a.theme.Panel)
	a.drawOutlineOnScreen(screen, r, a.theme.Border)

	titleFace := a.uiFace(12, true)
	labelFace := a.uiFace(10, false)
	title, hint, submit := "Password Required", "Enter the password of this encrypted project:", "Open"
	if a.prompt == promptSave {
		title, hint, submit = "Project Encryption", "Password for saved projects (empty disables):", "Apply"
	}
	text.Draw(screen, title, titleFace, r.x+20, r.y+30, a.theme.Text)
	if a.promptPath != "" {
		text.Draw(screen, "File: "+filepath.Base(a.promptPath), labelFace, r.x+20, r.y+54, a.theme.Text)
	} else {
		mode := "off"
		if a.compressionEnabled {
			mode = "on"
		}
		text.Draw(screen, "Compression "+mode+" (Tab toggles)", labelFace, r.x+20, r.y+54, a.theme.Text)
	}
	text.Draw(screen, hint, labelFace, r.x+20, r.y+74, a.theme.Text)

	in := a.promptInputRect()
	border := a.theme.Border
	if a.promptFocused {
		border = a.theme.Selection
	}
	a.drawFilledRectOnScreen(screen, in.x, in.y, in.w, in.h, a.theme.Canvas)
	a.drawOutlineOnScreen(screen, in, border)

	masked := strings.Repeat("*", utf8.RuneCountInString(a.promptInput))
	text.Draw(screen, masked, labelFace, in.x+8, in.y+22, a.theme.Text)
	if a.promptFocused && (a.frameTick/30)%2 == 0 {
		caretX := in.x + 8 + a.measureString(labelFace, masked)
		ebitenutil.DrawLine(screen, float64(caretX), float64(in.y+7), float64(caretX), float64(in.y+in.h-7), a.theme.Caret)
	}
	if a.promptError != "" {
		text.Draw(screen, a.promptError, labelFace, r.x+20, in.y+in.h+22, a.theme.Caret)
	}

	a.drawFilledRectOnScreen(screen, a.promptSubmit.x, a.promptSubmit.y, a.promptSubmit.w, a.promptSubmit.h, a.theme.PanelActive)
	a.drawFilledRectOnScreen(screen, a.promptCancel.x, a.promptCancel.y, a.promptCancel.w, a.promptCancel.h, a.theme.Toolbar)
	text.Draw(screen, submit, labelFace, a.promptSubmit.x+22, a.promptSubmit.y+20, a.theme.Text)
	text.Draw(screen, "Cancel", labelFace, a.promptCancel.x+20, a.promptCancel.y+20, a.theme.Text)
}

func (a *App) layoutHelpDialogBounds(w, h int) {
	panelW := int(float64(w) * 0.68)
	panelH := int(float64(h) * 0.72)
	if panelW > w-40 {
		panelW = w - 40
	}
	if panelH > h-40 {
		panelH = h - 40
	}
	px := (w - panelW) / 2
	py := (h - panelH) / 2
	a.helpRect = rect{x: px, y: py, w: panelW, h: panelH}
	a.helpClose = rect{x: px + panelW - 94, y: py + 12, w: 78, h: 30}
}

func (a *App) drawHelpOverlay(screen *ebiten.Image, face font.Face) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	a.layoutHelpDialogBounds(w, h)
	r := a.helpRect
	a.drawFilledRectOnScreen(screen, 0, 0, w, h, color.RGBA{A: 120})
	a.drawFilledRectOnScreen(screen, r.x, r.y, r.w, r.h, a.theme.Panel)
	a.drawOutlineOnScreen(screen, r, a.theme.Border)

	a.drawFilledRectOnScreen(screen, a.helpClose.x, a.helpClose.y, a.helpClose.w, a.helpClose.h, a.theme.Toolbar)
	text.Draw(screen, "Close", face, a.helpClose.x+22, a.helpClose.y+20, a.theme.Text)
	text.Draw(screen, "Help", a.uiFace(12, true), r.x+22, r.y+30, a.theme.Text)

	lines := []string{
		"Ctrl+N: New | Ctrl+O: Open | Ctrl+S: Save | Ctrl+Shift+S: Save As",
		"Ctrl+E: Export PNG | Ctrl+R: Reload from disk",
		"Ctrl+Z: Undo | Ctrl+Y: Redo | Ctrl+K: Clear",
		"F2 pencil, F3 eraser, F4 attribute, F5 text, F6 border, F7 select",
		"Left button draws ink, right button draws paper",
		"Swatches: left click sets ink, right click sets paper",
		"[ and ]: cycle ink (Shift: paper) | Ctrl+B bright | Ctrl+F flash",
		"F8: dual-frame blend | F9: border view | F10: flash animation",
		"Ctrl+C / Ctrl+V: copy and paste region | Ctrl+Shift+C: copy PNG",
		"Ctrl+L: add layer | Ctrl+Shift+L: layers on / flatten",
		"Ctrl+M: merge down | Ctrl+Delete: remove | PgUp/PgDn: active layer",
		"Ctrl+P: project encryption | Ctrl+= / Ctrl+-: zoom",
		"F1 or Esc closes this dialog",
	}
	y := r.y + 62
	labelFace := a.uiFace(10, false)
	for _, l := range lines {
		text.Draw(screen, l, labelFace, r.x+20, y, a.theme.Text)
		y += int(22 * a.uiScales[a.uiScaleIdx])
	}
}
