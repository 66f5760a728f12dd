package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.org/x/image/font"

	"zxpaint/internal/config"
	"zxpaint/internal/editor"
	"zxpaint/internal/logging"
	"zxpaint/internal/render"
	"zxpaint/internal/session"
	"zxpaint/internal/ui"
	"zxpaint/pkg/scr"
)

// flashTicks is the flash phase length in update ticks (16 frames at
// 50Hz on the original hardware).
const flashTicks = 19

type rect struct {
	x int
	y int
	w int
	h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && y >= r.y && x < r.x+r.w && y < r.y+r.h
}

type actionButton struct {
	id     string
	label  string
	r      rect
	active bool
}

type promptMode int

const (
	promptNone promptMode = iota
	promptOpen
	promptSave
)

type App struct {
	theme ui.Theme
	cfg   config.Config
	state *editor.State

	frameBuffer *render.FrameBuffer
	canvas      *ebiten.Image
	layout      ui.Layout

	fonts fontBank

	uiScales   []float32
	uiScaleIdx int
	status     string
	frameTick  uint64

	showHelp   bool
	helpRect   rect
	helpClose  rect
	showBorder bool
	flash      bool

	newFormat int
	docKind   session.Kind

	topActions []actionButton

	compressionEnabled bool
	encryptionEnabled  bool
	encryptionPassword string

	prompt        promptMode
	promptRect    rect
	promptInput   string
	promptError   string
	promptPath    string
	promptSubmit  rect
	promptCancel  rect
	promptFocused bool

	watcher       *session.Watcher
	reloadPending bool

	painting   bool
	paintInk   bool
	selecting  bool
	lastFX     int
	lastFY     int
	typingEdit bool

	screenW int
	screenH int
}

func New(cfg config.Config) *App {
	d, err := cfg.Descriptor()
	if err != nil {
		d = scr.MustLookup(scr.FormatStandard)
	}
	a := &App{
		theme:              ui.DefaultTheme(),
		cfg:                cfg,
		fonts:              newFontBank(),
		uiScales:           []float32{1.0, 1.25, 1.5, 2.0},
		status:             "Untitled " + d.Name,
		topActions:         make([]actionButton, 0, 16),
		showBorder:         true,
		flash:              cfg.View.Flash,
		compressionEnabled: cfg.Project.Compression,
	}
	for i, f := range scr.Formats() {
		if f.ID == d.ID {
			a.newFormat = i
		}
	}
	a.state = a.newState(editor.NewImage(d))
	if w, err := session.NewWatcher(); err == nil {
		a.watcher = w
	} else {
		logging.Logger().Warn("file watcher unavailable", "err", err)
	}
	return a
}

func (a *App) newState(img *editor.Image) *editor.State {
	if a.cfg.Editor.Layers && !img.Layered() {
		if err := img.EnableLayers(); err != nil {
			logging.Logger().Warn("enable layers", "err", err)
		}
	}
	st := editor.NewState(img)
	st.Ctx = a.cfg.Context()
	st.History.SetMaxEntries(a.cfg.Editor.UndoDepth)
	st.ZoomPercent = a.cfg.View.Scale * 100
	st.Normalize()
	return st
}

// Open loads path into the editor before the window starts.
func (a *App) Open(path string) error {
	doc, err := session.Open(path, "")
	if err != nil {
		return err
	}
	a.adopt(doc)
	return nil
}

func (a *App) Run() error {
	defer func() {
		if a.watcher != nil {
			_ = a.watcher.Close()
		}
	}()
	ebiten.SetWindowTitle("zxpaint")
	ebiten.SetWindowSize(1280, 800)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(900, 560, -1, -1)
	if err := ebiten.RunGame(a); err != nil {
		return fmt.Errorf("run game loop: %w", err)
	}
	return nil
}

func (a *App) Update() error {
	a.frameTick++
	if a.flash && a.frameTick%flashTicks == 0 {
		a.state.FlashOn = !a.state.FlashOn
	}
	a.pollWatcher()

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)
	winW, winH := a.currentViewportSize()
	if a.prompt != promptNone {
		a.layoutPromptBounds(winW, winH)
	}
	if a.showHelp {
		a.layoutHelpDialogBounds(winW, winH)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		switch {
		case a.prompt != promptNone:
			a.closePrompt()
			return nil
		case a.showHelp:
			a.showHelp = false
			return nil
		case a.state.HasSelection():
			a.state.ClearSelection()
			return nil
		}
		if a.confirmDiscard() {
			return ebiten.Termination
		}
		return nil
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		a.showHelp = !a.showHelp
	}
	if a.showHelp {
		if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
			x, y := ebiten.CursorPosition()
			if !a.helpRect.contains(x, y) || a.helpClose.contains(x, y) {
				a.showHelp = false
			}
		}
		return nil
	}
	if a.prompt != promptNone {
		a.handlePromptInput(ctrl)
		if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
			x, y := ebiten.CursorPosition()
			a.handlePromptClick(x, y)
		}
		return nil
	}

	if a.handleMouse() {
		return nil
	}
	if a.handleShortcuts(ctrl, shift) {
		return nil
	}
	a.handleToolKeys(ctrl, shift)
	return nil
}

// handleMouse drives the buttons, swatches, layer panel and the canvas
// tools. It reports whether the click was consumed by chrome.
func (a *App) handleMouse() bool {
	mx, my := ebiten.CursorPosition()
	left := inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft)
	right := inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight)

	if left {
		if id, ok := a.actionAt(mx, my); ok {
			a.invokeAction(id)
			return true
		}
	}
	if left || right {
		if c, ok := a.layout.SwatchAt(mx, my); ok {
			if c == editor.ColorTransparent && !a.state.Image.Layered() {
				a.status = "Transparent needs layers (Ctrl+Shift+L)"
				return true
			}
			if left {
				a.state.Ctx.Ink = c
			} else {
				a.state.Ctx.Paper = c
			}
			return true
		}
		if st := a.state.Image.Layers(); st != nil {
			if i, ok := a.layout.LayerRowAt(mx, my, st.Len()); ok {
				a.clickLayerRow(i, mx)
				return true
			}
		}
	}

	fx, fy, inImage := a.layout.FramePoint(mx, my)
	ox, oy := a.screenOffset()
	if (left || right) && inImage {
		sx, sy := fx-ox, fy-oy
		switch a.state.Tool {
		case editor.ToolSelect:
			a.state.StartSelection(sx, sy)
			a.selecting = true
		case editor.ToolText:
			a.state.SetCaret(sx/8, sy/8)
			a.typingEdit = false
		default:
			a.state.Begin()
			a.painting = true
			a.paintInk = left
			a.lastFX, a.lastFY = fx, fy
			a.applyStroke(fx, fy)
		}
	}
	held := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) || ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	if !held {
		a.painting = false
		a.selecting = false
		return false
	}
	if !inImage {
		return false
	}
	if a.selecting {
		a.state.ExtendSelection(fx-ox, fy-oy)
	}
	if a.painting && (fx != a.lastFX || fy != a.lastFY) {
		walkLine(a.lastFX, a.lastFY, fx, fy, a.applyStroke)
		a.lastFX, a.lastFY = fx, fy
	}
	return false
}

func (a *App) applyStroke(fx, fy int) {
	var err error
	if a.state.Tool == editor.ToolBorder {
		err = a.state.StrokeBorder(fx, fy)
	} else {
		ox, oy := a.screenOffset()
		err = a.state.Stroke(fx-ox, fy-oy, a.paintInk)
	}
	if err != nil {
		a.status = err.Error()
		a.painting = false
	}
}

// walkLine visits every pixel on the segment from (x0, y0) to (x1, y1)
// except the first.
func walkLine(x0, y0, x1, y1 int, fn func(x, y int)) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for x0 != x1 || y0 != y1 {
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
		fn(x0, y0)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (a *App) screenOffset() (int, int) {
	return ui.ScreenOffset(a.state.Image.Format(), a.showBorder)
}

func (a *App) clickLayerRow(i, mx int) {
	st := a.state.Image.Layers()
	if mx < a.layout.PanelX+a.layout.LayerRowH {
		vis := !st.Layer(i).Visible
		err := a.state.Edit(func(img *editor.Image) error {
			if err := img.Layers().SetVisible(i, vis); err != nil {
				return err
			}
			img.Commit()
			return nil
		})
		if err != nil {
			a.status = err.Error()
		}
		return
	}
	if err := st.SetActive(i); err != nil {
		a.status = err.Error()
		return
	}
	a.status = fmt.Sprintf("Layer %d: %s", i, st.Layer(i).Name)
}

func (a *App) handleShortcuts(ctrl, shift bool) bool {
	if !ctrl {
		return false
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyZ):
		a.invokeAction("undo")
	case inpututil.IsKeyJustPressed(ebiten.KeyY):
		a.invokeAction("redo")
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		a.invokeAction("new")
	case inpututil.IsKeyJustPressed(ebiten.KeyO):
		a.invokeAction("open")
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		if shift {
			a.invokeAction("save_as")
		} else {
			a.invokeAction("save")
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		a.invokeAction("reload")
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		if shift {
			a.invokeAction("copy_png")
		} else {
			a.invokeAction("copy")
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyV):
		a.invokeAction("paste")
	case inpututil.IsKeyJustPressed(ebiten.KeyE):
		a.invokeAction("export")
	case inpututil.IsKeyJustPressed(ebiten.KeyL):
		if shift {
			a.invokeAction("layers")
		} else {
			a.invokeAction("layer_add")
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyM):
		a.invokeAction("layer_merge")
	case inpututil.IsKeyJustPressed(ebiten.KeyDelete):
		a.invokeAction("layer_remove")
	case inpututil.IsKeyJustPressed(ebiten.KeyB):
		a.state.Ctx.Bright = !a.state.Ctx.Bright
		a.state.Ctx.Second.Bright = a.state.Ctx.Bright
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		a.state.Ctx.Flash = !a.state.Ctx.Flash
	case inpututil.IsKeyJustPressed(ebiten.KeyK):
		a.invokeAction("clear")
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		a.invokeAction("encryption")
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual), inpututil.IsKeyJustPressed(ebiten.KeyKPAdd):
		a.state.ZoomIn()
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus), inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract):
		a.state.ZoomOut()
	case inpututil.IsKeyJustPressed(ebiten.KeyPeriod):
		a.invokeAction("scale_up")
	case inpututil.IsKeyJustPressed(ebiten.KeyComma):
		a.invokeAction("scale_down")
	default:
		return false
	}
	return true
}

func (a *App) handleToolKeys(ctrl, shift bool) {
	tools := map[ebiten.Key]editor.Tool{
		ebiten.KeyF2: editor.ToolPencil,
		ebiten.KeyF3: editor.ToolEraser,
		ebiten.KeyF4: editor.ToolAttribute,
		ebiten.KeyF5: editor.ToolText,
		ebiten.KeyF6: editor.ToolBorder,
		ebiten.KeyF7: editor.ToolSelect,
	}
	for k, t := range tools {
		if inpututil.IsKeyJustPressed(k) {
			a.setTool(t)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageUp) {
		a.stepActiveLayer(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageDown) {
		a.stepActiveLayer(-1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF8) {
		a.state.CycleBlend()
		a.status = "Blend " + a.state.Ctx.Blend.String()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		a.showBorder = !a.showBorder
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF10) {
		a.flash = !a.flash
		a.state.FlashOn = false
	}

	if a.state.Tool == editor.ToolText {
		a.handleTyping(ctrl)
		return
	}
	a.typingEdit = false
	if ctrl {
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketRight) {
		if shift {
			a.state.CyclePaper(1)
		} else {
			a.state.CycleInk(1)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBracketLeft) {
		if shift {
			a.state.CyclePaper(-1)
		} else {
			a.state.CycleInk(-1)
		}
	}
}

func (a *App) handleTyping(ctrl bool) {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
		a.state.MoveCaretLeft()
		a.typingEdit = false
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
		a.state.MoveCaretRight()
		a.typingEdit = false
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		a.state.MoveCaretUp()
		a.typingEdit = false
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		a.state.MoveCaretDown()
		a.typingEdit = false
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyKPEnter) {
		a.state.SetCaret(0, a.state.Caret.Row+1)
		a.typingEdit = false
	}
	if ctrl {
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		a.beginTyping()
		if err := a.state.Backspace(); err != nil {
			a.status = err.Error()
		}
	}
	var typed []byte
	for _, r := range ebiten.AppendInputChars(nil) {
		if r < 0x20 || r > 0x7E || !utf8.ValidRune(r) {
			continue
		}
		typed = append(typed, byte(r))
	}
	if len(typed) == 0 {
		return
	}
	a.beginTyping()
	if err := a.state.InsertTextAtCaret(string(typed)); err != nil {
		a.status = err.Error()
	}
}

// beginTyping groups consecutive keystrokes into one undo step until the
// caret is moved by other means.
func (a *App) beginTyping() {
	if !a.typingEdit {
		a.state.Begin()
		a.typingEdit = true
	}
}

func (a *App) setTool(t editor.Tool) {
	d := a.state.Image.Format()
	switch {
	case t == editor.ToolText && !d.CharStream:
		a.status = "Text tool needs a character stream image"
		return
	case (t == editor.ToolPencil || t == editor.ToolAttribute) && d.CharStream:
		a.status = "Character streams are edited with the text tool"
		return
	case t == editor.ToolBorder && !d.HasBorder():
		a.status = d.Name + " has no border"
		return
	case t == editor.ToolAttribute && !d.HasAttributes():
		a.status = d.Name + " has no attributes"
		return
	}
	a.state.Tool = t
	a.state.Normalize()
	a.status = "Tool: " + t.String()
}

func (a *App) stepActiveLayer(delta int) {
	st := a.state.Image.Layers()
	if st == nil {
		return
	}
	i := st.Active() + delta
	if i < 0 || i >= st.Len() {
		return
	}
	_ = st.SetActive(i)
	a.status = fmt.Sprintf("Layer %d: %s", i, st.Layer(i).Name)
}

func (a *App) actionAt(x, y int) (string, bool) {
	for _, btn := range a.topActions {
		if btn.r.contains(x, y) {
			return btn.id, true
		}
	}
	return "", false
}

func (a *App) invokeAction(id string) {
	switch id {
	case "new":
		if !a.confirmDiscard() {
			return
		}
		d := scr.Formats()[a.newFormat]
		a.adopt(&session.Document{Image: editor.NewImage(d)})
		a.status = "New " + d.Name
	case "format":
		formats := scr.Formats()
		a.newFormat = (a.newFormat + 1) % len(formats)
		a.status = "New images: " + formats[a.newFormat].Name
	case "open":
		if err := a.openDialog(); err != nil {
			a.status = "Open failed: " + err.Error()
		}
	case "reload":
		if err := a.reload(); err != nil {
			a.status = "Reload failed: " + err.Error()
		}
	case "save":
		if err := a.save(false); err != nil {
			a.status = "Save failed: " + err.Error()
		}
	case "save_as":
		if err := a.save(true); err != nil {
			a.status = "Save As failed: " + err.Error()
		}
	case "export":
		if err := a.exportDialog(); err != nil {
			a.status = "Export failed: " + err.Error()
		}
	case "undo":
		if err := a.state.Undo(); err != nil {
			a.status = "Undo failed: " + err.Error()
		}
	case "redo":
		if err := a.state.Redo(); err != nil {
			a.status = "Redo failed: " + err.Error()
		}
	case "copy":
		a.copyRegion()
	case "paste":
		a.pasteRegion()
	case "copy_png":
		a.copyPNG()
	case "clear":
		ctx := a.state.Ctx
		_ = a.state.Edit(func(img *editor.Image) error {
			img.Clear(ctx)
			return nil
		})
		a.status = "Cleared"
	case "layers":
		a.toggleLayers()
	case "layer_add":
		a.editLayers(func(img *editor.Image) error {
			if !img.Layered() {
				if err := img.EnableLayers(); err != nil {
					return err
				}
			}
			img.Layers().Add("")
			return nil
		}, "Layer added")
	case "layer_remove":
		a.editLayers(func(img *editor.Image) error {
			if !img.Layered() {
				return nil
			}
			return img.Layers().Remove(img.Layers().Active())
		}, "Layer removed")
	case "layer_merge":
		a.editLayers(func(img *editor.Image) error {
			if !img.Layered() {
				return nil
			}
			return img.Layers().MergeDown(img.Layers().Active())
		}, "Layer merged down")
	case "encryption":
		a.openPrompt(promptSave, "")
	case "scale_up":
		a.bumpUIScale(1)
		a.status = fmt.Sprintf("UI scale %.0f%%", a.uiScales[a.uiScaleIdx]*100)
	case "scale_down":
		a.bumpUIScale(-1)
		a.status = fmt.Sprintf("UI scale %.0f%%", a.uiScales[a.uiScaleIdx]*100)
	case "help":
		a.showHelp = !a.showHelp
	}
}

func (a *App) editLayers(fn func(img *editor.Image) error, done string) {
	err := a.state.Edit(func(img *editor.Image) error {
		if err := fn(img); err != nil {
			return err
		}
		img.Commit()
		return nil
	})
	if err != nil {
		a.status = err.Error()
		return
	}
	a.state.Normalize()
	a.status = done
}

func (a *App) toggleLayers() {
	img := a.state.Image
	if !img.Layered() {
		a.editLayers(func(img *editor.Image) error { return img.EnableLayers() }, "Layers on")
		return
	}
	a.editLayers(func(img *editor.Image) error { return img.FlattenLayers() }, "Layers flattened")
	// transparent is meaningless without layers
	if a.state.Ctx.Ink == editor.ColorTransparent {
		a.state.Ctx.Ink = a.cfg.Editor.Ink
	}
	if a.state.Ctx.Paper == editor.ColorTransparent {
		a.state.Ctx.Paper = a.cfg.Editor.Paper
	}
}

func (a *App) adopt(doc *session.Document) {
	ctx := a.state.Ctx
	if ctx.Ink == editor.ColorTransparent || ctx.Paper == editor.ColorTransparent {
		ctx = a.cfg.Context()
	}
	// opened files keep their own layering
	layers := a.cfg.Editor.Layers
	if doc.Path != "" {
		a.cfg.Editor.Layers = false
	}
	a.state = a.newState(doc.Image)
	a.cfg.Editor.Layers = layers
	a.state.Path = doc.Path
	a.state.Ctx = ctx
	a.docKind = doc.Kind
	a.reloadPending = false
	if doc.Kind == session.KindProject {
		a.compressionEnabled = doc.Envelope.Compressed
		a.encryptionEnabled = doc.Envelope.Encrypted
	}
	if a.watcher != nil {
		if err := a.watcher.Watch(doc.Path); err != nil {
			logging.Logger().Warn("watch file", "path", doc.Path, "err", err)
		}
	}
	if doc.Path != "" {
		a.status = fmt.Sprintf("Opened %s (%s)", filepath.Base(doc.Path), doc.Image.Format().Name)
	}
}

func (a *App) bumpUIScale(delta int) {
	if len(a.uiScales) == 0 {
		return
	}
	prev := a.uiScaleIdx
	a.uiScaleIdx += delta
	if a.uiScaleIdx < 0 {
		a.uiScaleIdx = 0
	}
	if a.uiScaleIdx >= len(a.uiScales) {
		a.uiScaleIdx = len(a.uiScales) - 1
	}
	if prev != a.uiScaleIdx {
		a.fonts.cache = map[fontKey]font.Face{}
	}
}

func (a *App) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	if outsideWidth < 900 {
		outsideWidth = 900
	}
	if outsideHeight < 560 {
		outsideHeight = 560
	}
	a.screenW = outsideWidth
	a.screenH = outsideHeight
	return outsideWidth, outsideHeight
}

func (a *App) currentViewportSize() (int, int) {
	if a.screenW > 0 && a.screenH > 0 {
		return a.screenW, a.screenH
	}
	w, h := ebiten.WindowSize()
	if w <= 0 {
		w = 1280
	}
	if h <= 0 {
		h = 800
	}
	return w, h
}

var errNoFile = errors.New("no file selected")
