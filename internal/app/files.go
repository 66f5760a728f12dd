package app

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sqweek/dialog"
	imgclip "golang.design/x/clipboard"

	"zxpaint/internal/editor"
	"zxpaint/internal/logging"
	"zxpaint/internal/render"
	"zxpaint/internal/session"
	"zxpaint/pkg/project"
	"zxpaint/pkg/scr"
)

const maxPasswordLen = 128

// fileDialog is a file chooser filtered to every registered screen format
// and to project files.
func fileDialog() *dialog.FileBuilder {
	b := dialog.File().Filter("Project files", strings.TrimPrefix(session.ProjectExt, "."))
	var all []string
	for _, d := range scr.Formats() {
		all = append(all, d.Extensions...)
	}
	b = b.Filter("Screen files", all...)
	for _, d := range scr.Formats() {
		b = b.Filter(d.Name, d.Extensions...)
	}
	return b
}

func (a *App) confirmDiscard() bool {
	if !a.state.Dirty {
		return true
	}
	return dialog.Message("Discard unsaved changes to %s?", a.documentName()).Title("Unsaved changes").YesNo()
}

func (a *App) documentName() string {
	if a.state.Path == "" {
		return "the untitled image"
	}
	return filepath.Base(a.state.Path)
}

func (a *App) openDialog() error {
	if !a.confirmDiscard() {
		return nil
	}
	path, err := fileDialog().Load()
	if err != nil {
		if errors.Is(err, dialog.ErrCancelled) {
			return nil
		}
		return err
	}
	if path == "" {
		return errNoFile
	}
	return a.openPath(filepath.Clean(path), a.encryptionPassword)
}

// openPath opens path and falls back to the password prompt for
// encrypted projects.
func (a *App) openPath(path, password string) error {
	doc, err := session.Open(path, password)
	if err != nil {
		if errors.Is(err, project.ErrPasswordRequired) || errors.Is(err, project.ErrInvalidPassword) {
			a.openPrompt(promptOpen, path)
			if password != "" && errors.Is(err, project.ErrInvalidPassword) {
				a.promptError = "Incorrect password. Enter password to open."
			}
			a.status = "Password required to open encrypted project"
			return nil
		}
		return err
	}
	if doc.Envelope.Encrypted {
		a.encryptionPassword = password
	}
	a.adopt(doc)
	return nil
}

func (a *App) reload() error {
	if a.state.Path == "" {
		return errNoFile
	}
	if !a.confirmDiscard() {
		return nil
	}
	return a.openPath(a.state.Path, a.encryptionPassword)
}

func (a *App) save(saveAs bool) error {
	path := a.state.Path
	if saveAs || path == "" {
		p, err := fileDialog().SetStartFile(session.DefaultName(a.state.Image, a.docKind == session.KindProject)).Save()
		if err != nil {
			if errors.Is(err, dialog.ErrCancelled) {
				return nil
			}
			return err
		}
		path = p
	}
	if path == "" {
		return errNoFile
	}
	if filepath.Ext(path) == "" {
		if a.state.Image.Layered() {
			path += session.ProjectExt
		} else {
			path += filepath.Ext(session.DefaultName(a.state.Image, false))
		}
	}
	if !session.IsProjectPath(path) && a.state.Image.Layered() && a.state.Image.Layers().Len() > 1 {
		if !dialog.Message("%s keeps only the flattened image. Save anyway?", filepath.Base(path)).Title("Layers").YesNo() {
			return nil
		}
	}
	if a.encryptionEnabled && a.encryptionPassword == "" && session.IsProjectPath(path) {
		a.openPrompt(promptSave, "")
		return errors.New("set an encryption password first")
	}

	opts := session.SaveOptions{
		Author: a.cfg.Project.Author,
		Title:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Project: project.SaveOptions{
			Compression: a.compressionEnabled,
			Encryption:  project.EncryptionOptions{Enabled: a.encryptionEnabled, Password: a.encryptionPassword},
		},
	}
	if a.watcher != nil {
		a.watcher.MarkOwnWrite()
	}
	kind, err := session.Save(path, a.state.Image, opts)
	if err != nil {
		return err
	}
	a.state.Path = path
	a.state.Dirty = false
	a.docKind = kind
	a.reloadPending = false
	if a.watcher != nil {
		if err := a.watcher.Watch(path); err != nil {
			logging.Logger().Warn("watch file", "path", path, "err", err)
		}
	}
	a.status = "Saved " + filepath.Base(path)
	return nil
}

func (a *App) exportDialog() error {
	name := "untitled.png"
	if a.state.Path != "" {
		base := filepath.Base(a.state.Path)
		name = strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
	}
	path, err := dialog.File().Filter("PNG images", "png").SetStartFile(name).Save()
	if err != nil {
		if errors.Is(err, dialog.ErrCancelled) {
			return nil
		}
		return err
	}
	if filepath.Ext(path) == "" {
		path += ".png"
	}
	if err := session.ExportPNGFile(path, a.state.Image, a.renderOptions(), a.exportScale()); err != nil {
		return err
	}
	a.status = "Exported " + filepath.Base(path)
	return nil
}

func (a *App) renderOptions() render.Options {
	return render.Options{Border: a.showBorder}
}

func (a *App) exportScale() int {
	if a.cfg.View.Scale < 1 {
		return 1
	}
	return a.cfg.View.Scale
}

// copyRegion puts the selection on the system clipboard as region text so
// it can be pasted into another running editor.
func (a *App) copyRegion() {
	r, err := a.state.CopySelection()
	if err != nil {
		a.status = "Copy failed: " + err.Error()
		return
	}
	b, err := r.MarshalText()
	if err != nil {
		a.status = "Copy failed: " + err.Error()
		return
	}
	if err := clipboard.WriteAll(string(b)); err != nil {
		a.status = "Copy failed: " + err.Error()
		return
	}
	a.status = "Copied region"
}

func (a *App) pasteRegion() {
	clip, err := clipboard.ReadAll()
	if err != nil || clip == "" {
		a.status = "Clipboard is empty"
		return
	}
	var r editor.Region
	if err := r.UnmarshalText([]byte(clip)); err != nil {
		a.status = "Clipboard holds no image region"
		return
	}
	if err := a.state.PasteAt(&r); err != nil {
		a.status = "Paste failed: " + err.Error()
		return
	}
	a.status = "Pasted region"
}

// copyPNG puts the rendered image on the clipboard as a PNG.
func (a *App) copyPNG() {
	if err := imgclip.Init(); err != nil {
		a.status = "Image clipboard unavailable: " + err.Error()
		return
	}
	var buf bytes.Buffer
	if err := session.ExportPNG(&buf, a.state.Image, a.renderOptions(), 1); err != nil {
		a.status = "Copy failed: " + err.Error()
		return
	}
	imgclip.Write(imgclip.FmtImage, buf.Bytes())
	a.status = "Copied image"
}

func (a *App) pollWatcher() {
	if a.watcher == nil {
		return
	}
	select {
	case path, ok := <-a.watcher.Changes():
		if !ok {
			a.watcher = nil
			return
		}
		if path == "" || a.reloadPending {
			return
		}
		a.reloadPending = true
		a.status = filepath.Base(path) + " changed on disk"
	default:
	}
}

func (a *App) openPrompt(mode promptMode, path string) {
	a.prompt = mode
	a.promptPath = path
	a.promptInput = ""
	if mode == promptSave {
		a.promptInput = a.encryptionPassword
	}
	a.promptError = ""
	a.promptFocused = true
	a.painting = false
	a.selecting = false
}

func (a *App) closePrompt() {
	a.prompt = promptNone
	a.promptFocused = false
	a.promptPath = ""
	a.promptInput = ""
	a.promptError = ""
}

func (a *App) handlePromptInput(ctrl bool) {
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) && len(a.promptInput) > 0 {
		_, size := utf8.DecodeLastRuneInString(a.promptInput)
		if size <= 0 {
			size = 1
		}
		a.promptInput = a.promptInput[:len(a.promptInput)-size]
	}
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		if clip, err := clipboard.ReadAll(); err == nil && clip != "" {
			a.appendPromptInput(clip)
		}
	}
	if a.prompt == promptSave && inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		a.compressionEnabled = !a.compressionEnabled
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyKPEnter) {
		a.submitPrompt()
		return
	}
	if ctrl {
		return
	}
	for _, r := range ebiten.AppendInputChars(nil) {
		if r < 0x20 || r == 0x7F || !utf8.ValidRune(r) {
			continue
		}
		a.appendPromptInput(string(r))
	}
}

func (a *App) appendPromptInput(s string) {
	a.promptInput += s
	if len(a.promptInput) > maxPasswordLen {
		a.promptInput = a.promptInput[:maxPasswordLen]
	}
}

func (a *App) handlePromptClick(x, y int) {
	if !a.promptRect.contains(x, y) {
		a.closePrompt()
		return
	}
	if a.promptInputRect().contains(x, y) {
		a.promptFocused = true
		return
	}
	a.promptFocused = false
	if a.promptSubmit.contains(x, y) {
		a.submitPrompt()
		return
	}
	if a.promptCancel.contains(x, y) {
		a.closePrompt()
	}
}

func (a *App) submitPrompt() {
	switch a.prompt {
	case promptOpen:
		path := a.promptPath
		doc, err := session.Open(path, a.promptInput)
		if err != nil {
			if errors.Is(err, project.ErrPasswordRequired) || errors.Is(err, project.ErrInvalidPassword) {
				a.promptError = "Incorrect password. Try again."
				return
			}
			a.status = "Open failed: " + err.Error()
			a.closePrompt()
			return
		}
		a.encryptionPassword = a.promptInput
		a.closePrompt()
		a.adopt(doc)
	case promptSave:
		a.encryptionPassword = a.promptInput
		a.encryptionEnabled = a.promptInput != ""
		if a.encryptionEnabled {
			a.status = "AES-256 encryption enabled for projects"
		} else {
			a.status = "Encryption disabled"
		}
		a.closePrompt()
	}
}
