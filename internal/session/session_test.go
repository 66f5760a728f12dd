package session

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"zxpaint/internal/editor"
	"zxpaint/internal/render"
	"zxpaint/pkg/project"
	"zxpaint/pkg/scr"
)

func TestSaveOpenNative(t *testing.T) {
	img := editor.NewImage(scr.MustLookup(scr.FormatBordered))
	if err := img.SetPixel(editor.DefaultContext(), 4, 4, true); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "pic.bsc")
	kind, err := Save(path, img, SaveOptions{})
	if err != nil || kind != KindNative {
		t.Fatalf("save: %v %v", kind, err)
	}
	doc, err := Open(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Kind != KindNative || doc.Image.Format().ID != scr.FormatBordered {
		t.Fatalf("opened %v as %s", doc.Kind, doc.Image.Format().Name)
	}
	if !bytes.Equal(doc.Image.Committed(), img.Committed()) {
		t.Fatalf("content changed")
	}
}

func TestSaveRejectsMismatchedExtension(t *testing.T) {
	img := editor.NewImage(scr.MustLookup(scr.FormatStandard))
	if _, err := Save(filepath.Join(t.TempDir(), "pic.mc4"), img, SaveOptions{}); err == nil {
		t.Fatalf("expected extension mismatch error")
	}
}

func TestSaveOpenProject(t *testing.T) {
	img := editor.NewImage(scr.MustLookup(scr.FormatMulticolor2))
	if err := img.EnableLayers(); err != nil {
		t.Fatal(err)
	}
	img.Layers().Add("ink")
	if err := img.SetPixel(editor.DefaultContext(), 10, 10, true); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "work"+ProjectExt)
	opts := SaveOptions{Title: "work", Project: project.SaveOptions{
		Compression: true,
		Encryption:  project.EncryptionOptions{Enabled: true, Password: "pw"},
	}}
	kind, err := Save(path, img, opts)
	if err != nil || kind != KindProject {
		t.Fatalf("save: %v %v", kind, err)
	}
	if _, err := Open(path, ""); err == nil {
		t.Fatalf("expected password error")
	}
	doc, err := Open(path, "pw")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Kind != KindProject || !doc.Envelope.Encrypted || doc.Metadata.Title != "work" {
		t.Fatalf("document: %+v", doc)
	}
	if doc.Image.Layers().Len() != 2 || !doc.Image.Pixel(10, 10) {
		t.Fatalf("layers not restored")
	}
}

func TestExportPNG(t *testing.T) {
	img := editor.NewImage(scr.MustLookup(scr.FormatBordered))
	path := filepath.Join(t.TempDir(), "out.png")
	if err := ExportPNGFile(path, img, render.Options{Border: true}, 2); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 768 || cfg.Height != 608 {
		t.Fatalf("png size %dx%d", cfg.Width, cfg.Height)
	}
}

func TestDefaultName(t *testing.T) {
	img := editor.NewImage(scr.MustLookup(scr.FormatGigascreen))
	if got := DefaultName(img, false); got != "untitled.img" {
		t.Fatalf("got %q", got)
	}
	if got := DefaultName(img, true); got != "untitled.zxp" {
		t.Fatalf("got %q", got)
	}
}

func TestWatcherFilter(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "a.scr")
	if err := w.Watch(target); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	if _, ok := w.accept(fsnotify.Event{Name: target, Op: fsnotify.Write}, now); !ok {
		t.Fatalf("write to target rejected")
	}
	if _, ok := w.accept(fsnotify.Event{Name: filepath.Join(dir, "b.scr"), Op: fsnotify.Write}, now); ok {
		t.Fatalf("sibling file accepted")
	}
	if _, ok := w.accept(fsnotify.Event{Name: target, Op: fsnotify.Chmod}, now); ok {
		t.Fatalf("chmod accepted")
	}
	w.MarkOwnWrite()
	if _, ok := w.accept(fsnotify.Event{Name: target, Op: fsnotify.Write}, time.Now()); ok {
		t.Fatalf("own write reported")
	}
	if _, ok := w.accept(fsnotify.Event{Name: target, Op: fsnotify.Write}, time.Now().Add(OwnWriteQuiet+time.Second)); !ok {
		t.Fatalf("change after quiet period ignored")
	}
}

func TestWatcherReportsExternalWrite(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	target := filepath.Join(t.TempDir(), "a.scr")
	if err := os.WriteFile(target, make([]byte, scr.ScreenSize), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(target); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, make([]byte, scr.ScreenSize), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-w.Changes():
		if got != target {
			t.Fatalf("changed path %q want %q", got, target)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no change reported")
	}
}
