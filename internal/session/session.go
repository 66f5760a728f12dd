// Package session opens and saves the files the editor works on: native
// screen files in any registered format and layered project files.
package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"zxpaint/internal/editor"
	"zxpaint/internal/logging"
	"zxpaint/internal/render"
	"zxpaint/pkg/project"
	"zxpaint/pkg/scr"
)

// ProjectExt is the extension of layered project files.
const ProjectExt = ".zxp"

type Kind int

const (
	KindNative Kind = iota
	KindProject
)

func (k Kind) String() string {
	if k == KindProject {
		return "project"
	}
	return "native"
}

// Document is an opened file.
type Document struct {
	Image    *editor.Image
	Path     string
	Kind     Kind
	Envelope project.EnvelopeInfo
	Metadata project.Metadata
}

type SaveOptions struct {
	Author  string
	Title   string
	Project project.SaveOptions
}

// IsProjectPath reports whether path names a project file.
func IsProjectPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ProjectExt)
}

// Open loads path as a project when it carries the project magic or a
// secure envelope, and as a native screen file otherwise.
func Open(path string, password string) (*Document, error) {
	path = filepath.Clean(path)
	head, err := readHead(path, 64)
	if err != nil {
		return nil, err
	}
	if project.IsProject(head) {
		env, err := project.InspectEnvelope(path)
		if err != nil {
			return nil, err
		}
		p, err := project.LoadWithOptions(path, project.LoadOptions{Password: password})
		if err != nil {
			return nil, err
		}
		img, err := p.Image()
		if err != nil {
			return nil, err
		}
		logging.Logger().Info("opened project", "path", path, "format", img.Format().Name, "layers", len(p.Layers))
		return &Document{Image: img, Path: path, Kind: KindProject, Envelope: env, Metadata: p.Metadata}, nil
	}

	img, err := editor.ReadImage(path)
	if err != nil {
		return nil, err
	}
	logging.Logger().Info("opened screen", "path", path, "format", img.Format().Name)
	return &Document{Image: img, Path: path, Kind: KindNative}, nil
}

// Save writes img to path. Project paths keep the layers; any other
// extension writes the committed native buffer, which must match the
// format the extension names.
func Save(path string, img *editor.Image, opts SaveOptions) (Kind, error) {
	if img == nil {
		return KindNative, errors.New("session: no image to save")
	}
	if IsProjectPath(path) {
		p := project.FromImage(img, opts.Author, opts.Title)
		if err := project.SaveWithOptions(path, p, opts.Project); err != nil {
			return KindProject, err
		}
		logging.Logger().Info("saved project", "path", path, "compressed", opts.Project.Compression, "encrypted", opts.Project.Encryption.Enabled)
		return KindProject, nil
	}
	if ext := filepath.Ext(path); ext != "" {
		d, err := scr.ByExtension(ext)
		if err == nil && d.ID != img.Format().ID {
			return KindNative, fmt.Errorf("session: %s files hold %s images, not %s", ext, d.Name, img.Format().Name)
		}
	}
	if err := img.WriteImage(path); err != nil {
		return KindNative, err
	}
	logging.Logger().Info("saved screen", "path", path, "format", img.Format().Name)
	return KindNative, nil
}

// ExportPNG renders img and writes it as PNG scaled by factor.
func ExportPNG(w io.Writer, img *editor.Image, opts render.Options, factor int) error {
	fb, err := render.RenderScreen(img.Format(), img.Committed(), opts)
	if err != nil {
		return err
	}
	return render.WritePNG(w, fb, factor)
}

// ExportPNGFile is ExportPNG into a file written atomically.
func ExportPNGFile(path string, img *editor.Image, opts render.Options, factor int) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := ExportPNG(f, img, opts, factor); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// DefaultName suggests a file name for saving img.
func DefaultName(img *editor.Image, asProject bool) string {
	if asProject {
		return "untitled" + ProjectExt
	}
	d := img.Format()
	if len(d.Extensions) == 0 {
		return "untitled"
	}
	return "untitled." + d.Extensions[0]
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	got, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:got], nil
}
