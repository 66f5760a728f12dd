package scr

import (
	"os"
	"path/filepath"
)

// ReadFile loads a native screen file and detects its format.
func ReadFile(path string) (Descriptor, []byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, nil, err
	}
	d, err := Detect(b, path)
	if err != nil {
		return Descriptor{}, nil, err
	}
	return d, b, nil
}

// WriteFile stores data as a native file of format d, replacing path
// atomically.
func WriteFile(path string, d Descriptor, data []byte) error {
	if err := d.CheckSize(data); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
