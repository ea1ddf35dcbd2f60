package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileObjects keeps the ledger object as a file under a local directory,
// the bucket mapping to the directory and the key to the file name. Put
// writes to a temp file in the same directory and renames it into place,
// so a crash mid-write never leaves a truncated ledger.
type FileObjects struct {
	path string
}

var _ ObjectStore = (*FileObjects)(nil)

func NewFileObjects(dir, name string) *FileObjects {
	return &FileObjects{path: filepath.Join(dir, name)}
}

func (f *FileObjects) Get(_ context.Context) ([]byte, error) {
	body, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return body, nil
}

func (f *FileObjects) Put(_ context.Context, body []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
