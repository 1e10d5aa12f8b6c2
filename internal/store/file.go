package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// File is a read-write backend over a single JSON file.
type File struct {
	path string
}

// NewFile returns a File backend for path. The file is not touched until
// EnsureFile, Load or Save is called.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Name() string { return "file" }

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// EnsureFile creates the backing file containing "{}" if it does not exist.
func (f *File) EnsureFile() error {
	_, err := os.Stat(f.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file store: stat %q: %w", f.path, err)
	}
	if err := os.WriteFile(f.path, []byte("{}"), 0o644); err != nil {
		return fmt.Errorf("file store: create %q: %w", f.path, err)
	}
	return nil
}

// Load reads and decodes the file. Empty or whitespace-only content decodes
// to an empty set.
func (f *File) Load(_ context.Context) (Records, error) {
	if err := f.EnsureFile(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("file store: read %q: %w", f.path, err)
	}
	return decodeRecords(data)
}

// Save overwrites the file with recs.
func (f *File) Save(_ context.Context, recs Records) error {
	if err := f.EnsureFile(); err != nil {
		return err
	}
	data, err := encodeRecords(recs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("file store: write %q: %w", f.path, err)
	}
	return nil
}

// decodeRecords parses the flat id → expiration JSON object.
func decodeRecords(data []byte) (Records, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Records{}, nil
	}
	recs := Records{}
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return recs, nil
}

func encodeRecords(recs Records) ([]byte, error) {
	if recs == nil {
		recs = Records{}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return data, nil
}
