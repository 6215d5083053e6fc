package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"tashkeelcards/internal/domain"
	"tashkeelcards/internal/ports"
)

// FileStore keeps the whole result set in one JSON document that is
// rewritten atomically on every save.
type FileStore struct {
	path string
}

var _ ports.ResultStore = (*FileStore)(nil)

// NewFileStore targets the JSON document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads the result set. A missing file yields an empty set.
func (s *FileStore) Load(_ context.Context) (*domain.ResultSet, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewResultSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results %s: %w", s.path, err)
	}

	results := domain.NewResultSet()
	if len(bytes.TrimSpace(raw)) == 0 {
		return results, nil
	}
	if err := json.Unmarshal(raw, results); err != nil {
		return nil, fmt.Errorf("decode results %s: %w", s.path, err)
	}
	return results, nil
}

// Save rewrites the whole set. The latest entry is already part of results.
func (s *FileStore) Save(ctx context.Context, results *domain.ResultSet, _ domain.ResultEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeJSON(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write results %s: %w", s.path, err)
	}
	return nil
}

// EncodeJSON renders v with four-space indentation and without escaping HTML
// or non-ASCII characters.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFileAtomic writes data to a temp file next to path, fsyncs it and
// renames it over path, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return fsyncDir(dir)
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
