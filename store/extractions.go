package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stefanpietrusky/IEC/types"
)

// ErrNotFound is returned when a named extraction does not exist.
var ErrNotFound = errors.New("not found")

// ExtractionStore keeps one plain-text blob per extracted source in a single
// directory. The filename doubles as the SourceId used for citation and for
// index metadata, so a blob must stay readable as long as it is indexed.
type ExtractionStore struct {
	dir string
}

func NewExtractionStore(dir string) (*ExtractionStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create data dir %s: %w", dir, err)
	}
	return &ExtractionStore{dir: dir}, nil
}

// Save writes content to a new timestamped extraction file and returns its name.
func (s *ExtractionStore) Save(content string) (string, error) {
	name := fmt.Sprintf("extraction_%s.txt", time.Now().Format("20060102_150405"))
	if err := os.WriteFile(filepath.Join(s.dir, name), []byte(content), 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// List returns all extraction files, newest first, with their modification time.
func (s *ExtractionStore) List() ([]types.ExtractionInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	files := make([]types.ExtractionInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, types.ExtractionInfo{
			Name: e.Name(),
			Date: info.ModTime().Format("2006-01-02 15:04:05"),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name > files[j].Name })
	return files, nil
}

// Get reads one extraction by name.
func (s *ExtractionStore) Get(name string) (string, error) {
	path, err := s.safePath(name)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Delete removes one extraction by name.
func (s *ExtractionStore) Delete(name string) error {
	path, err := s.safePath(name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// All loads every stored extraction keyed by filename, the input shape the
// index rebuild expects.
func (s *ExtractionStore) All() (map[string]string, error) {
	files, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(files))
	for _, f := range files {
		content, err := s.Get(f.Name)
		if err != nil {
			return nil, err
		}
		out[f.Name] = content
	}
	return out, nil
}

// safePath rejects names that try to escape the data directory.
func (s *ExtractionStore) safePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, name), nil
}
