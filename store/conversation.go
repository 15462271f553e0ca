package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/stefanpietrusky/IEC/types"
)

// ConversationStore keeps one directory per conversation holding an
// append-only log.json and any generated audio artifacts. Entries are never
// rewritten or removed by the pipeline.
type ConversationStore struct {
	mu   sync.Mutex
	root string
}

func NewConversationStore(root string) (*ConversationStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create conversation root %s: %w", root, err)
	}
	return &ConversationStore{root: root}, nil
}

// AppendLog adds one entry to the conversation's log, creating the
// conversation directory and log on first use.
func (s *ConversationStore) AppendLog(convID string, entry types.LogEntry) error {
	dir, err := s.convDir(convID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	logPath := filepath.Join(dir, "log.json")

	var log []types.LogEntry
	if b, err := os.ReadFile(logPath); err == nil {
		if err := json.Unmarshal(b, &log); err != nil {
			return fmt.Errorf("corrupt conversation log %s: %w", logPath, err)
		}
	}
	log = append(log, entry)

	b, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(logPath, b, 0o644)
}

// ReadLog returns all entries of one conversation, oldest first.
func (s *ConversationStore) ReadLog(convID string) ([]types.LogEntry, error) {
	dir, err := s.convDir(convID)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(dir, "log.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var log []types.LogEntry
	if err := json.Unmarshal(b, &log); err != nil {
		return nil, err
	}
	return log, nil
}

// AudioPath resolves an audio artifact inside a conversation directory,
// creating the directory if needed.
func (s *ConversationStore) AudioPath(convID, filename string) (string, error) {
	dir, err := s.convDir(convID)
	if err != nil {
		return "", err
	}
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", ErrNotFound
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

func (s *ConversationStore) convDir(convID string) (string, error) {
	if convID == "" || convID != filepath.Base(convID) || strings.HasPrefix(convID, ".") {
		return "", ErrNotFound
	}
	return filepath.Join(s.root, convID), nil
}
