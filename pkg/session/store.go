package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// FileStore persists one JSON document per session id under a directory.
// A failed or corrupt read is reported as "no prior state", never an error;
// the cost of silently restarting a session is accepted over failing a turn.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates the directory if absent and returns the store.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(sessionID string) string {
	// Session ids come from callers; keep them from escaping the directory.
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(sessionID)
	return filepath.Join(s.dir, safe+".json")
}

// Save overwrites the whole session document.
func (s *FileStore) Save(cc *ConversationContext) error {
	data, err := json.MarshalIndent(cc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", cc.SessionID, err)
	}
	if err := os.WriteFile(s.path(cc.SessionID), data, 0o600); err != nil {
		return fmt.Errorf("write session %s: %w", cc.SessionID, err)
	}
	return nil
}

// Load returns the stored context, or nil when the file is absent or fails
// to parse. Corruption is treated identically to absence.
func (s *FileStore) Load(sessionID string) (*ConversationContext, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("session read failed, treating as absent",
				zap.String("session_id", sessionID), zap.Error(err))
		}
		return nil, nil
	}
	cc := &ConversationContext{}
	if err := json.Unmarshal(data, cc); err != nil {
		s.logger.Warn("session document corrupt, treating as absent",
			zap.String("session_id", sessionID), zap.Error(err))
		return nil, nil
	}
	return cc, nil
}

// LoadOrCreate loads the session or creates a fresh context for the id.
func (s *FileStore) LoadOrCreate(sessionID string) (*ConversationContext, error) {
	cc, err := s.Load(sessionID)
	if err != nil {
		return nil, err
	}
	if cc == nil {
		cc = NewConversationContext(sessionID)
	}
	return cc, nil
}

// Delete removes the session document. Missing files are a no-op.
func (s *FileStore) Delete(sessionID string) error {
	err := os.Remove(s.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// List returns the stored session ids, sorted.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
