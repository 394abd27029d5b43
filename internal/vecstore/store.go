// Package vecstore persists one vector index per chat session under the
// session's upload folder. The index directory name is kept as "faiss_index"
// for compatibility with the documented filesystem layout.
package vecstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	indexDirName  = "faiss_index"
	indexFileName = "index.json"
	lockFileName  = "faiss_index.lock"
)

// ErrIndexNotFound is returned by Load when the session has no persisted index.
var ErrIndexNotFound = errors.New("session index not found")

// Store resolves and mutates per-session index namespaces on disk. The
// load-merge-save sequence during upload must run under Lock; two concurrent
// writers would otherwise silently drop one merge.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// SessionDir is the filesystem namespace for a session: raw uploads plus the
// index subdirectory.
func (s *Store) SessionDir(sessionID string) string {
	return filepath.Join(s.root, sessionID)
}

func (s *Store) indexDir(sessionID string) string {
	return filepath.Join(s.SessionDir(sessionID), indexDirName)
}

func (s *Store) indexPath(sessionID string) string {
	return filepath.Join(s.indexDir(sessionID), indexFileName)
}

// IndexExists reports whether the session has a persisted index. This is the
// retrieval router's branch condition.
func (s *Store) IndexExists(sessionID string) bool {
	info, err := os.Stat(s.indexDir(sessionID))
	return err == nil && info.IsDir()
}

func (s *Store) Load(sessionID string) (*Index, error) {
	raw, err := os.ReadFile(s.indexPath(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("read session index failed: %w", err)
	}
	var ix Index
	if err := json.Unmarshal(raw, &ix); err != nil {
		return nil, fmt.Errorf("decode session index failed: %w", err)
	}
	return &ix, nil
}

// Save writes the index atomically: temp file in the same directory, then
// rename over the old one.
func (s *Store) Save(sessionID string, ix *Index) error {
	dir := s.indexDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir failed: %w", err)
	}

	payload, err := json.Marshal(ix)
	if err != nil {
		return fmt.Errorf("encode session index failed: %w", err)
	}

	tmp, err := os.CreateTemp(dir, indexFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp index file failed: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp index file failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp index file failed: %w", err)
	}
	if err := os.Rename(tmpName, s.indexPath(sessionID)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace session index failed: %w", err)
	}
	return nil
}

// DeleteNamespace removes the whole session folder: raw uploads, index, lock.
func (s *Store) DeleteNamespace(sessionID string) error {
	if err := os.RemoveAll(s.SessionDir(sessionID)); err != nil {
		return fmt.Errorf("remove session namespace failed: %w", err)
	}
	return nil
}

// Lock takes the per-session advisory lock, blocking until acquired. The
// caller must Unlock.
func (s *Store) Lock(sessionID string) (*flock.Flock, error) {
	if err := os.MkdirAll(s.SessionDir(sessionID), 0o755); err != nil {
		return nil, fmt.Errorf("create session dir failed: %w", err)
	}
	fl := flock.New(filepath.Join(s.SessionDir(sessionID), lockFileName))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquire session index lock failed: %w", err)
	}
	return fl, nil
}
