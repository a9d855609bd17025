// Package storage is the durable key/value store backing session credentials
// and convenience settings across client restarts (the analog of the browser
// profile storage the web client used).
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Well-known keys.
const (
	KeyToken      = "token"
	KeyPlayerID   = "player_id"
	KeyPlayerName = "player_name"
	KeyRobotID    = "selected_robot_id"
	KeyWeaponID   = "selected_weapon_id"
)

type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(keys ...string) error
}

// FileStore persists the map as a single JSON file, rewritten on every change.
// The value set is tiny (five short strings) so this is deliberately simple.
type FileStore struct {
	path   string
	values map[string]string
}

func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, values: map[string]string{}}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "open session store")
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		// A corrupt store is not fatal; start fresh.
		s.values = map[string]string{}
	}
	return s, nil
}

func (s *FileStore) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok && v != ""
}

func (s *FileStore) Set(key, value string) error {
	s.values[key] = value
	return s.flush()
}

func (s *FileStore) Delete(keys ...string) error {
	for _, k := range keys {
		delete(s.values, k)
	}
	return s.flush()
}

func (s *FileStore) flush() error {
	data, err := json.Marshal(s.values)
	if err != nil {
		return errors.Wrap(err, "marshal session store")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "create session store dir")
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return errors.Wrap(err, "write session store")
	}
	return nil
}

// MemStore is the in-memory implementation used by tests. Unlike FileStore it
// is locked, since tests inspect it concurrently with the dispatch loop.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMem() *MemStore {
	return &MemStore{values: map[string]string{}}
}

func (s *MemStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok && v != ""
}

func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}
