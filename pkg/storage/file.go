package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"sort"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/sw33tLie/galshelf/pkg/logging"
)

// CorruptSuffix is appended to a preference file that failed to decode.
const CorruptSuffix = ".corrupt"

// FileStore keeps all preferences in one JSON object. Each write replaces
// the file atomically.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// OpenFile loads the JSON object at path. A file that does not decode is
// moved aside to path+".corrupt" and the store starts empty.
func OpenFile(path string, log logging.Logger) (*FileStore, error) {
	log = logging.OrNop(log)
	s := &FileStore{path: path, data: map[string]string{}}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		s.data = map[string]string{}
		aside := path + CorruptSuffix
		if rerr := os.Rename(path, aside); rerr != nil {
			log.Warnf("Ignoring corrupt preferences in %s (%v); could not move it aside: %v", path, err, rerr)
		} else {
			log.Warnf("Ignoring corrupt preferences in %s (%v); moved to %s", path, err, aside)
		}
	}
	return s, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Location() string { return s.path }

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.data[key]
	s.data[key] = value
	if err := s.flush(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.data[key]
	if !had {
		return nil
	}
	delete(s.data, key)
	if err := s.flush(); err != nil {
		s.data[key] = prev
		return err
	}
	return nil
}

func (s *FileStore) Keys(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (s *FileStore) flush() error {
	buf, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(s.path, bytes.NewReader(buf))
}
