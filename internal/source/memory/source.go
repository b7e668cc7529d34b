// Package memory serves block-list resources from memory for tests and development.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Source holds named resources in memory.
type Source struct {
	mu    sync.RWMutex
	data  map[string][]byte
	opens map[string]int
}

// New creates an in-memory source.
func New() *Source {
	return &Source{
		data:  make(map[string][]byte),
		opens: make(map[string]int),
	}
}

// Put stores content under name, replacing any previous value.
func (s *Source) Put(name, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = []byte(content)
}

// PutLines stores one entry per line under name.
func (s *Source) PutLines(name string, lines ...string) {
	s.Put(name, strings.Join(lines, "\n"))
}

// Delete removes name.
func (s *Source) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
}

// Opens reports how many times name has been opened.
func (s *Source) Opens(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opens[name]
}

// Open returns a reader over a copy of the stored content.
func (s *Source) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens[name]++
	content, ok := s.data[name]
	if !ok {
		return nil, fmt.Errorf("memory://%s: %w", name, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), content...))), nil
}
