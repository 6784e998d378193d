package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store seeded with the canonical headers.
// It backs local development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	sheets map[string][][]string
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{sheets: make(map[string][][]string, len(Headers))}
	for name, header := range Headers {
		s.sheets[name] = [][]string{append([]string(nil), header...)}
	}
	return s
}

func (s *MemoryStore) GetRows(_ context.Context, sheet string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSheet, sheet)
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (s *MemoryStore) AppendRow(_ context.Context, sheet string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSheet, sheet)
	}
	s.sheets[sheet] = append(rows, append([]string(nil), values...))
	return nil
}

func (s *MemoryStore) UpdateRow(_ context.Context, sheet string, rowIndex int, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.sheets[sheet]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSheet, sheet)
	}
	if rowIndex < 1 || rowIndex > len(rows) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, rowIndex)
	}
	rows[rowIndex-1] = append([]string(nil), values...)
	return nil
}

// Len returns the number of data rows below the header.
func (s *MemoryStore) Len(sheet string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n := len(s.sheets[sheet]); n > 0 {
		return n - 1
	}
	return 0
}
