// Package storage provides the optional cross-run suppression
// collaborator: a JSON file of previously emitted links with a TTL. The
// dedup algorithm itself stays stateless; this store is injected from
// the outside when repeat suppression between runs is wanted.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// EmittedLink records one link that appeared in an earlier run's output.
type EmittedLink struct {
	Link      string    `json:"link"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	EmittedAt time.Time `json:"emitted_at"`
}

// SeenStore manages emitted links in a JSON file.
type SeenStore struct {
	filePath string
	ttl      time.Duration
	links    map[string]EmittedLink
	mu       sync.RWMutex
}

// NewSeenStore creates a store backed by filePath; entries older than
// ttl are discarded on load and cleanup.
func NewSeenStore(filePath string, ttl time.Duration) *SeenStore {
	return &SeenStore{
		filePath: filePath,
		ttl:      ttl,
		links:    make(map[string]EmittedLink),
	}
}

// Load reads the existing store from disk, dropping expired entries. A
// missing file is not an error: the store starts empty.
func (s *SeenStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read seen store: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []EmittedLink
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("unmarshal seen store: %w", err)
	}

	cutoff := time.Now().Add(-s.ttl)
	for _, e := range entries {
		if e.EmittedAt.After(cutoff) {
			s.links[e.Link] = e
		}
	}
	return nil
}

// Save writes the current store to disk.
func (s *SeenStore) Save() error {
	s.mu.RLock()
	entries := make([]EmittedLink, 0, len(s.links))
	for _, e := range s.links {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal seen store: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return fmt.Errorf("write seen store: %w", err)
	}
	return nil
}

// Seen reports whether the link was emitted within the TTL.
func (s *SeenStore) Seen(link string) bool {
	if link == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.links[link]
	if !ok {
		return false
	}
	return e.EmittedAt.After(time.Now().Add(-s.ttl))
}

// Mark records a link as emitted now.
func (s *SeenStore) Mark(link, title, source string) {
	if link == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.links[link] = EmittedLink{
		Link:      link,
		Title:     title,
		Source:    source,
		EmittedAt: time.Now(),
	}
}

// Cleanup removes expired entries from memory.
func (s *SeenStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl)
	for link, e := range s.links {
		if e.EmittedAt.Before(cutoff) {
			delete(s.links, link)
		}
	}
}

// Len returns the number of tracked links.
func (s *SeenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.links)
}
