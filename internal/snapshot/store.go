// Package snapshot keeps parsed HTML snapshots in memory so a client can
// upload a page once and resolve many elements against it.
package snapshot

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/tmplinspect/internal/outline"
	"golang.org/x/net/html"
)

// ErrNotFound is returned for unknown or expired snapshot ids.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one parsed page. The tree is read-only once stored.
type Snapshot struct {
	mu sync.Mutex

	ID          string
	Title       string
	ContentHash string
	Size        int
	CreatedAt   time.Time
	AccessedAt  time.Time

	root    *html.Node
	outline *outline.Outline
}

// New wraps a parsed document.
func New(root *html.Node, title string, raw []byte) *Snapshot {
	now := time.Now()
	return &Snapshot{
		ID:          NewID(),
		Title:       title,
		ContentHash: ContentHashHex(raw),
		Size:        len(raw),
		CreatedAt:   now,
		AccessedAt:  now,
		root:        root,
		outline:     outline.Build(root),
	}
}

// Root returns the parsed document.
func (s *Snapshot) Root() *html.Node { return s.root }

// Outline returns the region index built when the snapshot was created.
func (s *Snapshot) Outline() *outline.Outline { return s.outline }

func (s *Snapshot) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AccessedAt = now
}

func (s *Snapshot) accessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.AccessedAt
}

// Info is a read-only, JSON-safe copy of snapshot metadata.
type Info struct {
	ID          string    `json:"snapshot_id"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash"`
	Size        int       `json:"size"`
	Regions     int       `json:"regions"`
	CreatedAt   time.Time `json:"created_at"`
	AccessedAt  time.Time `json:"accessed_at"`
}

// Info returns a JSON-safe copy of the snapshot metadata.
func (s *Snapshot) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:          s.ID,
		Title:       s.Title,
		ContentHash: s.ContentHash,
		Size:        s.Size,
		Regions:     s.outline.Count(),
		CreatedAt:   s.CreatedAt,
		AccessedAt:  s.AccessedAt,
	}
}

// Store is a thread-safe in-memory snapshot registry with TTL eviction.
type Store struct {
	mu        sync.Mutex
	snapshots map[string]*Snapshot
	ttl       time.Duration
	max       int
	now       func() time.Time
}

// NewStore creates a store. maxSnapshots <= 0 means unbounded.
func NewStore(ttl time.Duration, maxSnapshots int) *Store {
	return &Store{
		snapshots: make(map[string]*Snapshot),
		ttl:       ttl,
		max:       maxSnapshots,
		now:       time.Now,
	}
}

// Put stores s, evicting the least recently accessed snapshot when the
// store is full.
func (st *Store) Put(s *Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.snapshots[s.ID]; !exists && st.max > 0 && len(st.snapshots) >= st.max {
		st.evictOldestLocked()
	}
	st.snapshots[s.ID] = s
}

// Get returns the snapshot and marks it as accessed.
func (st *Store) Get(id string) (*Snapshot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.snapshots[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	now := st.now()
	if st.ttl > 0 && now.Sub(s.accessedAt()) > st.ttl {
		delete(st.snapshots, id)
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	s.touch(now)
	return s, nil
}

// Delete removes a snapshot. It reports whether one was present.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.snapshots[id]
	delete(st.snapshots, id)
	return ok
}

// Len returns the number of stored snapshots.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.snapshots)
}

// Cleanup removes expired snapshots and returns how many were removed.
func (st *Store) Cleanup() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ttl <= 0 {
		return 0
	}
	now := st.now()
	removed := 0
	for id, s := range st.snapshots {
		if now.Sub(s.accessedAt()) > st.ttl {
			delete(st.snapshots, id)
			removed++
		}
	}
	return removed
}

func (st *Store) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, s := range st.snapshots {
		at := s.accessedAt()
		if oldestID == "" || at.Before(oldest) {
			oldestID, oldest = id, at
		}
	}
	if oldestID != "" {
		delete(st.snapshots, oldestID)
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
