// Package state keeps the only cross-run memory of the scanner: which
// entries were already seen and when the last digest notification went out.
// Everything lives in a single JSON file loaded at run start and persisted
// at run end.
package state

import (
	"crypto/sha1" //nolint:gosec // fingerprints need stability, not collision resistance against attackers
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
)

// Meta is the metadata snapshot stored with a seen record
type Meta struct {
	Date     string `json:"date,omitempty"`
	SourceID string `json:"source_id,omitempty"`
	Title    string `json:"title,omitempty"`
	Link     string `json:"link,omitempty"`
	Label    string `json:"label,omitempty"`
	Score    int    `json:"score,omitempty"`
}

// Record is a single seen entry
type Record struct {
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
	Meta
}

// Store holds dedup records and the notification cooldown. Safe for
// concurrent use, all mutations go through the mutex.
type Store struct {
	mu   sync.Mutex
	data document
	now  func() time.Time // injectable for tests
}

// document is the on-disk shape
type document struct {
	Version int               `json:"version"`
	Seen    map[string]Record `json:"seen"`
	Notify  struct {
		LastSentDate string `json:"last_sent_date,omitempty"`
	} `json:"notify"`
}

// Fingerprint returns the stable dedup key for an entry: SHA-1 over
// "sourceID::x" where x is the first non-empty of guid, link, title.
func Fingerprint(sourceID, guid, link, title string) string {
	id := guid
	if id == "" {
		id = link
	}
	if id == "" {
		id = title
	}
	sum := sha1.Sum([]byte(sourceID + "::" + id)) //nolint:gosec // see package comment on sha1
	return hex.EncodeToString(sum[:])
}

// Load reads the state file. A missing or unreadable file is not an error,
// the scanner just starts with fresh state.
func Load(path string) *Store {
	st := &Store{now: time.Now}
	st.data.Version = 1
	st.data.Seen = map[string]Record{}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from CLI flag
	if err != nil {
		if !os.IsNotExist(err) {
			lgr.Printf("[WARN] can't read state file %s, starting fresh: %v", path, err)
		}
		return st
	}

	if err := json.Unmarshal(data, &st.data); err != nil {
		lgr.Printf("[WARN] corrupt state file %s, starting fresh: %v", path, err)
		st.data = document{Version: 1, Seen: map[string]Record{}}
		return st
	}
	if st.data.Seen == nil {
		st.data.Seen = map[string]Record{}
	}
	if st.data.Version == 0 {
		st.data.Version = 1
	}
	return st
}

// Save persists the state file
func (s *Store) Save(path string) error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write state file %s: %w", path, err)
	}
	return nil
}

// IsSeen reports whether a fingerprint has a record, regardless of its age
func (s *Store) IsSeen(fp string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data.Seen[fp]
	return ok
}

// MarkSeen upserts a record for the fingerprint. First sighting sets
// first_seen, every call refreshes last_seen and the metadata snapshot.
func (s *Store) MarkSeen(fp string, meta Meta) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Format(time.RFC3339)
	rec, ok := s.data.Seen[fp]
	if !ok {
		rec.FirstSeen = now
	}
	rec.LastSeen = now
	rec.Meta = meta
	s.data.Seen[fp] = rec
}

// Touch refreshes last_seen on a re-sighted fingerprint without replacing
// its metadata snapshot. No-op for unknown fingerprints.
func (s *Store) Touch(fp string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data.Seen[fp]
	if !ok {
		return
	}
	rec.LastSeen = s.now().UTC().Format(time.RFC3339)
	s.data.Seen[fp] = rec
}

// Prune removes records whose last_seen is strictly older than keepDays ago
// and returns how many were dropped. Records with missing or malformed
// timestamps are kept.
func (s *Store) Prune(keepDays int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.Seen == nil {
		s.data.Seen = map[string]Record{}
		return 0
	}

	cutoff := s.now().UTC().AddDate(0, 0, -keepDays)
	removed := 0
	for fp, rec := range s.data.Seen {
		if rec.LastSeen == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, rec.LastSeen)
		if err != nil {
			continue
		}
		if ts.Before(cutoff) {
			delete(s.data.Seen, fp)
			removed++
		}
	}
	return removed
}

// LastSentDate returns the calendar date of the last notification, empty if
// none was ever sent
func (s *Store) LastSentDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Notify.LastSentDate
}

// SetLastSentDate records the calendar date of a delivered notification
func (s *Store) SetLastSentDate(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Notify.LastSentDate = date
}

// SeenCount returns the number of dedup records
func (s *Store) SeenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.Seen)
}
