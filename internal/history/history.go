// Package history persists chat transcripts on disk, one JSON record per
// save, keyed like chat_history_<unix millis>.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Exchange is one user message and the model's answer.
type Exchange struct {
	User      string    `json:"user"`
	AI        string    `json:"ai"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is a saved transcript for one page.
type Record struct {
	Key       string     `json:"-"`
	PageURL   string     `json:"pageUrl"`
	PageTitle string     `json:"pageTitle"`
	History   []Exchange `json:"history"`
	Timestamp time.Time  `json:"timestamp"`
}

const keyPrefix = "chat_history_"

// Store keeps records under Dir.
type Store struct {
	Dir string
	// StrictPerms, when true, enforces 0700 on the directory and 0600 on
	// files.
	StrictPerms bool

	now func() time.Time
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Store) ensureDir() error {
	if s == nil || s.Dir == "" {
		return errors.New("history dir not configured")
	}
	perm := os.FileMode(0o755)
	if s.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(s.Dir, perm); err != nil {
		return err
	}
	// If directory already existed and StrictPerms is on, tighten perms
	if s.StrictPerms {
		if info, err := os.Stat(s.Dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(s.Dir, 0o700)
		}
	}
	return nil
}

// Save writes rec under a fresh key and returns it. Unknown URL and title
// are stored as "unknown".
func (s *Store) Save(_ context.Context, rec Record) (string, error) {
	if err := s.ensureDir(); err != nil {
		return "", err
	}
	now := s.clock()
	if rec.PageURL == "" {
		rec.PageURL = "unknown"
	}
	if rec.PageTitle == "" {
		rec.PageTitle = "unknown"
	}
	if rec.History == nil {
		rec.History = []Exchange{}
	}
	rec.Timestamp = now.UTC()

	key := fmt.Sprintf("%s%d", keyPrefix, now.UnixMilli())
	// keys must not collide within the same millisecond
	for i := 1; fileExists(s.pathFor(key)); i++ {
		key = fmt.Sprintf("%s%d_%d", keyPrefix, now.UnixMilli(), i)
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode history: %w", err)
	}
	mode := os.FileMode(0o644)
	if s.StrictPerms {
		mode = 0o600
	}
	if err := os.WriteFile(s.pathFor(key), b, mode); err != nil {
		return "", err
	}
	return key, nil
}

// List returns every readable record, newest first. Malformed files are
// skipped.
func (s *Store) List(_ context.Context) ([]Record, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}
	out := []Record{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, keyPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.Dir, name))
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			continue
		}
		rec.Key = strings.TrimSuffix(name, ".json")
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Latest returns the newest record saved for pageURL.
func (s *Store) Latest(ctx context.Context, pageURL string) (Record, bool, error) {
	all, err := s.List(ctx)
	if err != nil {
		return Record{}, false, err
	}
	for _, r := range all {
		if r.PageURL == pageURL {
			return r, true, nil
		}
	}
	return Record{}, false, nil
}

// PurgeByAge removes records older than maxAge based on file modification
// time.
func (s *Store) PurgeByAge(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := s.clock()
	removed := 0
	err := filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasPrefix(d.Name(), keyPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if now.Sub(info.ModTime()) <= maxAge {
			return nil
		}
		removed++
		_ = os.Remove(path)
		return nil
	})
	return removed, err
}

func (s *Store) pathFor(key string) string {
	return filepath.Join(s.Dir, key+".json")
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
