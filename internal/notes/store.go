package notes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Note is a single saved note.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps notes in a single JSON file. Writes rewrite the whole
// file; the data set is small enough that this is fine.
type Store struct {
	mu    sync.Mutex
	path  string
	notes []Note
}

// Open loads the store at path, creating an empty one when the file
// does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read notes file: %w", err)
	}

	if err := json.Unmarshal(data, &s.notes); err != nil {
		return nil, fmt.Errorf("failed to parse notes file: %w", err)
	}
	return s, nil
}

// Add appends a note and persists the store.
func (s *Store) Add(text string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note := Note{
		ID:        uuid.NewString()[:8],
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	s.notes = append(s.notes, note)

	if err := s.save(); err != nil {
		s.notes = s.notes[:len(s.notes)-1]
		return Note{}, err
	}
	return note, nil
}

// Get returns the note with the given ID.
func (s *Store) Get(id string) (Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notes {
		if n.ID == id {
			return n, true
		}
	}
	return Note{}, false
}

// Delete removes the note with the given ID and persists the store.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notes {
		if n.ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			return true, s.save()
		}
	}
	return false, nil
}

// List returns all notes, newest first.
func (s *Store) List() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Note, len(s.notes))
	copy(out, s.notes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Search returns notes whose text contains the query, case-insensitive.
func (s *Store) Search(query string) []Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	lowered := strings.ToLower(query)
	var out []Note
	for _, n := range s.notes {
		if strings.Contains(strings.ToLower(n.Text), lowered) {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.notes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode notes: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create notes directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write notes: %w", err)
	}
	return os.Rename(tmp, s.path)
}
