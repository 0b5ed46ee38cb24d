package streams

import (
	"encoding/json"
	"fmt"
	"os"
)

// State holds per-stream bookmarks, persisted between runs by whatever
// orchestrates the tap.
type State struct {
	Bookmarks map[string]map[string]interface{} `json:"bookmarks,omitempty"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{Bookmarks: make(map[string]map[string]interface{})}
}

// LoadState reads a state file. An empty path yields an empty state.
func LoadState(path string) (*State, error) {
	if path == "" {
		return NewState(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	state := NewState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	if state.Bookmarks == nil {
		state.Bookmarks = make(map[string]map[string]interface{})
	}

	return state, nil
}

// Bookmark returns a stream's bookmark value, if present.
func (s *State) Bookmark(stream, key string) (interface{}, bool) {
	marks, ok := s.Bookmarks[stream]
	if !ok {
		return nil, false
	}
	value, ok := marks[key]
	return value, ok
}

// StringBookmark returns a stream's bookmark as a string, if present and a
// string.
func (s *State) StringBookmark(stream, key string) (string, bool) {
	value, ok := s.Bookmark(stream, key)
	if !ok {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}

// SetBookmark records a stream's bookmark value.
func (s *State) SetBookmark(stream, key string, value interface{}) {
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]map[string]interface{})
	}
	marks, ok := s.Bookmarks[stream]
	if !ok {
		marks = make(map[string]interface{})
		s.Bookmarks[stream] = marks
	}
	marks[key] = value
}
