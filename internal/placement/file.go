package placement

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/holdlight/internal/board"
)

// LayoutData is the on-disk description of one board layout.
type LayoutData struct {
	Family   board.Family `yaml:"family"`
	LayoutID int          `yaml:"layout_id"`
	Name     string       `yaml:"name"`
	Holds    []board.Hold `yaml:"holds"`
	Sizes    []SizeData   `yaml:"sizes"`
}

// SizeData holds the LED placements of one product size.
type SizeData struct {
	SizeID     int         `yaml:"size_id"`
	Placements map[int]int `yaml:"placements"`
}

type layoutFile struct {
	Layouts []LayoutData `yaml:"layouts"`
}

// FileStore serves placements and holds from a YAML layouts file loaded
// into memory.
type FileStore struct {
	layouts []LayoutData
}

// LoadFile reads a layouts file.
func LoadFile(path string) (*FileStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layouts file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile parses layouts YAML.
func ParseFile(data []byte) (*FileStore, error) {
	var f layoutFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing layouts file: %w", err)
	}
	for i, l := range f.Layouts {
		if _, err := board.ParseFamily(string(l.Family)); err != nil {
			return nil, fmt.Errorf("layouts[%d]: %w", i, err)
		}
	}
	return &FileStore{layouts: f.Layouts}, nil
}

// Layouts returns every layout in the file.
func (s *FileStore) Layouts() []LayoutData {
	return s.layouts
}

func (s *FileStore) layout(family board.Family, layoutID int) (LayoutData, bool) {
	for _, l := range s.layouts {
		if l.Family == family && l.LayoutID == layoutID {
			return l, true
		}
	}
	return LayoutData{}, false
}

// Fetch implements Fetcher.
func (s *FileStore) Fetch(_ context.Context, key Key) (Map, error) {
	l, ok := s.layout(key.Family, key.LayoutID)
	if !ok {
		return nil, nil
	}
	for _, size := range l.Sizes {
		if size.SizeID == key.SizeID && len(size.Placements) > 0 {
			out := make(Map, len(size.Placements))
			for hold, led := range size.Placements {
				out[hold] = led
			}
			return out, nil
		}
	}
	return nil, nil
}

// Holds implements HoldSource.
func (s *FileStore) Holds(_ context.Context, family board.Family, layoutID int) ([]board.Hold, error) {
	l, ok := s.layout(family, layoutID)
	if !ok {
		return nil, fmt.Errorf("placement: layout %s/%d: %w", family, layoutID, ErrNotFound)
	}
	return l.Holds, nil
}

var (
	_ Fetcher    = (*FileStore)(nil)
	_ HoldSource = (*FileStore)(nil)
)
