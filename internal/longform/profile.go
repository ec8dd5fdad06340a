package longform

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile tunes multi-segment assembly. Zero fields take defaults.
type Profile struct {
	Sections          []string `yaml:"sections"`
	Hosts             Hosts    `yaml:"hosts"`
	SegmentMinWords   int      `yaml:"segment_min_words"`
	SegmentFloorWords int      `yaml:"segment_floor_words"`
	ContextLines      int      `yaml:"context_lines"`
}

// DefaultProfile is the stock four-section layout.
func DefaultProfile() Profile {
	return Profile{
		Sections:          []string{"tactical", "sonic_rumors", "capture", "aftermath"},
		Hosts:             DefaultHosts,
		SegmentMinWords:   400,
		SegmentFloorWords: 200,
		ContextLines:      4,
	}
}

// Normalized fills zero fields from DefaultProfile and validates the result.
func (p Profile) Normalized() (Profile, error) {
	def := DefaultProfile()
	if len(p.Sections) == 0 {
		p.Sections = def.Sections
	}
	if p.Hosts.First == "" && p.Hosts.Second == "" {
		p.Hosts = def.Hosts
	}
	if p.SegmentMinWords == 0 {
		p.SegmentMinWords = def.SegmentMinWords
	}
	if p.SegmentFloorWords == 0 {
		p.SegmentFloorWords = def.SegmentFloorWords
	}
	if p.ContextLines == 0 {
		p.ContextLines = def.ContextLines
	}

	var errs []error
	for i, s := range p.Sections {
		if s == "" {
			errs = append(errs, fmt.Errorf("sections[%d] is empty", i))
		}
	}
	if p.Hosts.First == "" || p.Hosts.Second == "" || p.Hosts.First == p.Hosts.Second {
		errs = append(errs, errors.New("hosts must name two distinct speakers"))
	}
	if p.SegmentMinWords < 0 || p.SegmentFloorWords < 0 || p.ContextLines < 0 {
		errs = append(errs, errors.New("word counts and context_lines must not be negative"))
	}
	if p.SegmentFloorWords > p.SegmentMinWords {
		errs = append(errs, fmt.Errorf("segment_floor_words (%d) exceeds segment_min_words (%d)", p.SegmentFloorWords, p.SegmentMinWords))
	}
	if err := errors.Join(errs...); err != nil {
		return Profile{}, fmt.Errorf("longform: profile: %w", err)
	}
	return p, nil
}

// ParseProfile decodes a YAML profile.
func ParseProfile(data []byte) (Profile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return DefaultProfile(), nil
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("longform: decode profile: %w", err)
	}
	return p.Normalized()
}

// LoadProfile reads a profile file. An empty path yields DefaultProfile.
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("longform: read %s: %w", path, err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return Profile{}, fmt.Errorf("longform: %s: %w", path, err)
	}
	return p, nil
}
