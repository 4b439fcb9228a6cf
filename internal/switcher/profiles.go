package switcher

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
)

var (
	// ErrProfileNotFound reports an unknown profile ID.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileExists reports a duplicate profile ID on add.
	ErrProfileExists = errors.New("profile already exists")
)

// Profile is one switchable provider preset: a base URL plus credential
// and optional model pins. Optional fields use the empty string for
// absent.
type Profile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	BaseURL        string `json:"base_url"`
	AuthToken      string `json:"auth_token,omitempty"`
	APIKey         string `json:"api_key,omitempty"`
	Model          string `json:"model,omitempty"`
	SmallFastModel string `json:"small_fast_model,omitempty"`
}

// normalize folds whitespace-only optional fields to absent. Values with
// content keep their original bytes.
func (p *Profile) normalize() {
	p.AuthToken = normalizeOptional(p.AuthToken)
	p.APIKey = normalizeOptional(p.APIKey)
	p.Model = normalizeOptional(p.Model)
	p.SmallFastModel = normalizeOptional(p.SmallFastModel)
}

func normalizeOptional(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return value
}

// ProfileStore keeps the profile presets in a flat JSON file.
type ProfileStore struct {
	path string
	mu   sync.Mutex
}

// NewProfileStore builds a profile store over the given file path.
func NewProfileStore(path string) *ProfileStore {
	return &ProfileStore{path: path}
}

// List returns all presets in file order.
func (p *ProfileStore) List() ([]Profile, error) {
	if p == nil || p.path == "" {
		return nil, fmt.Errorf("switcher: profile store not configured")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked()
}

// Get returns the preset with the given ID.
func (p *ProfileStore) Get(id string) (*Profile, error) {
	profiles, err := p.List()
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if profiles[i].ID == id {
			return &profiles[i], nil
		}
	}
	return nil, fmt.Errorf("switcher: profile %s: %w", id, ErrProfileNotFound)
}

// Add appends a new preset. Duplicate IDs are rejected.
func (p *ProfileStore) Add(profile *Profile) error {
	if p == nil || p.path == "" {
		return fmt.Errorf("switcher: profile store not configured")
	}
	if profile == nil {
		return fmt.Errorf("switcher: nil profile")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	profiles, err := p.loadLocked()
	if err != nil {
		return err
	}
	for _, existing := range profiles {
		if existing.ID == profile.ID {
			return fmt.Errorf("switcher: profile %s: %w", profile.ID, ErrProfileExists)
		}
	}
	next := *profile
	next.normalize()
	return p.saveLocked(append(profiles, next))
}

// Update replaces the preset with the same ID.
func (p *ProfileStore) Update(profile *Profile) error {
	if p == nil || p.path == "" {
		return fmt.Errorf("switcher: profile store not configured")
	}
	if profile == nil {
		return fmt.Errorf("switcher: nil profile")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	profiles, err := p.loadLocked()
	if err != nil {
		return err
	}
	for i := range profiles {
		if profiles[i].ID == profile.ID {
			next := *profile
			next.normalize()
			profiles[i] = next
			return p.saveLocked(profiles)
		}
	}
	return fmt.Errorf("switcher: profile %s: %w", profile.ID, ErrProfileNotFound)
}

// Delete removes the preset with the given ID.
func (p *ProfileStore) Delete(id string) error {
	if p == nil || p.path == "" {
		return fmt.Errorf("switcher: profile store not configured")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	profiles, err := p.loadLocked()
	if err != nil {
		return err
	}
	for i := range profiles {
		if profiles[i].ID == id {
			return p.saveLocked(append(profiles[:i], profiles[i+1:]...))
		}
	}
	return fmt.Errorf("switcher: profile %s: %w", id, ErrProfileNotFound)
}

func (p *ProfileStore) loadLocked() ([]Profile, error) {
	raw, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("switcher: read profiles: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []Profile{}, nil
	}
	var profiles []Profile
	if errDecode := json.Unmarshal(raw, &profiles); errDecode != nil {
		return nil, fmt.Errorf("switcher: parse profiles: %w", errDecode)
	}
	for i := range profiles {
		profiles[i].normalize()
	}
	return profiles, nil
}

func (p *ProfileStore) saveLocked(profiles []Profile) error {
	payload, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("switcher: encode profiles: %w", err)
	}
	if errWrite := writeFileAtomic(p.path, payload, 0o600); errWrite != nil {
		return fmt.Errorf("switcher: write profiles: %w", errWrite)
	}
	return nil
}
