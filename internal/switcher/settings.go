package switcher

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Managed environment keys. Switching owns exactly these five; everything
// else in the settings document passes through untouched.
const (
	EnvBaseURL        = "ANTHROPIC_BASE_URL"
	EnvAuthToken      = "ANTHROPIC_AUTH_TOKEN"
	EnvAPIKey         = "ANTHROPIC_API_KEY"
	EnvModel          = "ANTHROPIC_MODEL"
	EnvSmallFastModel = "ANTHROPIC_SMALL_FAST_MODEL"
)

var managedKeys = []string{EnvBaseURL, EnvAuthToken, EnvAPIKey, EnvModel, EnvSmallFastModel}

// ErrCorruptSettings reports a settings file whose content is not a JSON
// object. Nothing is written over a corrupt file.
var ErrCorruptSettings = errors.New("settings file is not a JSON object")

// Document is one parsed settings file. The whole JSON object is kept so
// unmanaged keys, both top level and inside env, survive a rewrite.
type Document struct {
	root map[string]any
}

func newDocument() *Document {
	return &Document{root: map[string]any{}}
}

// Env returns the document's env object, creating it when missing or when
// an existing env value is not an object.
func (d *Document) Env() map[string]any {
	if d.root == nil {
		d.root = map[string]any{}
	}
	if env, ok := d.root["env"].(map[string]any); ok {
		return env
	}
	env := map[string]any{}
	d.root["env"] = env
	return env
}

// Set stores an env string value.
func (d *Document) Set(key, value string) {
	d.Env()[key] = value
}

// Remove drops env keys.
func (d *Document) Remove(keys ...string) {
	env := d.Env()
	for _, key := range keys {
		delete(env, key)
	}
}

// envString reads a string env value. Non-string values are invisible
// here but survive in the document.
func envString(env map[string]any, key string) (string, bool) {
	value, ok := env[key].(string)
	return value, ok
}

// SettingsFile loads and saves one settings document on disk.
type SettingsFile struct {
	path string
	mu   sync.Mutex
}

// NewSettingsFile builds a settings accessor for the given path.
func NewSettingsFile(path string) *SettingsFile {
	return &SettingsFile{path: path}
}

// Path returns the configured settings location.
func (f *SettingsFile) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// Load reads the settings document. A missing or empty file is an empty
// document; invalid JSON is ErrCorruptSettings.
func (f *SettingsFile) Load() (*Document, error) {
	if f == nil || f.path == "" {
		return nil, fmt.Errorf("switcher: settings file not configured")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return newDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("switcher: read settings: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return newDocument(), nil
	}
	var root map[string]any
	if errDecode := json.Unmarshal(raw, &root); errDecode != nil {
		return nil, fmt.Errorf("switcher: %s: %w", f.path, ErrCorruptSettings)
	}
	return &Document{root: root}, nil
}

// Save writes the document back atomically with user-only permissions.
func (f *SettingsFile) Save(doc *Document) error {
	if f == nil || f.path == "" {
		return fmt.Errorf("switcher: settings file not configured")
	}
	root := map[string]any{}
	if doc != nil && doc.root != nil {
		root = doc.root
	}
	payload, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("switcher: encode settings: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if errWrite := writeFileAtomic(f.path, payload, 0o600); errWrite != nil {
		return fmt.Errorf("switcher: write settings: %w", errWrite)
	}
	return nil
}

// writeFileAtomic stages the payload in a temp file next to the target and
// renames it into place, so readers never observe a partial document.
func writeFileAtomic(path string, payload []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, errWrite := tmp.Write(payload); errWrite != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", errWrite)
	}
	if errChmod := tmp.Chmod(perm); errChmod != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", errChmod)
	}
	if errClose := tmp.Close(); errClose != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", errClose)
	}
	if errRename := os.Rename(tmpName, path); errRename != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", errRename)
	}
	return nil
}
