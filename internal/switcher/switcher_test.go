package switcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/router-for-me/RelayStationHub/internal/sessions"
)

type fakeSupervisor struct {
	list    []sessions.Session
	listErr error
	refuse  map[string]bool
	stopErr map[string]error
	killErr map[string]error

	stops []string
	kills []string
}

func (f *fakeSupervisor) ListSessions(context.Context) ([]sessions.Session, error) {
	return f.list, f.listErr
}

func (f *fakeSupervisor) StopSession(_ context.Context, id string) (bool, error) {
	f.stops = append(f.stops, id)
	if err := f.stopErr[id]; err != nil {
		return false, err
	}
	return !f.refuse[id], nil
}

func (f *fakeSupervisor) ForceStopSession(_ context.Context, id string, pid int) error {
	f.kills = append(f.kills, fmt.Sprintf("%s:%d", id, pid))
	return f.killErr[id]
}

func newTestSwitcher(t *testing.T, supervisor sessions.Supervisor) (*Switcher, string) {
	t.Helper()
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.json")
	sw := New(NewSettingsFile(settingsPath), NewProfileStore(filepath.Join(dir, "providers.json")), supervisor)
	return sw, settingsPath
}

func seedSettings(t *testing.T, path string, root map[string]any) {
	t.Helper()
	raw, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("encode seed: %v", err)
	}
	if errWrite := os.WriteFile(path, raw, 0o600); errWrite != nil {
		t.Fatalf("write seed: %v", errWrite)
	}
}

func readEnv(t *testing.T, path string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	var root map[string]any
	if errDecode := json.Unmarshal(raw, &root); errDecode != nil {
		t.Fatalf("decode settings: %v", errDecode)
	}
	env, _ := root["env"].(map[string]any)
	return env
}

func TestApply_PrefersAPIKeyOverAuthToken(t *testing.T) {
	sw, settingsPath := newTestSwitcher(t, nil)

	err := sw.Apply(context.Background(), &Profile{
		ID: "p-1", Name: "both", BaseURL: "https://relay.example.com",
		AuthToken: "tok-1", APIKey: "sk-1",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	env := readEnv(t, settingsPath)
	if env[EnvBaseURL] != "https://relay.example.com" {
		t.Fatalf("base url not written: %v", env)
	}
	if env[EnvAPIKey] != "sk-1" {
		t.Fatalf("api key not written: %v", env)
	}
	if _, has := env[EnvAuthToken]; has {
		t.Fatalf("auth token must lose to the api key: %v", env)
	}
	if _, has := env[EnvModel]; has {
		t.Fatalf("unset model pin must stay absent: %v", env)
	}
}

func TestApply_AuthTokenAndModelPins(t *testing.T) {
	sw, settingsPath := newTestSwitcher(t, nil)

	err := sw.Apply(context.Background(), &Profile{
		ID: "p-1", Name: "token only", BaseURL: "https://relay.example.com",
		AuthToken: "tok-1", Model: "claude-sonnet-4", SmallFastModel: "claude-haiku-3",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	env := readEnv(t, settingsPath)
	if env[EnvAuthToken] != "tok-1" {
		t.Fatalf("auth token not written: %v", env)
	}
	if _, has := env[EnvAPIKey]; has {
		t.Fatalf("api key must stay absent: %v", env)
	}
	if env[EnvModel] != "claude-sonnet-4" || env[EnvSmallFastModel] != "claude-haiku-3" {
		t.Fatalf("model pins not written: %v", env)
	}
}

func TestApply_TwoSwitchesKeepUnmanagedKeys(t *testing.T) {
	sw, settingsPath := newTestSwitcher(t, nil)
	seedSettings(t, settingsPath, map[string]any{
		"permissions": map[string]any{"allow": []any{"Bash(ls:*)"}},
		"env": map[string]any{
			"CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC": "1",
			"API_TIMEOUT_MS": "60000",
			EnvBaseURL:       "https://stale.example.com",
		},
	})

	for _, profile := range []*Profile{
		{ID: "a", Name: "a", BaseURL: "https://a.example.com", APIKey: "sk-a", Model: "claude-sonnet-4"},
		{ID: "b", Name: "b", BaseURL: "https://b.example.com", AuthToken: "tok-b"},
	} {
		if err := sw.Apply(context.Background(), profile); err != nil {
			t.Fatalf("apply %s: %v", profile.ID, err)
		}
	}

	raw, err := os.ReadFile(settingsPath)
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	var root map[string]any
	if errDecode := json.Unmarshal(raw, &root); errDecode != nil {
		t.Fatalf("decode settings: %v", errDecode)
	}
	permissions, ok := root["permissions"].(map[string]any)
	if !ok || len(permissions["allow"].([]any)) != 1 {
		t.Fatalf("top level keys must survive both switches: %v", root)
	}
	env := root["env"].(map[string]any)
	if env["CLAUDE_CODE_DISABLE_NONESSENTIAL_TRAFFIC"] != "1" || env["API_TIMEOUT_MS"] != "60000" {
		t.Fatalf("unmanaged env keys must survive both switches: %v", env)
	}
	if env[EnvBaseURL] != "https://b.example.com" || env[EnvAuthToken] != "tok-b" {
		t.Fatalf("managed keys must reflect the last switch: %v", env)
	}
	for _, key := range []string{EnvAPIKey, EnvModel, EnvSmallFastModel} {
		if _, has := env[key]; has {
			t.Fatalf("keys from the first switch must be gone: %v", env)
		}
	}
}

func TestApply_StopsSessionsWithEscalation(t *testing.T) {
	supervisor := &fakeSupervisor{
		list: []sessions.Session{
			{ID: "s-1", PID: 11, Kind: "claude"},
			{ID: "s-2", PID: 22, Kind: "claude"},
			{ID: "s-3", PID: 33, Kind: "claude"},
		},
		refuse:  map[string]bool{"s-2": true},
		stopErr: map[string]error{"s-3": errors.New("stop boom")},
		killErr: map[string]error{"s-3": errors.New("kill boom")},
	}
	sw, settingsPath := newTestSwitcher(t, supervisor)

	err := sw.Apply(context.Background(), &Profile{ID: "p", Name: "p", BaseURL: "https://relay.example.com", APIKey: "sk"})
	if err != nil {
		t.Fatalf("session failures must not fail the switch: %v", err)
	}
	if len(supervisor.stops) != 3 {
		t.Fatalf("every session must get a graceful stop, got %v", supervisor.stops)
	}
	if len(supervisor.kills) != 2 || supervisor.kills[0] != "s-2:22" || supervisor.kills[1] != "s-3:33" {
		t.Fatalf("refusal and error must escalate to force stop, got %v", supervisor.kills)
	}
	if env := readEnv(t, settingsPath); env[EnvAPIKey] != "sk" {
		t.Fatalf("settings must be written before stopping sessions: %v", env)
	}
}

func TestApply_ListFailureStillSwitches(t *testing.T) {
	supervisor := &fakeSupervisor{listErr: errors.New("supervisor down")}
	sw, settingsPath := newTestSwitcher(t, supervisor)

	err := sw.Apply(context.Background(), &Profile{ID: "p", Name: "p", BaseURL: "https://relay.example.com", APIKey: "sk"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if env := readEnv(t, settingsPath); env[EnvBaseURL] != "https://relay.example.com" {
		t.Fatalf("settings must still be written: %v", env)
	}
}

func TestApply_CorruptSettingsRefusesToWrite(t *testing.T) {
	supervisor := &fakeSupervisor{list: []sessions.Session{{ID: "s-1", PID: 1}}}
	sw, settingsPath := newTestSwitcher(t, supervisor)
	if err := os.WriteFile(settingsPath, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := sw.Apply(context.Background(), &Profile{ID: "p", Name: "p", BaseURL: "https://relay.example.com"})
	if !errors.Is(err, ErrCorruptSettings) {
		t.Fatalf("expected corrupt settings error, got %v", err)
	}
	raw, errRead := os.ReadFile(settingsPath)
	if errRead != nil {
		t.Fatalf("read: %v", errRead)
	}
	if string(raw) != "{broken" {
		t.Fatalf("corrupt file must stay untouched, got %q", raw)
	}
	if len(supervisor.stops) != 0 {
		t.Fatalf("no session may be stopped on a failed switch")
	}
}

func TestClear_RemovesOnlyManagedKeys(t *testing.T) {
	sw, settingsPath := newTestSwitcher(t, nil)
	seedSettings(t, settingsPath, map[string]any{
		"env": map[string]any{
			EnvBaseURL:        "https://relay.example.com",
			EnvAuthToken:      "tok",
			EnvAPIKey:         "sk",
			EnvModel:          "claude-sonnet-4",
			EnvSmallFastModel: "claude-haiku-3",
			"API_TIMEOUT_MS":  "60000",
		},
	})

	if err := sw.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	env := readEnv(t, settingsPath)
	for _, key := range managedKeys {
		if _, has := env[key]; has {
			t.Fatalf("managed key %s must be removed: %v", key, env)
		}
	}
	if env["API_TIMEOUT_MS"] != "60000" {
		t.Fatalf("unmanaged key must survive clear: %v", env)
	}
}

func TestDetect_FirstMatchWins(t *testing.T) {
	sw, settingsPath := newTestSwitcher(t, nil)
	for _, id := range []string{"p-1", "p-2"} {
		if err := sw.Profiles().Add(&Profile{ID: id, Name: id, BaseURL: "https://relay.example.com", AuthToken: "tok-1"}); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	seedSettings(t, settingsPath, map[string]any{
		"env": map[string]any{EnvBaseURL: "https://relay.example.com", EnvAuthToken: "tok-1"},
	})

	id, err := sw.Detect()
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if id != "p-1" {
		t.Fatalf("expected first matching profile, got %q", id)
	}
}

func TestDetect_ModelPinMustMatch(t *testing.T) {
	sw, settingsPath := newTestSwitcher(t, nil)
	if err := sw.Profiles().Add(&Profile{ID: "p-1", Name: "p", BaseURL: "https://relay.example.com", APIKey: "sk-1"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	seedSettings(t, settingsPath, map[string]any{
		"env": map[string]any{
			EnvBaseURL: "https://relay.example.com",
			EnvAPIKey:  "sk-1",
			EnvModel:   "claude-opus-4",
		},
	})

	id, err := sw.Detect()
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if id != ProfileCustom {
		t.Fatalf("model pin mismatch must report custom, got %q", id)
	}
}

func TestDetect_EmptyCredentialsNeverMatch(t *testing.T) {
	sw, settingsPath := newTestSwitcher(t, nil)
	if err := sw.Profiles().Add(&Profile{ID: "p-1", Name: "open", BaseURL: "https://relay.example.com"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	seedSettings(t, settingsPath, map[string]any{
		"env": map[string]any{EnvBaseURL: "https://relay.example.com"},
	})

	id, err := sw.Detect()
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if id != ProfileCustom {
		t.Fatalf("credential-less rows must not match, got %q", id)
	}
}

func TestDetect_NoManagedKeysReportsNone(t *testing.T) {
	sw, settingsPath := newTestSwitcher(t, nil)
	if err := sw.Profiles().Add(&Profile{ID: "p-1", Name: "p", BaseURL: "https://relay.example.com", APIKey: "sk"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	id, err := sw.Detect()
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if id != "" {
		t.Fatalf("empty settings must detect nothing, got %q", id)
	}

	// A lone model pin is not a provider configuration.
	seedSettings(t, settingsPath, map[string]any{
		"env": map[string]any{EnvModel: "claude-opus-4"},
	})
	id, err = sw.Detect()
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if id != "" {
		t.Fatalf("model-only env must detect nothing, got %q", id)
	}
}

func TestCurrentEnvMatches(t *testing.T) {
	env := &CurrentEnv{BaseURL: "https://relay.example.com", AuthToken: "tok-1"}

	if !env.Matches("https://relay.example.com", "tok-1") {
		t.Fatalf("auth token pair must match")
	}
	if env.Matches("https://other.example.com", "tok-1") {
		t.Fatalf("different base url must not match")
	}
	if env.Matches("https://relay.example.com", "tok-2") {
		t.Fatalf("different credential must not match")
	}
	if env.Matches("https://relay.example.com", "") {
		t.Fatalf("empty credential must not match")
	}

	env = &CurrentEnv{BaseURL: "https://relay.example.com", APIKey: "sk-1"}
	if !env.Matches("https://relay.example.com", "sk-1") {
		t.Fatalf("api key pair must match")
	}

	var none *CurrentEnv
	if none.Matches("https://relay.example.com", "sk-1") {
		t.Fatalf("nil env must not match")
	}
}

func TestApplyID_UsesStoredPreset(t *testing.T) {
	sw, settingsPath := newTestSwitcher(t, nil)
	if err := sw.Profiles().Add(&Profile{ID: "p-1", Name: "preset", BaseURL: "https://relay.example.com", APIKey: "sk-1"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	profile, err := sw.ApplyID(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("apply id: %v", err)
	}
	if profile.Name != "preset" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if env := readEnv(t, settingsPath); env[EnvAPIKey] != "sk-1" {
		t.Fatalf("preset not applied: %v", env)
	}

	if _, err := sw.ApplyID(context.Background(), "ghost"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
