package switcher

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/router-for-me/RelayStationHub/internal/sessions"
)

// ProfileCustom is the synthetic detection result for managed keys that
// match no known preset.
const ProfileCustom = "custom"

// CurrentEnv is the managed slice of the settings document.
type CurrentEnv struct {
	BaseURL        string `json:"anthropic_base_url,omitempty"`
	AuthToken      string `json:"anthropic_auth_token,omitempty"`
	APIKey         string `json:"anthropic_api_key,omitempty"`
	Model          string `json:"anthropic_model,omitempty"`
	SmallFastModel string `json:"anthropic_small_fast_model,omitempty"`
}

// Matches reports whether a base URL and credential pair is what the settings
// document currently points at.
func (e *CurrentEnv) Matches(baseURL, token string) bool {
	if e == nil || e.BaseURL == "" || baseURL != e.BaseURL {
		return false
	}
	if token == "" {
		return false
	}
	return token == e.AuthToken || token == e.APIKey
}

// Switcher rewrites the managed env keys of the settings document and
// restarts live sessions so the new provider takes effect.
type Switcher struct {
	settings   *SettingsFile
	profiles   *ProfileStore
	supervisor sessions.Supervisor
}

// New builds a switcher. A nil supervisor disables session restarts.
func New(settings *SettingsFile, profiles *ProfileStore, supervisor sessions.Supervisor) *Switcher {
	if supervisor == nil {
		supervisor = sessions.Nop{}
	}
	return &Switcher{settings: settings, profiles: profiles, supervisor: supervisor}
}

// Profiles exposes the preset store.
func (s *Switcher) Profiles() *ProfileStore {
	if s == nil {
		return nil
	}
	return s.profiles
}

// Apply points the settings document at the profile's provider. All managed
// keys are rewritten from scratch: the base URL always, exactly one
// credential (API key wins over auth token), model pins only when set.
// Unmanaged keys survive untouched. Live sessions are then stopped so they
// restart against the new provider.
func (s *Switcher) Apply(ctx context.Context, profile *Profile) error {
	if s == nil || s.settings == nil {
		return fmt.Errorf("switcher: not initialized")
	}
	if profile == nil {
		return fmt.Errorf("switcher: nil profile")
	}
	doc, err := s.settings.Load()
	if err != nil {
		return err
	}
	doc.Remove(managedKeys...)
	doc.Set(EnvBaseURL, profile.BaseURL)
	switch {
	case profile.APIKey != "":
		doc.Set(EnvAPIKey, profile.APIKey)
	case profile.AuthToken != "":
		doc.Set(EnvAuthToken, profile.AuthToken)
	}
	if profile.Model != "" {
		doc.Set(EnvModel, profile.Model)
	}
	if profile.SmallFastModel != "" {
		doc.Set(EnvSmallFastModel, profile.SmallFastModel)
	}
	if errSave := s.settings.Save(doc); errSave != nil {
		return errSave
	}
	log.Infof("switcher: switched to %s (%s)", profile.Name, profile.BaseURL)
	s.terminateSessions(ctx)
	return nil
}

// ApplyID looks up a preset and applies it.
func (s *Switcher) ApplyID(ctx context.Context, id string) (*Profile, error) {
	if s == nil || s.profiles == nil {
		return nil, fmt.Errorf("switcher: not initialized")
	}
	profile, err := s.profiles.Get(id)
	if err != nil {
		return nil, err
	}
	if errApply := s.Apply(ctx, profile); errApply != nil {
		return nil, errApply
	}
	return profile, nil
}

// Clear removes every managed key and restarts live sessions.
func (s *Switcher) Clear(ctx context.Context) error {
	if s == nil || s.settings == nil {
		return fmt.Errorf("switcher: not initialized")
	}
	doc, err := s.settings.Load()
	if err != nil {
		return err
	}
	doc.Remove(managedKeys...)
	if errSave := s.settings.Save(doc); errSave != nil {
		return errSave
	}
	log.Info("switcher: cleared managed configuration")
	s.terminateSessions(ctx)
	return nil
}

// Current reads the managed keys as they stand.
func (s *Switcher) Current() (*CurrentEnv, error) {
	if s == nil || s.settings == nil {
		return nil, fmt.Errorf("switcher: not initialized")
	}
	doc, err := s.settings.Load()
	if err != nil {
		return nil, err
	}
	env := doc.Env()
	current := &CurrentEnv{}
	current.BaseURL, _ = envString(env, EnvBaseURL)
	current.AuthToken, _ = envString(env, EnvAuthToken)
	current.APIKey, _ = envString(env, EnvAPIKey)
	current.Model, _ = envString(env, EnvModel)
	current.SmallFastModel, _ = envString(env, EnvSmallFastModel)
	return current, nil
}

// Detect matches the managed keys against the known presets. The first
// structural match wins: exact base URL, one non-empty credential equal,
// model pins equal with absent folding to empty. A provider configuration
// (base URL or credential present) matching no preset reports
// ProfileCustom; an env carrying neither reports "".
func (s *Switcher) Detect() (string, error) {
	if s == nil || s.settings == nil || s.profiles == nil {
		return "", fmt.Errorf("switcher: not initialized")
	}
	doc, err := s.settings.Load()
	if err != nil {
		return "", err
	}
	env := doc.Env()
	baseURL, hasBaseURL := envString(env, EnvBaseURL)
	authToken, hasAuthToken := envString(env, EnvAuthToken)
	apiKey, hasAPIKey := envString(env, EnvAPIKey)
	model, _ := envString(env, EnvModel)
	smallFastModel, _ := envString(env, EnvSmallFastModel)

	profiles, errList := s.profiles.List()
	if errList != nil {
		return "", errList
	}
	for _, profile := range profiles {
		if !hasBaseURL || baseURL != profile.BaseURL {
			continue
		}
		credentialMatches := (apiKey == profile.APIKey && apiKey != "") ||
			(authToken == profile.AuthToken && authToken != "")
		if !credentialMatches {
			continue
		}
		if model != profile.Model || smallFastModel != profile.SmallFastModel {
			continue
		}
		return profile.ID, nil
	}
	if hasBaseURL || hasAuthToken || hasAPIKey {
		return ProfileCustom, nil
	}
	return "", nil
}

// terminateSessions stops every live session, escalating to a force stop
// when the graceful path refuses or fails. Failures never abort the loop.
func (s *Switcher) terminateSessions(ctx context.Context) {
	list, err := s.supervisor.ListSessions(ctx)
	if err != nil {
		log.WithError(err).Warn("switcher: list sessions failed")
		return
	}
	if len(list) == 0 {
		return
	}
	log.Infof("switcher: stopping %d active sessions", len(list))
	for _, session := range list {
		stopped, errStop := s.supervisor.StopSession(ctx, session.ID)
		if errStop != nil {
			log.WithError(errStop).Warnf("switcher: stop session %s failed", session.ID)
		}
		if stopped && errStop == nil {
			continue
		}
		if errKill := s.supervisor.ForceStopSession(ctx, session.ID, session.PID); errKill != nil {
			log.WithError(errKill).Warnf("switcher: force stop session %s failed", session.ID)
		}
	}
}
