package settings

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DefaultScratchSession = "last"
	DefaultModel          = "gpt-3.5-turbo"

	StoreBackendYAML   = "yaml"
	StoreBackendSQLite = "sqlite"

	appName = "palaver"
)

// Settings is built once at startup and passed to everything that needs it.
type Settings struct {
	// ScratchSession names the session used for sessionless queries.
	ScratchSession string `yaml:"scratch_session"`

	StoreBackend    string `yaml:"store_backend"`
	SessionsDir     string `yaml:"sessions_dir"`
	SQLitePath      string `yaml:"sqlite_path"`
	LegacyCachePath string `yaml:"legacy_cache_path"`
	PromptsDir      string `yaml:"prompts_dir"`

	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	Stream      bool     `yaml:"stream"`
	APIKey      string   `yaml:"-"`
	BaseURL     string   `yaml:"base_url,omitempty"`
}

// NewSettings returns settings rooted in the user cache and config directories.
func NewSettings() (*Settings, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, errors.Wrap(err, "could not determine user cache directory")
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, errors.Wrap(err, "could not determine user config directory")
	}
	return NewSettingsWithDirs(cacheDir, configDir), nil
}

func NewSettingsWithDirs(cacheDir, configDir string) *Settings {
	return &Settings{
		ScratchSession:  DefaultScratchSession,
		StoreBackend:    StoreBackendYAML,
		SessionsDir:     filepath.Join(cacheDir, appName, "sessions"),
		SQLitePath:      filepath.Join(cacheDir, appName, "sessions.db"),
		LegacyCachePath: filepath.Join(cacheDir, appName+".json"),
		PromptsDir:      filepath.Join(configDir, appName, "prompts"),
		Model:           DefaultModel,
	}
}

// FromViper overlays the values known to v on top of the defaults.
func FromViper(v *viper.Viper) (*Settings, error) {
	s, err := NewSettings()
	if err != nil {
		return nil, err
	}
	s.UpdateFromViper(v)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) UpdateFromViper(v *viper.Viper) {
	setString := func(key string, dst *string) {
		if v.IsSet(key) && v.GetString(key) != "" {
			*dst = v.GetString(key)
		}
	}
	setString("scratch-session", &s.ScratchSession)
	setString("store-backend", &s.StoreBackend)
	setString("sessions-dir", &s.SessionsDir)
	setString("sqlite-path", &s.SQLitePath)
	setString("legacy-cache-path", &s.LegacyCachePath)
	setString("prompts-dir", &s.PromptsDir)
	setString("chat-gpt", &s.Model)
	setString("openai-base-url", &s.BaseURL)

	s.APIKey = v.GetString("openai-api-key")
	if s.APIKey == "" {
		s.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v.IsSet("temperature") && v.GetFloat64("temperature") >= 0 {
		t := v.GetFloat64("temperature")
		s.Temperature = &t
	}
	s.Stream = v.GetBool("stream")
}

func (s *Settings) Validate() error {
	if s.ScratchSession == "" {
		return errors.New("scratch session name must not be empty")
	}
	switch s.StoreBackend {
	case StoreBackendYAML, StoreBackendSQLite:
	default:
		return errors.Errorf("unknown store backend %q (expected %s or %s)",
			s.StoreBackend, StoreBackendYAML, StoreBackendSQLite)
	}
	return nil
}

// SessionOrScratch returns name, or the scratch session when name is empty.
func (s *Settings) SessionOrScratch(name string) string {
	if name == "" {
		return s.ScratchSession
	}
	return name
}
