package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultBaseURL              = "http://127.0.0.1:3000"
	defaultIdleTimeoutSeconds   = 60
	defaultReloadTimeoutSeconds = 15
	defaultSidebarWidth         = 28
	minSidebarWidth             = 16
	maxSidebarWidth             = 48
)

const (
	EnvBaseURL  = "FINCHAT_BASE_URL"
	EnvToken    = "FINCHAT_TOKEN"
	EnvLogLevel = "FINCHAT_LOG_LEVEL"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Chat    ChatConfig    `toml:"chat"`
	Logging LoggingConfig `toml:"logging"`
	Debug   DebugConfig   `toml:"debug"`
	UI      UIConfig      `toml:"ui"`
}

type ServerConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token,omitempty"`
}

type ChatConfig struct {
	IdleTimeoutSeconds   int `toml:"idle_timeout_seconds"`
	ReloadTimeoutSeconds int `toml:"reload_timeout_seconds"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file,omitempty"`
}

type DebugConfig struct {
	StreamDebug bool `toml:"stream_debug"`
}

type UIConfig struct {
	Markdown     *bool `toml:"markdown,omitempty"`
	SidebarWidth int   `toml:"sidebar_width"`
}

func DefaultConfig() Config {
	markdown := true
	return Config{
		Server: ServerConfig{
			BaseURL: defaultBaseURL,
		},
		Chat: ChatConfig{
			IdleTimeoutSeconds:   defaultIdleTimeoutSeconds,
			ReloadTimeoutSeconds: defaultReloadTimeoutSeconds,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		UI: UIConfig{
			Markdown:     &markdown,
			SidebarWidth: defaultSidebarWidth,
		},
	}
}

// Load reads config.toml and then applies overrides from the dotenv file and
// the process environment, in that order.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	cfg, err := loadFromPath(path)
	if err != nil {
		return Config{}, err
	}
	envPath, err := EnvPath()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(envPath); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) BaseURL() string {
	base := strings.TrimSpace(c.Server.BaseURL)
	if base == "" {
		return defaultBaseURL
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	base = strings.TrimRight(base, "/")
	if base == "http:" || base == "https:" {
		return defaultBaseURL
	}
	return base
}

func (c Config) Token() string {
	return strings.TrimSpace(c.Server.Token)
}

// IdleTimeout is the longest an exchange may wait for the next chunk of the
// response stream. Zero disables the watchdog.
func (c Config) IdleTimeout() time.Duration {
	seconds := c.Chat.IdleTimeoutSeconds
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		seconds = defaultIdleTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (c Config) ReloadTimeout() time.Duration {
	seconds := c.Chat.ReloadTimeoutSeconds
	if seconds <= 0 {
		seconds = defaultReloadTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) LogFile() (string, error) {
	path := strings.TrimSpace(c.Logging.File)
	if path == "" {
		return LogPath()
	}
	return resolveConfigPath(path)
}

func (c Config) StreamDebug() bool {
	return c.Debug.StreamDebug
}

func (c Config) MarkdownEnabled() bool {
	if c.UI.Markdown == nil {
		return true
	}
	return *c.UI.Markdown
}

func (c Config) SidebarWidth() int {
	width := c.UI.SidebarWidth
	if width <= 0 {
		return defaultSidebarWidth
	}
	if width < minSidebarWidth {
		return minSidebarWidth
	}
	if width > maxSidebarWidth {
		return maxSidebarWidth
	}
	return width
}

func Marshal(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

func loadFromPath(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(envPath string) error {
	values, err := readEnvFile(envPath)
	if err != nil {
		return err
	}
	lookup := func(key string) string {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(values[key])
	}
	if value := lookup(EnvBaseURL); value != "" {
		c.Server.BaseURL = value
	}
	if value := lookup(EnvToken); value != "" {
		c.Server.Token = value
	}
	if value := lookup(EnvLogLevel); value != "" {
		c.Logging.Level = value
	}
	return nil
}

func readEnvFile(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return godotenv.Read(path)
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func resolveConfigPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, path), nil
}
