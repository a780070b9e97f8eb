// internal/config/config.go
//
// This package handles configuration and the .taskboard directory structure.
// Every project that uses taskboard gets a .taskboard/ folder created in its
// root holding the config file, the stored state, logs and exports.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DataDirName is the name of the directory we create in each project
	DataDirName = ".taskboard"

	// EnvPrefix prefixes every environment override (TASKBOARD_BOARD_MAX_TASKS).
	EnvPrefix = "TASKBOARD"

	DefaultBoardKey    = "kanban_board_tasks"
	DefaultActivityKey = "kanban_tasks_activity_log"
)

const configHeader = `# taskboard project configuration
# Every value can be overridden with TASKBOARD_<SECTION>_<KEY> environment
# variables. TASKBOARD_STORAGE_KEY and TASKBOARD_ACTIVITY_STORAGE_KEY rename
# the storage keys.
`

// BoardSettings tunes the board rules.
type BoardSettings struct {
	MaxTasks     int    `mapstructure:"max_tasks" yaml:"max_tasks" validate:"gte=1"`
	MaxHistory   int    `mapstructure:"max_history" yaml:"max_history" validate:"gte=1"`
	StrictImport bool   `mapstructure:"strict_import" yaml:"strict_import"`
	ExportDir    string `mapstructure:"export_dir" yaml:"export_dir,omitempty"`
}

// StorageSettings selects the key-value driver and the keys it uses.
type StorageSettings struct {
	Driver        string `mapstructure:"driver" yaml:"driver" validate:"oneof=file memory redis"`
	Dir           string `mapstructure:"dir" yaml:"dir,omitempty"`
	BoardKey      string `mapstructure:"board_key" yaml:"board_key" validate:"required"`
	ActivityKey   string `mapstructure:"activity_key" yaml:"activity_key" validate:"required,nefield=BoardKey"`
	ActivityLimit int    `mapstructure:"activity_limit" yaml:"activity_limit" validate:"gte=1"`
}

// RedisSettings is only read when storage.driver is redis.
type RedisSettings struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db" validate:"gte=0"`
}

// LoggingSettings controls the diagnostic log.
type LoggingSettings struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json console"`
	Output string `mapstructure:"output" yaml:"output" validate:"oneof=file stderr none"`
}

// Settings models .taskboard/config.yaml.
type Settings struct {
	Version int             `mapstructure:"version" yaml:"version" validate:"gte=1"`
	Board   BoardSettings   `mapstructure:"board" yaml:"board"`
	Storage StorageSettings `mapstructure:"storage" yaml:"storage"`
	Redis   RedisSettings   `mapstructure:"redis" yaml:"redis"`
	Logging LoggingSettings `mapstructure:"logging" yaml:"logging"`
}

// Config holds the runtime configuration for one project.
type Config struct {
	// ProjectDir is the directory where the user ran `taskboard` from
	ProjectDir string

	// DataDir is ProjectDir/.taskboard
	DataDir string

	Settings Settings
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Version: 1,
		Board: BoardSettings{
			MaxTasks:     5,
			MaxHistory:   10,
			StrictImport: true,
		},
		Storage: StorageSettings{
			Driver:        "file",
			BoardKey:      DefaultBoardKey,
			ActivityKey:   DefaultActivityKey,
			ActivityLimit: 50,
		},
		Redis: RedisSettings{
			Addr: "localhost:6379",
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "json",
			Output: "file",
		},
	}
}

// InitDir creates the .taskboard directory structure in projectDir.
//
// Structure created:
// .taskboard/
// ├── config.yaml
// ├── state/    <- file driver storage (board + activity log)
// ├── logs/     <- diagnostic log
// └── exports/  <- board exports
func InitDir(projectDir string) error {
	dataDir := filepath.Join(projectDir, DataDirName)
	for _, dir := range []string{
		filepath.Join(dataDir, "state"),
		filepath.Join(dataDir, "logs"),
		filepath.Join(dataDir, "exports"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: ensure %s: %w", dir, err)
		}
	}
	return ensureConfigFile(filepath.Join(dataDir, "config.yaml"))
}

// Load reads .env, config.yaml and TASKBOARD_* overrides for projectDir.
// A missing config file is not an error; defaults apply.
func Load(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", projectDir, err)
	}
	cfg := &Config{
		ProjectDir: abs,
		DataDir:    filepath.Join(abs, DataDirName),
	}

	// Values already in the environment win over .env.
	if err := godotenv.Load(filepath.Join(abs, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}

	v := newViper(Defaults())
	path := cfg.ConfigPath()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("config: decode settings: %w", err)
	}
	settings.normalize()
	if err := settings.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Settings = settings
	return cfg, nil
}

func newViper(defaults Settings) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("version", defaults.Version)
	v.SetDefault("board.max_tasks", defaults.Board.MaxTasks)
	v.SetDefault("board.max_history", defaults.Board.MaxHistory)
	v.SetDefault("board.strict_import", defaults.Board.StrictImport)
	v.SetDefault("board.export_dir", defaults.Board.ExportDir)
	v.SetDefault("storage.driver", defaults.Storage.Driver)
	v.SetDefault("storage.dir", defaults.Storage.Dir)
	v.SetDefault("storage.board_key", defaults.Storage.BoardKey)
	v.SetDefault("storage.activity_key", defaults.Storage.ActivityKey)
	v.SetDefault("storage.activity_limit", defaults.Storage.ActivityLimit)
	v.SetDefault("redis.addr", defaults.Redis.Addr)
	v.SetDefault("redis.password", defaults.Redis.Password)
	v.SetDefault("redis.db", defaults.Redis.DB)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.output", defaults.Logging.Output)

	// Short names for the two storage keys.
	_ = v.BindEnv("storage.board_key", EnvPrefix+"_STORAGE_KEY", EnvPrefix+"_STORAGE_BOARD_KEY")
	_ = v.BindEnv("storage.activity_key", EnvPrefix+"_ACTIVITY_STORAGE_KEY", EnvPrefix+"_STORAGE_ACTIVITY_KEY")
	return v
}

// StateDir returns where the file driver keeps its blobs.
func (c *Config) StateDir() string {
	return c.resolve(c.Settings.Storage.Dir, "state")
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// LogPath returns the diagnostic log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "taskboard.log")
}

// ExportDir returns where exports are written by default.
func (c *Config) ExportDir() string {
	return c.resolve(c.Settings.Board.ExportDir, "exports")
}

// ConfigPath returns the on-disk location for the project config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.DataDir, "config.yaml")
}

// Save validates the settings and writes them back to config.yaml.
func (c *Config) Save() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Settings.normalize()
	if err := c.Settings.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure data dir: %w", err)
	}
	return writeSettings(c.ConfigPath(), c.Settings)
}

func (c *Config) resolve(candidate, fallback string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return filepath.Join(c.DataDir, fallback)
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(c.ProjectDir, trimmed))
}

func (s *Settings) normalize() {
	if s.Version == 0 {
		s.Version = 1
	}
	s.Storage.Driver = strings.ToLower(strings.TrimSpace(s.Storage.Driver))
	s.Storage.BoardKey = strings.TrimSpace(s.Storage.BoardKey)
	s.Storage.ActivityKey = strings.TrimSpace(s.Storage.ActivityKey)
	s.Storage.Dir = strings.TrimSpace(s.Storage.Dir)
	s.Board.ExportDir = strings.TrimSpace(s.Board.ExportDir)
	s.Logging.Level = strings.ToLower(strings.TrimSpace(s.Logging.Level))
	s.Logging.Format = strings.ToLower(strings.TrimSpace(s.Logging.Format))
	s.Logging.Output = strings.ToLower(strings.TrimSpace(s.Logging.Output))
}

func (s Settings) validate() error {
	if err := validator.New().Struct(s); err != nil {
		return err
	}
	if s.Storage.Driver == "redis" && strings.TrimSpace(s.Redis.Addr) == "" {
		return fmt.Errorf("redis.addr is required for the redis driver")
	}
	return nil
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return writeSettings(path, Defaults())
}

func writeSettings(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	content := append([]byte(configHeader), data...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
