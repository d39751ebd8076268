package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Library LibraryConfig `mapstructure:"library"`
	Player  PlayerConfig  `mapstructure:"player"`
	Decoder DecoderConfig `mapstructure:"decoder"`
	UI      UIConfig      `mapstructure:"ui"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LibraryConfig holds library location and browsing configuration
type LibraryConfig struct {
	Root           string `mapstructure:"root"`            // Library root; REEL_DATA_DIR wins when set
	PageSize       int    `mapstructure:"page_size"`       // Songs revealed per "load more"
	SearchMode     string `mapstructure:"search_mode"`     // "substring" or "fuzzy"
	PrepareWorkers int    `mapstructure:"prepare_workers"` // Background asset derivation workers
}

// PlayerConfig holds audio output and external player configuration
type PlayerConfig struct {
	Volume     float64 `mapstructure:"volume"`      // Initial volume in [0,1] before a saved one exists
	SampleRate int     `mapstructure:"sample_rate"` // Output device sample rate
	BufferMS   int     `mapstructure:"buffer_ms"`   // Output device buffer

	Command   string   `mapstructure:"command"`    // External video player, empty to auto-detect
	Args      []string `mapstructure:"args"`       // Extra arguments for the external player
	StartFlag string   `mapstructure:"start_flag"` // e.g., "--start=" or "--start-time="
}

// DecoderConfig locates the ffmpeg tools
type DecoderConfig struct {
	FFmpeg  string        `mapstructure:"ffmpeg"`
	FFprobe string        `mapstructure:"ffprobe"`
	Timeout time.Duration `mapstructure:"timeout"` // Per-invocation limit for derivation
}

// UIConfig holds UI configuration
type UIConfig struct {
	TickRate int  `mapstructure:"tick_rate"` // Render ticks per second
	Preview  bool `mapstructure:"preview"`   // Render the video frame of the current song
}

// NotifyConfig holds desktop notification configuration
type NotifyConfig struct {
	TrackChange bool `mapstructure:"track_change"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"` // "-" logs to stderr
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Library: LibraryConfig{
			PageSize:       5,
			SearchMode:     "substring",
			PrepareWorkers: 2,
		},
		Player: PlayerConfig{
			Volume:     0.7,
			SampleRate: 44100,
			BufferMS:   100,
			Args:       []string{},
		},
		Decoder: DecoderConfig{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			Timeout: 2 * time.Minute,
		},
		UI: UIConfig{
			TickRate: 60,
			Preview:  true,
		},
		Notify: NotifyConfig{
			TrackChange: false,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "reel", "reel.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "state", "reel", "reel.log")
	}
}

// ConfigDir returns the directory holding config.yaml for the current OS
func ConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reel")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "reel")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	return loadConfig(viper.GetViper(), ConfigDir(), ".")
}

func loadConfig(v *viper.Viper, searchPaths ...string) (*Config, error) {
	cfg := DefaultConfig()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	// Defaults make every key visible to AutomaticEnv,
	// e.g. REEL_LIBRARY_PAGE_SIZE or REEL_LOGGING_LEVEL
	setDefaults(v, cfg)
	v.SetEnvPrefix("REEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize replaces out-of-range values with defaults
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Library.PageSize <= 0 {
		c.Library.PageSize = def.Library.PageSize
	}
	if c.Library.PrepareWorkers <= 0 {
		c.Library.PrepareWorkers = 1
	}
	if c.Player.Volume < 0 || c.Player.Volume > 1 {
		c.Player.Volume = def.Player.Volume
	}
	if c.Player.SampleRate <= 0 {
		c.Player.SampleRate = def.Player.SampleRate
	}
	if c.Player.BufferMS <= 0 {
		c.Player.BufferMS = def.Player.BufferMS
	}
	if c.UI.TickRate <= 0 {
		c.UI.TickRate = def.UI.TickRate
	}
	if c.Decoder.FFmpeg == "" {
		c.Decoder.FFmpeg = def.Decoder.FFmpeg
	}
	if c.Decoder.FFprobe == "" {
		c.Decoder.FFprobe = def.Decoder.FFprobe
	}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	for key, value := range configValues(cfg) {
		v.SetDefault(key, value)
	}
}

// Values returns the configuration as flattened snake_case keys, the same
// keys config.yaml and the REEL_ environment variables use
func (c *Config) Values() map[string]interface{} {
	return configValues(c)
}

// configValues flattens cfg into snake_case viper keys
func configValues(cfg *Config) map[string]interface{} {
	return map[string]interface{}{
		"library.root":            cfg.Library.Root,
		"library.page_size":       cfg.Library.PageSize,
		"library.search_mode":     cfg.Library.SearchMode,
		"library.prepare_workers": cfg.Library.PrepareWorkers,

		"player.volume":      cfg.Player.Volume,
		"player.sample_rate": cfg.Player.SampleRate,
		"player.buffer_ms":   cfg.Player.BufferMS,
		"player.command":     cfg.Player.Command,
		"player.args":        cfg.Player.Args,
		"player.start_flag":  cfg.Player.StartFlag,

		"decoder.ffmpeg":  cfg.Decoder.FFmpeg,
		"decoder.ffprobe": cfg.Decoder.FFprobe,
		"decoder.timeout": cfg.Decoder.Timeout.String(),

		"ui.tick_rate": cfg.UI.TickRate,
		"ui.preview":   cfg.UI.Preview,

		"notify.track_change": cfg.Notify.TrackChange,

		"logging.file":  cfg.Logging.File,
		"logging.level": cfg.Logging.Level,
	}
}

// SaveConfig saves the configuration to config.yaml in ConfigDir
func SaveConfig(cfg *Config) error {
	return saveConfig(viper.GetViper(), cfg, ConfigDir())
}

func saveConfig(v *viper.Viper, cfg *Config, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	for key, value := range configValues(cfg) {
		v.Set(key, value)
	}

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigFileUsed returns the config file that was read, if any
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
