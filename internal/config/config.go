package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const EnvPrefix = "WARP_"

type Config struct {
	InitConnections []Connection  `json:"init_connections"`
	Listen          ListenConfig  `json:"listen" env:"LISTEN" envSeparator:","`
	DataDir         string        `json:"data_dir" env:"DATA_DIR"`
	DatabasePath    string        `json:"database_path" env:"DATABASE_PATH"`
	PingInterval    Duration      `json:"ping_interval" env:"PING_INTERVAL"`
	Bootstrap       Duration      `json:"bootstrap_interval" env:"BOOTSTRAP_INTERVAL"`
	Log             LogConfig     `json:"log" envPrefix:"LOG_"`
	Hub             HubConfig     `json:"hub" envPrefix:"HUB_"`
	Journal         JournalConfig `json:"journal" envPrefix:"JOURNAL_"`
}

type Connection struct {
	Type    string `json:"type"`
	Address string `json:"address"`
}

type LogConfig struct {
	Path      string `json:"path" env:"PATH"`
	Level     string `json:"level" env:"LEVEL"`
	MaxSizeMB int    `json:"max_size_mb" env:"MAX_SIZE_MB"`
}

type HubConfig struct {
	RetryInterval Duration `json:"retry_interval" env:"RETRY_INTERVAL"`
	StatsInterval Duration `json:"stats_interval" env:"STATS_INTERVAL"`
}

type JournalConfig struct {
	Enabled       bool     `json:"enabled" env:"ENABLED"`
	Retention     Duration `json:"retention" env:"RETENTION"`
	PruneInterval Duration `json:"prune_interval" env:"PRUNE_INTERVAL"`
}

type ListenConfig []string

func (l *ListenConfig) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = []string{one}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}

	return fmt.Errorf("listen must be a string or string array")
}

func (l ListenConfig) Values() []string {
	if len(l) == 0 {
		return []string{"0.0.0.0:4100", "[::]:4100"}
	}
	return []string(l)
}

// Duration accepts Go duration strings ("25ms", "1h") in JSON and env.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func Default() *Config {
	return &Config{
		DataDir:      ".",
		PingInterval: Duration(10 * time.Second),
		Bootstrap:    Duration(time.Minute),
		Log: LogConfig{
			Path:      "warp.log",
			Level:     "info",
			MaxSizeMB: 10,
		},
		Hub: HubConfig{
			RetryInterval: Duration(25 * time.Millisecond),
			StatsInterval: Duration(time.Minute),
		},
		Journal: JournalConfig{
			Enabled:       true,
			Retention:     Duration(7 * 24 * time.Hour),
			PruneInterval: Duration(time.Hour),
		},
	}
}

// Load reads a JSON config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overlays WARP_* environment variables, loading dotenv first when
// the file exists.
func ApplyEnv(cfg *Config, dotenv string) error {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	return env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
}

func (c *Config) ListenAddresses() []string {
	return c.Listen.Values()
}

func (c *Config) DatabaseFile() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(c.DataDir, "warp.db")
}

func (c *Config) Validate() error {
	var errs []error
	for i, conn := range c.InitConnections {
		switch conn.Type {
		case "dns", "multiaddr":
		default:
			errs = append(errs, fmt.Errorf("init_connections[%d]: unknown type %q", i, conn.Type))
		}
		if conn.Address == "" {
			errs = append(errs, fmt.Errorf("init_connections[%d]: address is empty", i))
		}
	}
	if c.Hub.RetryInterval.Std() <= 0 {
		errs = append(errs, fmt.Errorf("hub.retry_interval must be positive"))
	}
	if c.Journal.Enabled && c.Journal.Retention.Std() <= 0 {
		errs = append(errs, fmt.Errorf("journal.retention must be positive"))
	}
	return errors.Join(errs...)
}
