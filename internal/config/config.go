package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	defaultBaseURL      = "https://myrient.erista.me/files/"
	defaultDBPath       = "myrient.db"
	defaultOutputDir    = "downloads"
	defaultCrawlWorkers = 8
	defaultFileWorkers  = 4
	defaultFetchTimeout = 10 * time.Second
	defaultWgetBinary   = "wget"

	envBaseURL   = "ROMARCHIVE_BASE_URL"
	envDBPath    = "ROMARCHIVE_DB_PATH"
	envOutputDir = "ROMARCHIVE_OUTPUT_DIR"
	envWorkers   = "ROMARCHIVE_WORKERS"
)

type CrawlerConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Workers      int           `yaml:"workers"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

type StoreConfig struct {
	DBPath string `yaml:"db_path"`
}

type DownloadConfig struct {
	OutputDir   string `yaml:"output_dir"`
	FileWorkers int    `yaml:"file_workers"`
	WgetBinary  string `yaml:"wget_binary"`
}

// Alias maps a raw platform token to its canonical display name.
// Order matters: the first alias whose text is contained in the cleaned
// platform string wins.
type Alias struct {
	Alias     string `yaml:"alias"`
	Canonical string `yaml:"canonical"`
}

type RulesetConfig struct {
	IgnoredBaseFolders []string `yaml:"ignored_base_folders"`
	IgnoredFolders     []string `yaml:"ignored_folders"`
	PlatformAliases    []Alias  `yaml:"platform_aliases"`
}

type Config struct {
	LogLevel       string         `yaml:"log_level"`
	CrawlerConfig  CrawlerConfig  `yaml:"crawler"`
	StoreConfig    StoreConfig    `yaml:"store"`
	DownloadConfig DownloadConfig `yaml:"download"`
	RulesetConfig  RulesetConfig  `yaml:"ruleset"`
}

func (c *Config) SetDefaults() {
	c.LogLevel = LogLevelInfo
	c.CrawlerConfig = CrawlerConfig{
		BaseURL:      defaultBaseURL,
		Workers:      defaultCrawlWorkers,
		FetchTimeout: defaultFetchTimeout,
	}
	c.StoreConfig = StoreConfig{DBPath: defaultDBPath}
	c.DownloadConfig = DownloadConfig{
		OutputDir:   defaultOutputDir,
		FileWorkers: defaultFileWorkers,
		WgetBinary:  defaultWgetBinary,
	}
	c.RulesetConfig = RulesetConfig{
		IgnoredBaseFolders: defaultIgnoredBaseFolders(),
		IgnoredFolders:     defaultIgnoredFolders(),
		PlatformAliases:    defaultPlatformAliases(),
	}
}

// Load reads the yaml config at path, materializing it with defaults on
// first run if it does not exist yet. Environment variables (optionally
// from a .env file) override the file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.SetDefaults()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := writeDefault(path, cfg); err != nil {
			return nil, fmt.Errorf("cannot write default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("cannot read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.CrawlerConfig.Workers < 1 {
		cfg.CrawlerConfig.Workers = defaultCrawlWorkers
	}
	if cfg.DownloadConfig.FileWorkers < 1 {
		cfg.DownloadConfig.FileWorkers = defaultFileWorkers
	}

	return cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(envBaseURL); v != "" {
		cfg.CrawlerConfig.BaseURL = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.StoreConfig.DBPath = v
	}
	if v := os.Getenv(envOutputDir); v != "" {
		cfg.DownloadConfig.OutputDir = v
	}
	if v := os.Getenv(envWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CrawlerConfig.Workers = n
		}
	}
}

func writeDefault(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}
