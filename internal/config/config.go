// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/autobrr/yggsearch/internal/domain"
)

var envPrefix = "YGGSEARCH__"

const (
	// PasskeyEnv is the variable the search plugin has always read its passkey from.
	PasskeyEnv = "YGG_PASSKEY"
	// PlaceholderPasskey is used when no passkey is configured anywhere.
	PlaceholderPasskey = "YOUR_PASSKEY_HERE"

	cacheFileName  = ".ygg_url_cache.json"
	cacheDBName    = "yggsearch.db"
	configFileName = "config.toml"
	appDirName     = "yggsearch"
)

type AppConfig struct {
	Config  *domain.Config
	viper   *viper.Viper
	dataDir string
	version string
}

func New(configDirOrPath string, versions ...string) (*AppConfig, error) {
	version := "dev"
	if len(versions) > 0 && strings.TrimSpace(versions[0]) != "" {
		version = versions[0]
	}

	c := &AppConfig{
		viper:   viper.New(),
		Config:  &domain.Config{},
		version: version,
	}

	c.defaults()

	if err := c.load(configDirOrPath); err != nil {
		return nil, err
	}

	c.loadFromEnv()

	if err := c.viper.Unmarshal(c.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.Config.Version = c.version

	c.resolveDataDir()

	return c, nil
}

func (c *AppConfig) defaults() {
	c.viper.SetDefault("logLevel", "INFO")
	c.viper.SetDefault("logPath", "")
	c.viper.SetDefault("logMaxSize", 50)
	c.viper.SetDefault("logMaxBackups", 3)
	c.viper.SetDefault("dataDir", "") // Empty means next to the config file
	c.viper.SetDefault("passkey", "")
	c.viper.SetDefault("passkeyFile", "")
	c.viper.SetDefault("metricsTextfile", "")

	c.viper.SetDefault("api.baseUrl", "https://yggapi.eu")
	c.viper.SetDefault("api.userAgent", "")

	c.viper.SetDefault("discovery.url", "https://yeeti.io/@ygg")
	c.viper.SetDefault("discovery.fallbackUrl", "https://www.yggtorrent.org")
	c.viper.SetDefault("discovery.domain", "yggtorrent")
	c.viper.SetDefault("discovery.timeout", "30s")

	c.viper.SetDefault("cache.backend", "file")
	c.viper.SetDefault("cache.path", "")
	c.viper.SetDefault("cache.ttl", "24h")

	c.viper.SetDefault("search.perPage", 100)
	c.viper.SetDefault("search.orderBy", "seeders")
	c.viper.SetDefault("search.maxRetries", 3)
	c.viper.SetDefault("search.retryDelay", "2s")
	c.viper.SetDefault("search.requestTimeout", "30s")
	c.viper.SetDefault("search.maxPages", 0)
	c.viper.SetDefault("search.filter", "")
}

func (c *AppConfig) load(configDirOrPath string) error {
	c.viper.SetConfigType("toml")

	if configDirOrPath != "" {
		configPath := c.resolveConfigPath(configDirOrPath)
		c.viper.SetConfigFile(configPath)

		if err := c.viper.ReadInConfig(); err != nil {
			if isNotFound(err) {
				if err := c.writeDefaultConfig(configPath); err != nil {
					return err
				}
				if err := c.viper.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read newly created config: %w", err)
				}
				return nil
			}
			return fmt.Errorf("failed to read config: %w", err)
		}
		return nil
	}

	c.viper.SetConfigName("config")
	c.viper.AddConfigPath(".")
	c.viper.AddConfigPath(GetDefaultConfigDir())

	if err := c.viper.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		defaultConfigPath := filepath.Join(GetDefaultConfigDir(), configFileName)
		if err := c.writeDefaultConfig(defaultConfigPath); err != nil {
			log.Warn().Err(err).Msg("Could not create default config, continuing with defaults")
			return nil
		}
		c.viper.SetConfigFile(defaultConfigPath)
		if err := c.viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read newly created config: %w", err)
		}
		c.dataDir = filepath.Dir(defaultConfigPath)
	}

	return nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func (c *AppConfig) loadFromEnv() {
	// Explicit binds only; AutomaticEnv would pick up unrelated variables.
	c.viper.BindEnv("logLevel", envPrefix+"LOG_LEVEL")
	c.viper.BindEnv("logPath", envPrefix+"LOG_PATH")
	c.viper.BindEnv("logMaxSize", envPrefix+"LOG_MAX_SIZE")
	c.viper.BindEnv("logMaxBackups", envPrefix+"LOG_MAX_BACKUPS")
	c.viper.BindEnv("dataDir", envPrefix+"DATA_DIR")
	c.viper.BindEnv("metricsTextfile", envPrefix+"METRICS_TEXTFILE")

	c.viper.BindEnv("api.baseUrl", envPrefix+"API_BASE_URL")
	c.viper.BindEnv("api.userAgent", envPrefix+"API_USER_AGENT")

	c.viper.BindEnv("discovery.url", envPrefix+"DISCOVERY_URL")
	c.viper.BindEnv("discovery.fallbackUrl", envPrefix+"DISCOVERY_FALLBACK_URL")
	c.viper.BindEnv("discovery.domain", envPrefix+"DISCOVERY_DOMAIN")
	c.viper.BindEnv("discovery.timeout", envPrefix+"DISCOVERY_TIMEOUT")

	c.viper.BindEnv("cache.backend", envPrefix+"CACHE_BACKEND")
	c.viper.BindEnv("cache.path", envPrefix+"CACHE_PATH")
	c.viper.BindEnv("cache.ttl", envPrefix+"CACHE_TTL")

	c.viper.BindEnv("search.perPage", envPrefix+"SEARCH_PER_PAGE")
	c.viper.BindEnv("search.orderBy", envPrefix+"SEARCH_ORDER_BY")
	c.viper.BindEnv("search.maxRetries", envPrefix+"SEARCH_MAX_RETRIES")
	c.viper.BindEnv("search.retryDelay", envPrefix+"SEARCH_RETRY_DELAY")
	c.viper.BindEnv("search.requestTimeout", envPrefix+"SEARCH_REQUEST_TIMEOUT")
	c.viper.BindEnv("search.maxPages", envPrefix+"SEARCH_MAX_PAGES")
	c.viper.BindEnv("search.filter", envPrefix+"SEARCH_FILTER")

	// passkey is left to ResolvePasskey, where the config file outranks the environment
}

// LoadDotEnv loads .env files into the process environment without overriding variables
// that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("Failed to load env file")
		}
	}
}

// PasskeySource names where ResolvePasskey found the passkey.
type PasskeySource string

const (
	PasskeyFromConfig      PasskeySource = "config"
	PasskeyFromConfigFile  PasskeySource = "config-file"
	PasskeyFromEnv         PasskeySource = "env"
	PasskeyFromEnvFile     PasskeySource = "env-file"
	PasskeyFromPlaceholder PasskeySource = "placeholder"
)

// ResolvePasskey picks the passkey in priority order: the config file value (or the file it
// points to), then the environment (YGG_PASSKEY, YGGSEARCH__PASSKEY and their _FILE
// variants), then the placeholder.
func ResolvePasskey(cfg *domain.Config) (string, PasskeySource) {
	if cfg != nil {
		if v := strings.TrimSpace(cfg.Passkey); v != "" {
			return v, PasskeyFromConfig
		}
		if cfg.PasskeyFile != "" {
			if v, ok := readSecretFile(cfg.PasskeyFile); ok {
				return v, PasskeyFromConfigFile
			}
		}
	}

	for _, name := range []string{PasskeyEnv, envPrefix + "PASSKEY"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, PasskeyFromEnv
		}
	}
	for _, name := range []string{PasskeyEnv + "_FILE", envPrefix + "PASSKEY_FILE"} {
		if path := os.Getenv(name); path != "" {
			if v, ok := readSecretFile(path); ok {
				return v, PasskeyFromEnvFile
			}
		}
	}

	return PlaceholderPasskey, PasskeyFromPlaceholder
}

func readSecretFile(path string) (string, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Could not read passkey file")
		return "", false
	}
	v := strings.TrimSpace(string(content))
	return v, v != ""
}

func (c *AppConfig) writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		log.Debug().Msgf("Config file already exists at: %s", path)
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	log.Debug().Msgf("Created config directory: %s", dir)

	configTemplate := `# config.toml - Auto-generated on first run

# Passkey embedded in download links
# Takes precedence over the YGG_PASSKEY environment variable
# Optional
#passkey = ""

# Read the passkey from a file instead
# Optional
#passkeyFile = "/run/secrets/ygg_passkey"

# Log file path
# If not defined, logs to stderr
# Optional
#logPath = "log/yggsearch.log"

# Log rotation
# Maximum log file size in megabytes before rotation
# Default: {{ .logMaxSize }}
#logMaxSize = {{ .logMaxSize }}

# Number of rotated log files to retain (0 keeps all)
# Default: {{ .logMaxBackups }}
#logMaxBackups = {{ .logMaxBackups }}

# Data directory (default: next to config file)
# The url cache is created inside this directory
#dataDir = "/var/lib/yggsearch"

# Log level
# Default: "INFO"
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "{{ .logLevel }}"

# Write Prometheus metrics for each run in textfile collector format
# Optional
#metricsTextfile = "/var/lib/node_exporter/yggsearch.prom"

[api]
# Search and download requests go here. Leave empty to use the discovered site url.
# Default: "{{ .apiBaseUrl }}"
#baseUrl = "{{ .apiBaseUrl }}"

[discovery]
# Page that advertises the current site address
# Default: "{{ .discoveryUrl }}"
#url = "{{ .discoveryUrl }}"

# Used whenever discovery fails
# Default: "{{ .fallbackUrl }}"
#fallbackUrl = "{{ .fallbackUrl }}"

[cache]
# Options: "file", "sqlite", "memory"
# Default: "{{ .cacheBackend }}"
#backend = "{{ .cacheBackend }}"

# How long a discovered url is trusted
# Default: "{{ .cacheTtl }}"
#ttl = "{{ .cacheTtl }}"

[search]
# Default: {{ .perPage }}
#perPage = {{ .perPage }}

# Default: "{{ .orderBy }}"
#orderBy = "{{ .orderBy }}"

# Attempts per page before the search is aborted
# Default: {{ .maxRetries }}
#maxRetries = {{ .maxRetries }}

# Default: "{{ .retryDelay }}"
#retryDelay = "{{ .retryDelay }}"

# Maximum pages per search, 0 for no limit
# Default: 0
#maxPages = 0

# Only emit rows matching this expression
# Example: "Seeders >= 5 && SizeBytes < 8e9"
#filter = ""
`

	data := map[string]any{
		"logLevel":      c.viper.GetString("logLevel"),
		"logMaxSize":    c.viper.GetInt("logMaxSize"),
		"logMaxBackups": c.viper.GetInt("logMaxBackups"),
		"apiBaseUrl":    c.viper.GetString("api.baseUrl"),
		"discoveryUrl":  c.viper.GetString("discovery.url"),
		"fallbackUrl":   c.viper.GetString("discovery.fallbackUrl"),
		"cacheBackend":  c.viper.GetString("cache.backend"),
		"cacheTtl":      c.viper.GetString("cache.ttl"),
		"perPage":       c.viper.GetInt("search.perPage"),
		"orderBy":       c.viper.GetString("search.orderBy"),
		"maxRetries":    c.viper.GetInt("search.maxRetries"),
		"retryDelay":    c.viper.GetString("search.retryDelay"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse config template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info().Msgf("Created default config file: %s", path)
	return nil
}

// GetDefaultConfigDir returns the OS-specific config directory
func GetDefaultConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if xdgConfig == "/config" {
			return xdgConfig
		}
		return filepath.Join(xdgConfig, appDirName)
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appDirName)
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Roaming", appDirName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appDirName)
	}
}

func (c *AppConfig) ApplyLogConfig() {
	zerolog.TimeFieldFormat = time.RFC3339

	setLogLevel(c.Config.LogLevel)

	writer := c.baseLogWriter()

	if c.Config.LogPath != "" {
		multiWriter, err := setupLogFile(c.Config.LogPath, writer, c.Config.LogMaxSize, c.Config.LogMaxBackups)
		if err != nil {
			log.Error().Err(err).Msg("Failed to setup log file")
		} else {
			writer = multiWriter
		}
	}

	log.Logger = log.Logger.Output(writer)
}

// SetLogLevel overrides the configured level, e.g. from a CLI flag.
func (c *AppConfig) SetLogLevel(level string) {
	if strings.TrimSpace(level) == "" {
		return
	}
	c.Config.LogLevel = level
	setLogLevel(level)
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Logger.Level(lvl)
}

func setupLogFile(path string, base io.Writer, maxSize, maxBackups int) (io.Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if maxSize <= 0 {
		maxSize = 50
	}

	if maxBackups < 0 {
		maxBackups = 0
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}

	return io.MultiWriter(base, rotator), nil
}

// baseLogWriter always targets stderr; stdout carries search results.
func baseLogWriter(version string) io.Writer {
	if isDevBuild(version) || term.IsTerminal(int(os.Stderr.Fd())) {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		writer.PartsOrder = []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName}
		writer.FormatMessage = func(i any) string {
			if i == nil {
				return ""
			}
			return strings.TrimSpace(fmt.Sprint(i))
		}
		return writer
	}
	return os.Stderr
}

func (c *AppConfig) baseLogWriter() io.Writer {
	return baseLogWriter(c.version)
}

// DefaultLogWriter returns the base log writer for the provided version.
func DefaultLogWriter(version string) io.Writer {
	return baseLogWriter(version)
}

// InitDefaultLogger configures zerolog with the default writer for this version.
// This is used by CLI entry points before a configuration file is loaded.
func InitDefaultLogger(version string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Logger.Output(DefaultLogWriter(version))
}

func isDevBuild(version string) bool {
	v := strings.ToLower(strings.TrimSpace(version))
	return v == "" || v == "dev" || strings.HasSuffix(v, "-dev")
}

// resolveConfigPath determines the actual config file path from the provided directory or file path
func (c *AppConfig) resolveConfigPath(configDirOrPath string) string {
	if strings.HasSuffix(strings.ToLower(configDirOrPath), ".toml") {
		return configDirOrPath
	}

	if info, err := os.Stat(configDirOrPath); err == nil && !info.IsDir() {
		return configDirOrPath
	}

	return filepath.Join(configDirOrPath, configFileName)
}

// resolveDataDir sets the data directory based on configuration
func (c *AppConfig) resolveDataDir() {
	switch {
	case c.Config.DataDir != "":
		c.dataDir = c.Config.DataDir
	case c.dataDir != "":
	case c.viper.ConfigFileUsed() != "":
		c.dataDir = filepath.Dir(c.viper.ConfigFileUsed())
	default:
		c.dataDir = "."
	}
}

// GetCachePath returns where the url cache lives for the configured backend.
func (c *AppConfig) GetCachePath() string {
	if c.Config.Cache.Path != "" {
		return c.Config.Cache.Path
	}
	if strings.EqualFold(c.Config.Cache.Backend, "sqlite") {
		return filepath.Join(c.dataDir, cacheDBName)
	}
	return filepath.Join(c.dataDir, cacheFileName)
}

// GetDataDir returns the resolved data directory path.
func (c *AppConfig) GetDataDir() string {
	return c.dataDir
}

// SetDataDir sets the data directory (used by CLI flags)
func (c *AppConfig) SetDataDir(dir string) {
	c.dataDir = dir
}

// GetConfigDir returns the directory containing the config file
func (c *AppConfig) GetConfigDir() string {
	if c.viper.ConfigFileUsed() != "" {
		return filepath.Dir(c.viper.ConfigFileUsed())
	}
	return GetDefaultConfigDir()
}

func WriteDefaultConfig(path string) error {
	c := &AppConfig{
		viper: viper.New(),
	}

	c.defaults()

	return c.writeDefaultConfig(path)
}
