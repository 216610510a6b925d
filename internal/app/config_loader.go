package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.mediafetch")
		v.AddConfigPath("/etc/mediafetch")
	}

	// MEDIAFETCH_DISPATCHER_WORKERS overrides dispatcher.workers
	v.SetEnvPrefix("MEDIAFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers every known key so that AutomaticEnv also applies
// to keys absent from the config file.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"server.host", "server.port",
		"download.base_dir", "download.database_path", "download.logs_dir",
		"dispatcher.workers", "dispatcher.auto_start",
		"progress.throttle",
		"accelerator.binary", "accelerator.max_connection_per_server", "accelerator.split",
		"accelerator.min_split_size", "accelerator.max_tries", "accelerator.probe_timeout",
		"extractor.ytdlp_binary", "extractor.ffmpeg_binary", "extractor.youtube_native",
		"extractor.retries", "extractor.fragment_retries", "extractor.socket_timeout",
		"extractor.concurrent_fragments",
		"registry.ttl", "registry.sweep_interval",
		"notification.enabled", "notification.sound", "notification.method",
		"diagnostics.probe_url", "diagnostics.test_url", "diagnostics.timeout",
		"logging.level", "logging.format", "logging.output_path",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Download.DatabasePath = expandPath(config.Download.DatabasePath)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.BaseDir == "" {
		return fmt.Errorf("download base directory not configured")
	}

	if config.Download.DatabasePath == "" {
		return fmt.Errorf("task database path not configured")
	}

	if config.Dispatcher.Workers < 1 {
		return fmt.Errorf("dispatcher workers must be at least 1")
	}

	if config.Progress.Throttle < 0 {
		return fmt.Errorf("progress throttle cannot be negative")
	}

	if config.Accelerator.Split < 1 || config.Accelerator.MaxConnectionPerServer < 1 {
		return fmt.Errorf("accelerator split and connections must be at least 1")
	}

	if config.Registry.TTL < 0 {
		return fmt.Errorf("registry ttl cannot be negative")
	}

	if config.Registry.TTL > 0 && config.Registry.SweepInterval <= 0 {
		return fmt.Errorf("registry sweep interval must be positive when a ttl is set")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server", config.Server)
	v.Set("download", config.Download)
	v.Set("dispatcher", config.Dispatcher)
	v.Set("progress", config.Progress)
	v.Set("accelerator", config.Accelerator)
	v.Set("extractor", config.Extractor)
	v.Set("registry", config.Registry)
	v.Set("notification", config.Notification)
	v.Set("diagnostics", config.Diagnostics)
	v.Set("logging", config.Logging)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
