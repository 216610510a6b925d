package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Dispatcher   DispatcherConfig   `mapstructure:"dispatcher"`
	Progress     ProgressConfig     `mapstructure:"progress"`
	Accelerator  AcceleratorConfig  `mapstructure:"accelerator"`
	Extractor    ExtractorConfig    `mapstructure:"extractor"`
	Registry     RegistryConfig     `mapstructure:"registry"`
	Notification NotificationConfig `mapstructure:"notification"`
	Diagnostics  DiagnosticsConfig  `mapstructure:"diagnostics"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir      string `mapstructure:"base_dir"`
	DatabasePath string `mapstructure:"database_path"`
	LogsDir      string `mapstructure:"logs_dir"`
}

// DispatcherConfig controls the worker pool
type DispatcherConfig struct {
	Workers   int  `mapstructure:"workers"`
	AutoStart bool `mapstructure:"auto_start"`
}

// ProgressConfig controls progress publication
type ProgressConfig struct {
	Throttle time.Duration `mapstructure:"throttle"`
}

// AcceleratorConfig contains aria2c settings
type AcceleratorConfig struct {
	Binary                 string        `mapstructure:"binary"`
	MaxConnectionPerServer int           `mapstructure:"max_connection_per_server"`
	Split                  int           `mapstructure:"split"`
	MinSplitSize           string        `mapstructure:"min_split_size"`
	MaxTries               int           `mapstructure:"max_tries"`
	ProbeTimeout           time.Duration `mapstructure:"probe_timeout"`
}

// ExtractorConfig contains yt-dlp, ffmpeg and native extractor settings
type ExtractorConfig struct {
	YTDLPBinary         string `mapstructure:"ytdlp_binary"`
	FFmpegBinary        string `mapstructure:"ffmpeg_binary"`
	YouTubeNative       bool   `mapstructure:"youtube_native"`
	Retries             int    `mapstructure:"retries"`
	FragmentRetries     int    `mapstructure:"fragment_retries"`
	SocketTimeout       int    `mapstructure:"socket_timeout"`
	ConcurrentFragments int    `mapstructure:"concurrent_fragments"`
}

// RegistryConfig controls session snapshot retention.
// A zero TTL keeps every session for the lifetime of the process.
type RegistryConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// DiagnosticsConfig contains settings for the connection test
type DiagnosticsConfig struct {
	ProbeURL string        `mapstructure:"probe_url"`
	TestURL  string        `mapstructure:"test_url"` // extracted by the extraction check
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			BaseDir:      "$HOME/Downloads/mediafetch",
			DatabasePath: "$HOME/.mediafetch/tasks.db",
			LogsDir:      "$HOME/.mediafetch/logs",
		},
		Dispatcher: DispatcherConfig{
			Workers:   6,
			AutoStart: true,
		},
		Progress: ProgressConfig{
			Throttle: 100 * time.Millisecond,
		},
		Accelerator: AcceleratorConfig{
			Binary:                 "aria2c",
			MaxConnectionPerServer: 16,
			Split:                  16,
			MinSplitSize:           "1M",
			MaxTries:               20,
			ProbeTimeout:           5 * time.Second,
		},
		Extractor: ExtractorConfig{
			YTDLPBinary:         "yt-dlp",
			FFmpegBinary:        "ffmpeg",
			YouTubeNative:       false,
			Retries:             20,
			FragmentRetries:     30,
			SocketTimeout:       60,
			ConcurrentFragments: 16,
		},
		Registry: RegistryConfig{
			TTL:           0,
			SweepInterval: time.Minute,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   false,
			Method:  "notify-send",
		},
		Diagnostics: DiagnosticsConfig{
			ProbeURL: "https://www.youtube.com",
			TestURL:  "https://www.youtube.com/watch?v=BaW_jenozKc",
			Timeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
