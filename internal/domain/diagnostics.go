package domain

import "time"

// CacheClearResult reports what a cache clear removed
type CacheClearResult struct {
	ToolCleared bool     `json:"tool_cleared"`
	ToolOutput  string   `json:"tool_output,omitempty"`
	Removed     []string `json:"removed"`
	Message     string   `json:"message"`
}

// UpdateResult reports the outcome of an extractor self-update
type UpdateResult struct {
	Output  string `json:"output"`
	Version string `json:"version"`
}

// ConnectionResult reports a connection test against the probe URL
type ConnectionResult struct {
	URL        string        `json:"url"`
	Status     string        `json:"status"` // ok, 403_error, http_error, failed
	StatusCode int           `json:"status_code,omitempty"`
	Latency    time.Duration `json:"latency"`
	LatencyMS  int64         `json:"latency_ms"`
	UserAgent  string        `json:"user_agent"`
	Message    string        `json:"message"`
}

// FormatDebugEntry is one candidate format as shown by the format debugger
type FormatDebugEntry struct {
	CandidateFormat
	HasValidURL bool `json:"has_valid_url"`
}

// FormatDebugReport lists the candidates resolved for a URL
type FormatDebugReport struct {
	URL       string             `json:"url"`
	Title     string             `json:"title"`
	Extractor string             `json:"extractor"`
	Formats   []FormatDebugEntry `json:"formats"`
	Usable    int                `json:"usable"`
}

// PerformanceStatus summarizes runtime tuning and load
type PerformanceStatus struct {
	Workers             int           `json:"workers"`
	ActiveWorkers       int           `json:"active_workers"`
	QueueLength         int           `json:"queue_length"`
	ProgressThrottle    time.Duration `json:"progress_throttle"`
	Retries             int           `json:"retries"`
	FragmentRetries     int           `json:"fragment_retries"`
	ConcurrentFragments int           `json:"concurrent_fragments"`
	MaxConnections      int           `json:"max_connection_per_server"`
	Split               int           `json:"split"`
	MinSplitSize        string        `json:"min_split_size"`
	Accelerator         ProbeResult   `json:"accelerator"`
	FFmpeg              ProbeResult   `json:"ffmpeg"`
	Sessions            int           `json:"sessions"`
	Extractor           string        `json:"extractor"`
}

// ExtractionCheck reports a metadata-only extraction of the configured test URL
type ExtractionCheck struct {
	URL     string `json:"url"`
	Status  string `json:"status"` // ok, 403_error, failed
	Title   string `json:"title,omitempty"`
	Formats int    `json:"formats,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

// TroubleshootingStep is one remediation step, optionally backed by an endpoint
type TroubleshootingStep struct {
	Step        int    `json:"step"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Method      string `json:"method,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
}

// TroubleshootingGuide groups remediation steps by symptom
type TroubleshootingGuide struct {
	Forbidden  []TroubleshootingStep `json:"forbidden"`
	Connection []TroubleshootingStep `json:"connection"`
}
