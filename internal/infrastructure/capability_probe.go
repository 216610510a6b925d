package infrastructure

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

const defaultProbeTimeout = 5 * time.Second

// ExecProbe checks that an executable is installed and answers a version query
type ExecProbe struct {
	name    string
	binary  string
	args    []string
	timeout time.Duration
}

// NewExecProbe creates a probe running `binary args...`
func NewExecProbe(name, binary string, timeout time.Duration, args ...string) *ExecProbe {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &ExecProbe{name: name, binary: binary, args: args, timeout: timeout}
}

// NewAcceleratorProbe probes aria2c with --version
func NewAcceleratorProbe(config *domain.AcceleratorConfig) *ExecProbe {
	return NewExecProbe("aria2c", config.Binary, config.ProbeTimeout, "--version")
}

// NewFFmpegProbe probes ffmpeg with -version
func NewFFmpegProbe(config *domain.ExtractorConfig) *ExecProbe {
	return NewExecProbe("ffmpeg", config.FFmpegBinary, defaultProbeTimeout, "-version")
}

// NewExtractorProbe probes yt-dlp with --version
func NewExtractorProbe(config *domain.ExtractorConfig) *ExecProbe {
	return NewExecProbe("yt-dlp", config.YTDLPBinary, defaultProbeTimeout, "--version")
}

// Name returns the probed capability
func (p *ExecProbe) Name() string {
	return p.name
}

// Probe runs the version query and reports the first output line
func (p *ExecProbe) Probe(ctx context.Context) domain.ProbeResult {
	path, err := exec.LookPath(p.binary)
	if err != nil {
		return domain.ProbeResult{
			Available: false,
			Message:   fmt.Sprintf("%s not found in PATH", p.name),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, p.args...)
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return domain.ProbeResult{
			Available: false,
			Message:   fmt.Sprintf("%s did not answer within %s", p.name, p.timeout),
		}
	}
	if err != nil {
		return domain.ProbeResult{
			Available: false,
			Message:   fmt.Sprintf("%s is not usable: %v", p.name, err),
		}
	}

	return domain.ProbeResult{
		Available: true,
		Version:   firstLine(string(out)),
		Message:   fmt.Sprintf("%s is available", p.name),
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
