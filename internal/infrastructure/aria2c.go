package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

const (
	aria2cTool = "aria2c"
	// lines of output kept for error messages
	outputTailLines = 8
)

// Aria2cAccelerator implements domain.Accelerator using the aria2c binary
type Aria2cAccelerator struct {
	config *domain.AcceleratorConfig
	logs   *logger.LoggerAdapter
}

// NewAria2cAccelerator creates a new aria2c accelerator
func NewAria2cAccelerator(config *domain.AcceleratorConfig, logs *logger.LoggerAdapter) *Aria2cAccelerator {
	if logs == nil {
		logs = logger.NewSingleLoggerAdapter(nil)
	}
	return &Aria2cAccelerator{config: config, logs: logs}
}

func segmentArgs(config *domain.AcceleratorConfig) []string {
	return []string{
		"--max-connection-per-server", strconv.Itoa(config.MaxConnectionPerServer),
		"--split", strconv.Itoa(config.Split),
		"--min-split-size", config.MinSplitSize,
		"--max-tries", strconv.Itoa(config.MaxTries),
		"--retry-wait", "1",
		"--timeout", "60",
		"--connect-timeout", "30",
	}
}

// BuildArgs builds the aria2c command line for a direct transfer
func (a *Aria2cAccelerator) BuildArgs(job domain.AcceleratorJob) []string {
	args := segmentArgs(a.config)
	args = append(args,
		"--console-log-level", "info",
		"--summary-interval", "1",
		"--download-result", "default",
	)
	if job.UserAgent != "" {
		args = append(args, "--user-agent", job.UserAgent)
	}
	args = append(args,
		"--dir", job.Dir,
		"--out", job.Filename,
		"--allow-overwrite", "true",
		job.URL,
	)
	return args
}

// Download runs one direct transfer. Summary lines are reported through
// onProgress; every other line goes to the transfer log.
func (a *Aria2cAccelerator) Download(
	ctx context.Context,
	job domain.AcceleratorJob,
	cancel *domain.CancelFlag,
	onProgress func(domain.AcceleratorSnapshot),
) (string, error) {
	if err := os.MkdirAll(job.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	if onProgress == nil {
		onProgress = func(domain.AcceleratorSnapshot) {}
	}

	args := a.BuildArgs(job)
	a.logs.WriteTransferLine(job.TaskID, aria2cTool, "$ "+ShellEscapeCommand(a.config.Binary, args...))

	cmd := exec.CommandContext(ctx, a.config.Binary, args...)
	setProcessGroup(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	// 2>&1
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return "", &domain.TransferError{
			Backend: domain.BackendAccelerator,
			Err:     fmt.Errorf("failed to start aria2c: %w", err),
		}
	}

	tail := newLineTail(outputTailLines)
	cancelled := false

	scanner := newLineScanner(stdout)
	for scanner.Scan() {
		if cancel.Cancelled() {
			cancelled = true
			if err := terminateProcessGroup(cmd); err != nil {
				a.logs.General().Warn("Failed to terminate aria2c",
					zap.String("task_id", job.TaskID), zap.Error(err))
			}
			break
		}

		line := scanner.Text()
		if snap, ok := ParseSummaryLine(line); ok {
			onProgress(snap)
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		tail.Add(line)
		a.logs.WriteTransferLine(job.TaskID, aria2cTool, line)
	}
	if !cancelled {
		if err := drain(stdout, scanner.Err()); err != nil {
			a.logs.General().Warn("Stopped parsing aria2c output",
				zap.String("task_id", job.TaskID), zap.Error(err))
		}
	}

	waitErr := cmd.Wait()

	if cancelled || cancel.Cancelled() {
		a.logs.WriteTransferLine(job.TaskID, aria2cTool, "cancelled")
		return "", domain.ErrCancelled
	}
	if ctx.Err() != nil {
		return "", &domain.TransferError{Backend: domain.BackendAccelerator, Err: ctx.Err()}
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return "", &domain.TransferError{
				Backend: domain.BackendAccelerator,
				Err:     fmt.Errorf("aria2c exited with code %d: %s", exitErr.ExitCode(), tail.String()),
			}
		}
		return "", &domain.TransferError{Backend: domain.BackendAccelerator, Err: waitErr}
	}

	path := filepath.Join(job.Dir, job.Filename)
	if _, err := os.Stat(path); err != nil {
		return "", &domain.TransferError{
			Backend: domain.BackendAccelerator,
			Err:     errors.New("download finished but file is missing"),
		}
	}

	a.logs.WriteTransferLine(job.TaskID, aria2cTool, "saved "+path)
	return path, nil
}

// lineTail keeps the last n lines written to it
type lineTail struct {
	lines []string
	max   int
}

func newLineTail(max int) *lineTail {
	return &lineTail{max: max}
}

func (t *lineTail) Add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *lineTail) String() string {
	return strings.Join(t.lines, "; ")
}
