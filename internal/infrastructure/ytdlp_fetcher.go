package infrastructure

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

const (
	ytdlpTool = "yt-dlp"

	progressPrefix = "MFPROGRESS "
	filePrefix     = "MFFILE "

	maxLineSize = 1024 * 1024
)

// ytdlpProgress is the progress dict printed by --progress-template
type ytdlpProgress struct {
	Status             string   `json:"status"`
	DownloadedBytes    float64  `json:"downloaded_bytes"`
	TotalBytes         float64  `json:"total_bytes"`
	TotalBytesEstimate float64  `json:"total_bytes_estimate"`
	Speed              *float64 `json:"speed"`
	ETA                *float64 `json:"eta"`
	FragmentIndex      int      `json:"fragment_index"`
	FragmentCount      int      `json:"fragment_count"`
	Filename           string   `json:"filename"`
}

// YTDLPFetcher implements domain.EmbeddedFetcher by running yt-dlp to completion
type YTDLPFetcher struct {
	config      *domain.ExtractorConfig
	accelerator *domain.AcceleratorConfig
	logs        *logger.LoggerAdapter
}

// NewYTDLPFetcher creates a new yt-dlp fetcher
func NewYTDLPFetcher(config *domain.ExtractorConfig, accelerator *domain.AcceleratorConfig, logs *logger.LoggerAdapter) *YTDLPFetcher {
	if logs == nil {
		logs = logger.NewSingleLoggerAdapter(nil)
	}
	return &YTDLPFetcher{config: config, accelerator: accelerator, logs: logs}
}

// BuildArgs builds the yt-dlp command line for a request
func (f *YTDLPFetcher) BuildArgs(req *domain.DownloadRequest, opts domain.FetchOptions) []string {
	fragments := f.config.ConcurrentFragments
	if opts.UseAccelerator {
		fragments = 1
	}

	args := []string{
		"-f", req.FormatSelector(),
		"-o", req.OutputTemplate(),
		"-P", opts.Dir,
		"--no-playlist",
		"--force-overwrites",
		"--trim-filenames", strconv.Itoa(domain.MaxTitleBytes),
		"--newline",
		"--progress",
		"--progress-template", "download:" + progressPrefix + "%(progress)j",
		"--print", "after_move:" + filePrefix + "%(filepath)s",
		"--retries", strconv.Itoa(f.config.Retries),
		"--fragment-retries", strconv.Itoa(f.config.FragmentRetries),
		"--socket-timeout", strconv.Itoa(f.config.SocketTimeout),
		"--concurrent-fragments", strconv.Itoa(fragments),
	}
	if opts.UserAgent != "" {
		args = append(args, "--user-agent", opts.UserAgent)
	}
	if strings.ContainsRune(f.config.FFmpegBinary, filepath.Separator) {
		args = append(args, "--ffmpeg-location", f.config.FFmpegBinary)
	}

	pp := req.PostProcessing()
	switch pp.Kind {
	case domain.PostProcessExtractAudio:
		args = append(args,
			"-x",
			"--audio-format", pp.Codec,
			"--audio-quality", fmt.Sprintf("%dK", pp.QualityKbps),
		)
	case domain.PostProcessConvertVideo:
		args = append(args, "--recode-video", pp.Container)
	}
	if pp.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if pp.EmbedMetadata {
		args = append(args, "--embed-metadata")
	}

	if opts.UseAccelerator {
		args = append(args,
			"--downloader", "aria2c",
			"--downloader-args", "aria2c:"+f.helperArgs(opts.UserAgent),
		)
	}

	return append(args, req.URL)
}

// helperArgs are the aria2c flags when it runs as yt-dlp's external downloader
func (f *YTDLPFetcher) helperArgs(userAgent string) string {
	args := segmentArgs(f.accelerator)
	args = append(args,
		"--summary-interval", "0",
		"--console-log-level", "warn",
		"--download-result", "hide",
	)
	if userAgent != "" {
		args = append(args, "--user-agent", userAgent)
	}
	escaped := make([]string, len(args))
	for i, a := range args {
		escaped[i] = ShellEscape(a)
	}
	return strings.Join(escaped, " ")
}

// Fetch runs yt-dlp and returns the final path reported after post-processing
func (f *YTDLPFetcher) Fetch(req *domain.DownloadRequest, opts domain.FetchOptions, onProgress func(domain.TransferProgress)) (string, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	if onProgress == nil {
		onProgress = func(domain.TransferProgress) {}
	}
	backend := domain.BackendEmbedded
	if opts.UseAccelerator {
		backend = domain.BackendAccelerator
	}

	args := f.BuildArgs(req, opts)
	f.logs.WriteTransferLine(opts.TaskID, ytdlpTool, "$ "+ShellEscapeCommand(f.config.YTDLPBinary, args...))

	cmd := exec.Command(f.config.YTDLPBinary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", &domain.TransferError{Backend: backend, Err: fmt.Errorf("failed to start yt-dlp: %w", err)}
	}

	var finalPath string
	errTail := newLineTail(outputTailLines)

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return f.readStdout(stdout, opts.TaskID, onProgress, &finalPath)
	})
	g.Go(func() error {
		return f.readStderr(stderr, opts.TaskID, errTail)
	})
	readErr := g.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil {
		return "", classifyFetchError(backend, waitErr, errTail)
	}
	if readErr != nil {
		return "", &domain.TransferError{Backend: backend, Err: readErr}
	}
	if finalPath == "" {
		return "", &domain.TransferError{Backend: backend, Err: errors.New("download finished but no output file was reported")}
	}
	if _, err := os.Stat(finalPath); err != nil {
		return "", &domain.TransferError{Backend: backend, Err: errors.New("download finished but file is missing")}
	}

	f.logs.WriteTransferLine(opts.TaskID, ytdlpTool, "saved "+finalPath)
	return finalPath, nil
}

// newLineScanner scans lines of up to maxLineSize bytes
func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return scanner
}

// drain consumes the rest of r after a scan error, keeping the child's
// pipe writable until it exits.
func drain(r io.Reader, err error) error {
	if err != nil {
		io.Copy(io.Discard, r)
	}
	return err
}

func (f *YTDLPFetcher) readStdout(r io.Reader, taskID string, onProgress func(domain.TransferProgress), finalPath *string) error {
	scanner := newLineScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, progressPrefix):
			if p, ok := ParseProgressLine(line); ok {
				onProgress(p)
			}
		case strings.HasPrefix(line, filePrefix):
			*finalPath = strings.TrimSpace(strings.TrimPrefix(line, filePrefix))
		case strings.TrimSpace(line) != "":
			f.logs.WriteTransferLine(taskID, ytdlpTool, line)
		}
	}
	return drain(r, scanner.Err())
}

func (f *YTDLPFetcher) readStderr(r io.Reader, taskID string, tail *lineTail) error {
	scanner := newLineScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		tail.Add(line)
		f.logs.WriteTransferLine(taskID, ytdlpTool, line)
	}
	return drain(r, scanner.Err())
}

// ParseProgressLine decodes one progress-template line.
// Only lines with status "downloading" produce a hook.
func ParseProgressLine(line string) (domain.TransferProgress, bool) {
	payload := strings.TrimPrefix(strings.TrimSpace(line), strings.TrimSpace(progressPrefix))
	var p ytdlpProgress
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &p); err != nil {
		return domain.TransferProgress{}, false
	}
	if p.Status != "downloading" {
		return domain.TransferProgress{}, false
	}

	total := p.TotalBytes
	if total <= 0 {
		total = p.TotalBytesEstimate
	}
	out := domain.TransferProgress{
		DownloadedBytes: int64(p.DownloadedBytes),
		TotalBytes:      int64(total),
		FragmentIndex:   p.FragmentIndex,
		FragmentCount:   p.FragmentCount,
		Filename:        p.Filename,
	}
	if p.Speed != nil {
		out.Speed = *p.Speed
	}
	if p.ETA != nil {
		out.ETA = *p.ETA
	}
	return out, true
}

// classifyFetchError maps a failed run onto a post-processing or transfer error
func classifyFetchError(backend domain.Backend, waitErr error, tail *lineTail) error {
	msg := tail.String()
	if msg == "" {
		msg = waitErr.Error()
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "ffmpeg") || strings.Contains(lower, "postprocess") {
		return &domain.PostProcessError{Err: errors.New(msg)}
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &domain.TransferError{
			Backend: backend,
			Err:     fmt.Errorf("yt-dlp exited with code %d: %s", exitErr.ExitCode(), msg),
		}
	}
	return &domain.TransferError{Backend: backend, Err: errors.New(msg)}
}
