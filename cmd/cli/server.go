package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	serverBinary       = "mediafetch-server"
	serverStartTimeout = 15 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

// serverLauncher makes sure a server with a running dispatcher answers at
// baseURL, spawning mediafetch-server when nothing is listening.
type serverLauncher struct {
	baseURL    string
	configPath string
	http       *http.Client
	log        io.Writer
	start      func(args ...string) error
	timeout    time.Duration
	interval   time.Duration
}

func newServerLauncher(baseURL, configPath string) *serverLauncher {
	return &serverLauncher{
		baseURL:    baseURL,
		configPath: configPath,
		http:       &http.Client{Timeout: time.Second},
		log:        os.Stderr,
		start:      startDetached,
		timeout:    serverStartTimeout,
		interval:   serverPollInterval,
	}
}

func (l *serverLauncher) endpointOK(path string) bool {
	resp, err := l.http.Get(l.baseURL + path)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// serverArgs forwards the CLI's --config to the spawned server
func (l *serverLauncher) serverArgs() ([]string, error) {
	if l.configPath == "" {
		return nil, nil
	}
	abs, err := filepath.Abs(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}
	return []string{"-config", abs}, nil
}

func (l *serverLauncher) ensure() error {
	if l.endpointOK("/ready") {
		return nil
	}

	if l.endpointOK("/health") {
		fmt.Fprintln(l.log, "Server is up, waiting for the dispatcher...")
	} else {
		args, err := l.serverArgs()
		if err != nil {
			return err
		}
		fmt.Fprintln(l.log, "Server not running, starting...")
		if err := l.start(args...); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	if err := l.waitReady(); err != nil {
		return err
	}
	fmt.Fprintln(l.log, "Server ready")
	return nil
}

func (l *serverLauncher) waitReady() error {
	deadline := time.Now().Add(l.timeout)
	for time.Now().Before(deadline) {
		if l.endpointOK("/ready") {
			return nil
		}
		time.Sleep(l.interval)
	}
	return fmt.Errorf("server did not become ready within %v", l.timeout)
}

// findServerBinary looks next to the CLI, then on PATH, then in the usual
// install locations
func findServerBinary() (string, error) {
	var candidates []string
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), serverBinary))
	}
	if p, err := exec.LookPath(serverBinary); err == nil {
		candidates = append(candidates, p)
	}
	home := os.Getenv("HOME")
	candidates = append(candidates,
		"/usr/local/bin/"+serverBinary,
		filepath.Join(home, "go", "bin", serverBinary),
		filepath.Join(home, ".local", "bin", serverBinary),
	)

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s binary not found", serverBinary)
}

// startDetached spawns the server in its own process group and does not wait
// for it
func startDetached(args ...string) error {
	serverPath, err := findServerBinary()
	if err != nil {
		return err
	}

	cmd := exec.Command(serverPath, args...)
	setSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
