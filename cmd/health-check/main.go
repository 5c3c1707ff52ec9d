// Package main probes a running meal planner, for Docker HEALTHCHECK and
// monitoring scripts. Exit code 0 means the expected status was reached.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/config"
	"github.com/JosephChataignon/hAIckers-team/pkg/healthcheck"
)

const (
	exitHealthy   = 0
	exitUnhealthy = 1
	exitError     = 2
)

type options struct {
	url        string
	configPath string
	endpoint   string
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	format     string
	allowDeg   bool
}

// report mirrors the JSON served by the health endpoints
type report struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Checks  []struct {
		Name     string  `json:"name"`
		Status   string  `json:"status"`
		Message  string  `json:"message"`
		Optional bool    `json:"optional"`
		Duration float64 `json:"duration_ms"`
	} `json:"checks"`
}

func main() {
	os.Exit(run(parseFlags()))
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.url, "url", "", "Base URL of the service (default: derived from the configuration)")
	flag.StringVar(&opts.configPath, "config", "", "Configuration file path")
	flag.StringVar(&opts.endpoint, "endpoint", "health", "Endpoint to probe: health, ready or live")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Second, "Request timeout")
	flag.IntVar(&opts.retries, "retry", 0, "Number of retries on failure")
	flag.DurationVar(&opts.retryDelay, "retry-delay", time.Second, "Delay between retries")
	flag.StringVar(&opts.format, "format", "text", "Output format: text or json")
	flag.BoolVar(&opts.allowDeg, "allow-degraded", true, "Treat a degraded service as passing")
	flag.Parse()
	return opts
}

func run(opts options) int {
	base, err := baseURL(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "health-check: %v\n", err)
		return exitError
	}
	target := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(opts.endpoint, "/")

	client := &http.Client{Timeout: opts.timeout}

	var (
		body []byte
		code int
	)
	for attempt := 0; ; attempt++ {
		body, code, err = fetch(client, target)
		if err == nil && code < http.StatusInternalServerError {
			break
		}
		if attempt >= opts.retries {
			break
		}
		time.Sleep(opts.retryDelay)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "health-check: %s: %v\n", target, err)
		return exitError
	}

	if opts.format == "json" {
		os.Stdout.Write(body)
	}

	var rep report
	if err := json.Unmarshal(body, &rep); err != nil {
		fmt.Fprintf(os.Stderr, "health-check: unexpected response from %s: %v\n", target, err)
		return exitError
	}
	if opts.format != "json" {
		printText(rep, code)
	}

	return exitCode(rep.Status, code, opts.allowDeg)
}

// baseURL prefers the flag, then HEALTH_CHECK_URL, then the configured
// listen address
func baseURL(opts options) (string, error) {
	if opts.url != "" {
		return opts.url, nil
	}
	if env := os.Getenv("HEALTH_CHECK_URL"); env != "" {
		return env, nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return "", fmt.Errorf("failed to load configuration: %w", err)
	}
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, cfg.Server.Port), nil
}

func fetch(client *http.Client, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return body, resp.StatusCode, err
}

func exitCode(status string, code int, allowDegraded bool) int {
	switch healthcheck.Status(status) {
	case healthcheck.StatusHealthy:
		return exitHealthy
	case healthcheck.StatusDegraded:
		if allowDegraded {
			return exitHealthy
		}
		return exitUnhealthy
	case healthcheck.StatusUnhealthy:
		return exitUnhealthy
	}

	// ready and live answer with their own vocabulary
	if code >= 200 && code < 300 {
		return exitHealthy
	}
	return exitUnhealthy
}

func printText(rep report, code int) {
	fmt.Printf("status: %s (HTTP %d)", rep.Status, code)
	if rep.Version != "" {
		fmt.Printf(" version %s", rep.Version)
	}
	fmt.Println()

	for _, check := range rep.Checks {
		line := fmt.Sprintf("  %-10s %-9s %7.1fms", check.Name, check.Status, check.Duration)
		if check.Optional {
			line += " (optional)"
		}
		if check.Message != "" {
			line += "  " + check.Message
		}
		fmt.Println(line)
	}
}
