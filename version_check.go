package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	goversion "github.com/hashicorp/go-version"
)

const versionCheckTimeout = 10 * time.Second

var (
	latestVersion   string
	latestVersionMu sync.RWMutex
)

// GetLatestVersion returns the most recently fetched upstream version,
// or empty when none has been fetched
func GetLatestVersion() string {
	latestVersionMu.RLock()
	defer latestVersionMu.RUnlock()
	return latestVersion
}

func setLatestVersion(v string) {
	latestVersionMu.Lock()
	defer latestVersionMu.Unlock()
	latestVersion = v
}

// fetchLatestVersion retrieves the published version string
func fetchLatestVersion(url string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), versionCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "ubersstv/"+Version)

	resp, err := (&http.Client{Timeout: versionCheckTimeout}).Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", fmt.Errorf("failed to read version body: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

// checkVersion compares the running version to the published one
func checkVersion(url string) {
	latest, err := fetchLatestVersion(url)
	if err != nil {
		log.Printf("[Version] Check failed: %v", err)
		return
	}
	setLatestVersion(latest)

	current, err := goversion.NewVersion(Version)
	if err != nil {
		log.Printf("[Version] Running version %q is not parseable: %v", Version, err)
		return
	}
	published, err := goversion.NewVersion(latest)
	if err != nil {
		log.Printf("[Version] Published version %q is not parseable: %v", latest, err)
		return
	}

	if published.GreaterThan(current) {
		log.Printf("[Version] Update available: %s (running %s)", latest, Version)
	} else if DebugMode {
		log.Printf("[Version] Up to date (%s)", Version)
	}
}

// startVersionChecker runs periodic version checks
func startVersionChecker(config VersionCheckConfig) {
	if !config.Enabled || config.URL == "" {
		return
	}
	interval := config.IntervalMinutes
	if interval <= 0 {
		interval = 60
	}

	go func() {
		checkVersion(config.URL)
		ticker := time.NewTicker(time.Duration(interval) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			checkVersion(config.URL)
		}
	}()
}
