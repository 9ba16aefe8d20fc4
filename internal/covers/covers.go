// Package covers manages the local cover image directory: downloading remote
// covers into it and retiring files that no longer back a catalog row.
package covers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// PublicPrefix is the URL prefix under which cover files are served. The
// relative path stored on a video row is PublicPrefix + filename.
const PublicPrefix = "/public/covers/"

const (
	fetchTimeout  = 15 * time.Second
	fetchAttempts = 3
	maxCoverBytes = 20 << 20
)

var nonWord = regexp.MustCompile(`\W+`)

// SanitizeCode maps a video code to its cover filename stem. Distinct codes
// can collide after sanitization; later writes overwrite earlier files.
func SanitizeCode(code string) string {
	return nonWord.ReplaceAllString(code, "_")
}

type Store struct {
	dir    string
	client *http.Client
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create covers dir: %w", err)
	}
	return &Store{
		dir: dir,
		client: &http.Client{
			Timeout: fetchTimeout,
		},
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Acquire downloads the remote cover and writes it under the managed
// directory as sanitize(code) plus an extension picked from the response
// Content-Type. It returns the stable relative path. An empty remoteURL
// returns ("", nil) with no I/O. Transient failures (network errors, 429,
// 5xx) are retried up to fetchAttempts times; the final error is returned
// so the caller can decide whether it is fatal.
func (s *Store) Acquire(ctx context.Context, code, remoteURL string) (string, error) {
	if remoteURL == "" {
		return "", nil
	}

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
		if err != nil {
			return "", fmt.Errorf("build cover request: %w", err)
		}
		resp, lastErr = s.client.Do(req)
		if lastErr != nil {
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("fetch cover: status %d", resp.StatusCode)
			resp.Body.Close()
			resp = nil
			continue
		}
		break
	}
	if resp == nil {
		return "", lastErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch cover: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return "", fmt.Errorf("read cover body: %w", err)
	}

	filename := SanitizeCode(code) + extensionFor(resp.Header.Get("Content-Type"))
	if err := os.WriteFile(filepath.Join(s.dir, filename), body, 0o644); err != nil {
		return "", fmt.Errorf("write cover file: %w", err)
	}
	return PublicPrefix + filename, nil
}

// Retire removes the file named by localPath's base name from the managed
// directory. Best-effort: failures are logged, never propagated.
func (s *Store) Retire(localPath string) {
	if localPath == "" {
		return
	}
	target := filepath.Join(s.dir, filepath.Base(localPath))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		log.Printf("covers: failed to remove %s: %v", target, err)
	}
}

// Orphans returns filenames in the managed directory whose relative path is
// not in the live set.
func (s *Store) Orphans(live map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var orphans []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !live[PublicPrefix+e.Name()] {
			orphans = append(orphans, e.Name())
		}
	}
	return orphans, nil
}

func extensionFor(contentType string) string {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "png") {
		return ".png"
	}
	return ".jpg"
}
