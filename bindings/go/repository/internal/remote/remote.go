// Package remote contains the HTTP probing shared by the maven and ivy
// repository backends.
package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/opencontainers/go-digest"

	"gradle2nix.dev/gradle2nix/bindings/go/repository"
)

// ChecksumSuffix is appended to an artifact URL to obtain its SHA-256 sidecar.
const ChecksumSuffix = ".sha256"

// Endpoint performs requests against a single repository.
type Endpoint struct {
	Client      *http.Client
	Credentials *repository.Credentials
}

func (e *Endpoint) client() *http.Client {
	if e.Client == nil {
		return http.DefaultClient
	}
	return e.Client
}

func (e *Endpoint) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s request for %s failed: %w", method, url, err)
	}
	if e.Credentials != nil {
		req.SetBasicAuth(e.Credentials.Username, e.Credentials.Password)
	}
	resp, err := e.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, url, err)
	}
	if err := checkStatus(method, url, resp.StatusCode); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func checkStatus(method, url string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return fmt.Errorf("%s %s: %w", method, url, repository.ErrNotFound)
	default:
		return &StatusError{Method: method, URL: url, StatusCode: status}
	}
}

// StatusError is returned for unexpected HTTP status codes.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Exists checks that url can be downloaded. Servers that reject HEAD
// requests are checked with a GET whose body is discarded unread.
func (e *Endpoint) Exists(ctx context.Context, url string) error {
	resp, err := e.do(ctx, http.MethodHead, url)
	if err == nil {
		return resp.Body.Close()
	}
	if !headRejected(err) {
		return err
	}
	resp, err = e.do(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func headRejected(err error) bool {
	var serr *StatusError
	if !errors.As(err, &serr) {
		return false
	}
	return serr.StatusCode == http.StatusMethodNotAllowed ||
		serr.StatusCode == http.StatusNotImplemented ||
		serr.StatusCode == http.StatusForbidden
}

// Open streams the content of url. The caller closes the reader.
func (e *Endpoint) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := e.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Digest downloads url and returns its SHA-256 digest.
func (e *Endpoint) Digest(ctx context.Context, url string) (digest.Digest, error) {
	body, err := e.Open(ctx, url)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = body.Close()
	}()
	dig, err := digest.SHA256.FromReader(body)
	if err != nil {
		return "", fmt.Errorf("hashing %s failed: %w", url, err)
	}
	return dig, nil
}

// Checksum reads the SHA-256 sidecar published next to url. The sidecar
// holds the hex encoded hash, optionally followed by the file name.
func (e *Endpoint) Checksum(ctx context.Context, url string) (digest.Digest, error) {
	body, err := e.Open(ctx, url+ChecksumSuffix)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = body.Close()
	}()
	scanner := bufio.NewScanner(io.LimitReader(body, 4096))
	scanner.Split(bufio.ScanWords)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading checksum of %s failed: %w", url, err)
		}
		return "", fmt.Errorf("empty checksum file for %s", url)
	}
	dig := digest.NewDigestFromEncoded(digest.SHA256, strings.ToLower(scanner.Text()))
	if err := dig.Validate(); err != nil {
		return "", fmt.Errorf("invalid checksum for %s: %w", url, err)
	}
	return dig, nil
}

// SHA256 determines the hash of url: the published sidecar if there is a
// valid one, otherwise the digest of the downloaded content.
func (e *Endpoint) SHA256(ctx context.Context, url string) (string, error) {
	if dig, err := e.Checksum(ctx, url); err == nil {
		return dig.Encoded(), nil
	}
	dig, err := e.Digest(ctx, url)
	if err != nil {
		return "", err
	}
	return dig.Encoded(), nil
}
