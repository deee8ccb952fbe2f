// Package client talks to a landrop server over its HTTP interface.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"landrop/internal/landrop/domain"
)

const maxErrorBody = 4096

// StatusError is returned for any non-200 response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

// Part is one file field of an upload.
type Part struct {
	Name   string
	Reader io.Reader
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Event streams need a client
// without an overall timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for serverAddr, either "host:port" or a full
// http:// URL.
func New(serverAddr string, opts ...Option) (*Client, error) {
	if !strings.Contains(serverAddr, "://") {
		serverAddr = "http://" + serverAddr
	}
	u, err := url.Parse(serverAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", serverAddr, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server address %q: missing host", serverAddr)
	}

	c := &Client{baseURL: u, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

// UploadFiles sends the named local files in one request.
func (c *Client) UploadFiles(ctx context.Context, paths ...string) error {
	parts := make([]Part, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", p, err)
		}
		defer f.Close()
		parts = append(parts, Part{Name: filepath.Base(p), Reader: f})
	}
	return c.Upload(ctx, parts...)
}

// Upload streams parts as multipart/form-data file fields named "file".
// The body is produced while it is sent, so large files are never held in
// memory.
func (c *Client) Upload(ctx context.Context, parts ...Part) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		for _, p := range parts {
			w, err := mw.CreateFormFile("file", p.Name)
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			if _, err := io.Copy(w, p.Reader); err != nil {
				pw.CloseWithError(fmt.Errorf("failed to read %s: %w", p.Name, err))
				return
			}
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/upload"), pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		pr.Close()
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// Info returns the server's addresses, port and destination directory.
func (c *Client) Info(ctx context.Context) (*domain.Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/info"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("info request failed: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var info domain.Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode info: %w", err)
	}
	return &info, nil
}

// SetDir changes the server's destination directory.
func (c *Client) SetDir(ctx context.Context, dir string) error {
	body, err := json.Marshal(domain.SetDirRequest{Dir: dir})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/set_dir"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("set_dir request failed: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// Watch follows the event stream and calls fn for each upload event until
// ctx is cancelled, the server ends the stream, or fn returns an error.
// A stream ended by the server returns nil.
func (c *Client) Watch(ctx context.Context, fn func(domain.UploadEvent) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/events"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("event stream failed: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}

	err = readEvents(resp.Body, fn)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// readEvents parses Server-Sent Events records and decodes their data.
func readEvents(r io.Reader, fn func(domain.UploadEvent) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) == 0 {
				continue
			}
			ev, err := domain.ParseUploadEvent([]byte(strings.Join(data, "\n")))
			data = data[:0]
			if err != nil {
				return fmt.Errorf("bad event: %w", err)
			}
			if err := fn(ev); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
