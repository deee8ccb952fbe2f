// Package server exposes the ingest service, the destination directory and
// the upload event stream over HTTP.
package server

import (
	"context"
	"io"
	"net/http"

	"landrop/internal/landrop/ingest"
	"landrop/internal/landrop/pubsub"
	"landrop/pkg/logger"
	"landrop/pkg/platform"
)

// DirectoryRegistry reads and replaces the destination directory.
type DirectoryRegistry interface {
	Get() string
	Set(path string) error
}

// Uploader stores the file fields of one multipart request.
type Uploader interface {
	Handle(ctx context.Context, body io.Reader, contentType string) (*ingest.Result, error)
}

// EventSource hands out subscriptions to upload events.
type EventSource interface {
	Subscribe() (*pubsub.Subscription, error)
}

// RequestMetrics counts upload responses by status code.
type RequestMetrics interface {
	UploadRequest(code string)
	Handler() http.Handler
}

// Options configures the HTTP surface.
type Options struct {
	Port           int
	AllowedOrigins []string
	// Metrics enables GET /metrics when non-nil.
	Metrics RequestMetrics
}

type Server struct {
	registry DirectoryRegistry
	uploader Uploader
	events   EventSource
	platform platform.Platform
	logger   *logger.Logger
	opts     Options
}

func New(reg DirectoryRegistry, up Uploader, events EventSource, p platform.Platform, log *logger.Logger, opts Options) *Server {
	return &Server{
		registry: reg,
		uploader: up,
		events:   events,
		platform: p,
		logger:   log.WithField("component", "http"),
		opts:     opts,
	}
}
