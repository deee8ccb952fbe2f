// Package ingest streams multipart/form-data uploads into the destination
// directory and publishes progress for every file field.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"sync"

	"landrop/internal/landrop/domain"
	"landrop/internal/landrop/metrics"
	"landrop/internal/landrop/naming"
	lderrors "landrop/pkg/errors"
	"landrop/pkg/logger"
	"landrop/pkg/platform"
)

// Directory yields the destination directory, creating it if needed.
type Directory interface {
	Ensure() (string, error)
}

// Publisher receives upload events. Publish must not block.
type Publisher interface {
	Publish(ev domain.UploadEvent)
}

// Metrics receives per-file and per-chunk accounting. *metrics.Recorder
// satisfies it.
type Metrics interface {
	FileFinished(outcome string)
	BytesWritten(n int)
}

type noopMetrics struct{}

func (noopMetrics) FileFinished(string) {}
func (noopMetrics) BytesWritten(int)    {}

// Config bounds a single upload.
type Config struct {
	MaxFileSize int64
	ChunkSize   int
}

// StoredFile describes one file field written to disk.
type StoredFile struct {
	Field     string
	Requested string
	Name      string
	Path      string
	Size      int64
}

// Result lists the files stored by a request in arrival order.
type Result struct {
	Files   []StoredFile
	Skipped int
}

type Option func(*Service)

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Service decodes upload requests. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	dir      Directory
	events   Publisher
	platform platform.Platform
	metrics  Metrics
	logger   *logger.Logger

	maxSize int64
	bufs    sync.Pool
}

func NewService(dir Directory, events Publisher, p platform.Platform, cfg Config, log *logger.Logger, opts ...Option) *Service {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 64 * 1024
	}
	s := &Service{
		dir:      dir,
		events:   events,
		platform: p,
		metrics:  noopMetrics{},
		logger:   log.WithField("component", "ingest"),
		maxSize:  cfg.MaxFileSize,
	}
	chunk := cfg.ChunkSize
	s.bufs.New = func() any {
		b := make([]byte, chunk)
		return &b
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle reads every part of body. File fields are written with
// collision-free names; other fields are skipped. It returns an error
// matching ErrMalformedRequest for framing problems and ErrPayloadTooLarge
// when a file exceeds the size cap; in both cases files stored before the
// failure are reported in the result.
func (s *Service) Handle(ctx context.Context, body io.Reader, contentType string) (*Result, error) {
	boundary, err := parseBoundary(contentType)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx, s.logger).WithField("subsystem", "ingest")
	reader := multipart.NewReader(body, boundary)
	result := &Result{}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, fmt.Errorf("%w: %v", lderrors.ErrMalformedRequest, err)
		}

		requested, ok := fileName(part)
		if !ok {
			log.Debug("skipping non-file field", "field", part.FormName())
			_ = part.Close()
			continue
		}

		stored, err := s.store(log, part, requested)
		_ = part.Close()
		switch {
		case err == nil:
			result.Files = append(result.Files, stored)
		case errors.Is(err, lderrors.ErrIO):
			log.Warn("file field abandoned", "field", part.FormName(), "file", requested, "error", err)
			result.Skipped++
		default:
			return result, err
		}
	}

	log.Info("upload finished", "files", len(result.Files), "skipped", result.Skipped)
	return result, nil
}

func (s *Service) store(log *logger.Logger, part *multipart.Part, requested string) (StoredFile, error) {
	stored := StoredFile{Field: part.FormName(), Requested: requested}

	dir, err := s.dir.Ensure()
	if err != nil {
		s.metrics.FileFinished(metrics.OutcomeFailed)
		return stored, fmt.Errorf("%w: %v", lderrors.ErrIO, err)
	}

	f, path, err := naming.Create(s.platform, dir, requested)
	if err != nil {
		s.metrics.FileFinished(metrics.OutcomeFailed)
		return stored, fmt.Errorf("%w: %v", lderrors.ErrIO, err)
	}
	stored.Path = path
	stored.Name = filepath.Base(path)

	s.events.Publish(domain.Started(stored.Name))

	bufp := s.bufs.Get().(*[]byte)
	defer s.bufs.Put(bufp)
	buf := *bufp

	var written int64
	for {
		n, rerr := fill(part, buf)
		if n > 0 {
			if written+int64(n) > s.maxSize {
				_ = f.Close()
				s.metrics.FileFinished(metrics.OutcomeTooLarge)
				log.Warn("file exceeds size limit", "file", stored.Name, "limit", s.maxSize, "written", written)
				return stored, fmt.Errorf("%w: %s exceeds %d bytes", lderrors.ErrPayloadTooLarge, stored.Name, s.maxSize)
			}
			if _, werr := f.Write(buf[:n]); werr != nil {
				_ = f.Close()
				s.metrics.FileFinished(metrics.OutcomeFailed)
				return stored, fmt.Errorf("%w: write %s: %v", lderrors.ErrIO, path, werr)
			}
			written += int64(n)
			s.metrics.BytesWritten(n)
			s.events.Publish(domain.Progress(stored.Name, uint64(written)))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			_ = f.Close()
			s.metrics.FileFinished(metrics.OutcomeFailed)
			return stored, fmt.Errorf("%w: reading %s: %v", lderrors.ErrMalformedRequest, stored.Name, rerr)
		}
	}

	// Done promises the bytes are on disk.
	if err := f.Sync(); err != nil {
		_ = f.Close()
		s.metrics.FileFinished(metrics.OutcomeFailed)
		return stored, fmt.Errorf("%w: sync %s: %v", lderrors.ErrIO, path, err)
	}
	if err := f.Close(); err != nil {
		s.metrics.FileFinished(metrics.OutcomeFailed)
		return stored, fmt.Errorf("%w: close %s: %v", lderrors.ErrIO, path, err)
	}

	stored.Size = written
	s.metrics.FileFinished(metrics.OutcomeDone)
	s.events.Publish(domain.Done(stored.Name))
	log.Info("file stored", "file", stored.Name, "requested", requested, "bytes", written)
	return stored, nil
}

// fill reads into buf until it is full or r fails. Unlike io.ReadFull it
// passes io.ErrUnexpectedEOF through, which a part reports when the body
// ends before the closing boundary.
func fill(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func parseBoundary(contentType string) (string, error) {
	if contentType == "" {
		return "", fmt.Errorf("%w: missing content type", lderrors.ErrMalformedRequest)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", lderrors.ErrMalformedRequest, err)
	}
	if mediaType != "multipart/form-data" {
		return "", fmt.Errorf("%w: unexpected content type %q", lderrors.ErrMalformedRequest, mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", fmt.Errorf("%w: missing boundary", lderrors.ErrMalformedRequest)
	}
	return boundary, nil
}

// fileName reports the filename parameter of the part's
// Content-Disposition. Part.FileName cannot tell an absent parameter from
// an empty one, and an empty one still marks a file field.
func fileName(part *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	name, ok := params["filename"]
	return name, ok
}
