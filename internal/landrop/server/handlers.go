package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"landrop/internal/landrop/domain"
	"landrop/internal/landrop/netinfo"
	lderrors "landrop/pkg/errors"
	"landrop/pkg/logger"
)

//go:embed assets/index.html assets/main.js
var assets embed.FS

const maxSetDirBody = 64 * 1024

// statusFor maps ingest and registry errors to response codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, lderrors.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, lderrors.ErrMalformedRequest),
		errors.Is(err, lderrors.ErrDirectory),
		errors.Is(err, context.Canceled):
		return http.StatusBadRequest
	case errors.Is(err, lderrors.ErrUnroutable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(code int) string {
	switch code {
	case http.StatusOK:
		return "ok"
	case http.StatusRequestEntityTooLarge:
		return "file too large"
	case http.StatusBadRequest:
		return "invalid multipart"
	default:
		return http.StatusText(code)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, r, "assets/index.html", "text/html; charset=utf-8")
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	s.serveAsset(w, r, "assets/main.js", "application/javascript; charset=utf-8")
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request, name, contentType string) {
	data, err := assets.ReadFile(name)
	if err != nil {
		logger.FromContext(r.Context(), s.logger).Error("embedded asset missing", "asset", name, "error", err)
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	res, err := s.uploader.Handle(r.Context(), r.Body, r.Header.Get("Content-Type"))
	code := statusFor(err)
	if s.opts.Metrics != nil {
		s.opts.Metrics.UploadRequest(strconv.Itoa(code))
	}
	if err != nil {
		stored := 0
		if res != nil {
			stored = len(res.Files)
		}
		log.Warn("upload rejected", "status", code, "stored", stored, "error", err)
		writeText(w, code, messageFor(code))
		return
	}

	writeText(w, http.StatusOK, "ok")
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	ips, err := netinfo.LANAddresses(s.platform)
	if err != nil {
		logger.FromContext(r.Context(), s.logger).Warn("could not list interfaces", "error", err)
		ips = []string{}
	}

	writeJSON(w, http.StatusOK, domain.Info{
		IPs:  ips,
		Port: s.opts.Port,
		Dir:  s.registry.Get(),
	})
}

func (s *Server) handleSetDir(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	var req domain.SetDirRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSetDirBody)).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := s.registry.Set(req.Dir); err != nil {
		log.Warn("set_dir rejected", "dir", req.Dir, "error", err)
		writeText(w, statusFor(err), err.Error())
		return
	}

	writeText(w, http.StatusOK, "ok")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
