package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"landrop/internal/landrop/domain"
	"landrop/internal/landrop/pubsub"
	"landrop/pkg/logger"
)

// handleEvents streams upload events as Server-Sent Events until the
// observer disconnects or the broadcaster shuts down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	flusher, ok := flusherOf(w)
	if !ok {
		writeText(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := s.events.Subscribe()
	if errors.Is(err, pubsub.ErrBroadcasterClosed) {
		writeText(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		log.Error("subscribe failed", "error", err)
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer sub.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Info("observer connected", "subscription", sub.ID())
	defer func() {
		log.Info("observer disconnected", "subscription", sub.ID(), "dropped", sub.Dropped())
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			log.Debug("event stream ended", "reason", sub.Err())
			return
		case ev := <-sub.Events():
			if err := writeEvent(w, ev); err != nil {
				log.Debug("event write failed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, ev domain.UploadEvent) error {
	data, err := ev.Record()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// flusherOf finds a Flusher on w or any writer it wraps.
func flusherOf(w http.ResponseWriter) (http.Flusher, bool) {
	for {
		if f, ok := w.(http.Flusher); ok {
			return f, true
		}
		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return nil, false
		}
		w = u.Unwrap()
	}
}
