package domain

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle stage an UploadEvent reports.
type Status string

const (
	StatusStarted  Status = "started"
	StatusProgress Status = "progress"
	StatusDone     Status = "done"
)

// UploadEvent reports one step of a single file's upload. Bytes is set only
// for progress events and carries the cumulative count written so far.
type UploadEvent struct {
	File   string  `json:"file"`
	Status Status  `json:"status"`
	Bytes  *uint64 `json:"bytes,omitempty"`
}

func Started(file string) UploadEvent {
	return UploadEvent{File: file, Status: StatusStarted}
}

func Progress(file string, written uint64) UploadEvent {
	return UploadEvent{File: file, Status: StatusProgress, Bytes: &written}
}

func Done(file string) UploadEvent {
	return UploadEvent{File: file, Status: StatusDone}
}

// BytesWritten returns the cumulative count, or 0 for non-progress events.
func (e UploadEvent) BytesWritten() uint64 {
	if e.Bytes == nil {
		return 0
	}
	return *e.Bytes
}

// Validate checks the Bytes/Status pairing.
func (e UploadEvent) Validate() error {
	switch e.Status {
	case StatusProgress:
		if e.Bytes == nil {
			return fmt.Errorf("progress event for %q without byte count", e.File)
		}
	case StatusStarted, StatusDone:
		if e.Bytes != nil {
			return fmt.Errorf("%s event for %q must not carry a byte count", e.Status, e.File)
		}
	default:
		return fmt.Errorf("unknown event status %q", e.Status)
	}
	return nil
}

// Record renders the single-line JSON record sent to observers.
func (e UploadEvent) Record() ([]byte, error) {
	return json.Marshal(e)
}

func (e UploadEvent) String() string {
	if e.Bytes != nil {
		return fmt.Sprintf("%s %s %d", e.File, e.Status, *e.Bytes)
	}
	return fmt.Sprintf("%s %s", e.File, e.Status)
}

// ParseUploadEvent decodes a record produced by Record.
func ParseUploadEvent(data []byte) (UploadEvent, error) {
	var ev UploadEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return UploadEvent{}, fmt.Errorf("invalid upload event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return UploadEvent{}, err
	}
	return ev, nil
}
