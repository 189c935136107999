package domain

import (
	"fmt"
	"io"
	"time"
)

type TaskStatus string

const (
	TaskIdle      TaskStatus = "idle"
	TaskUploading TaskStatus = "uploading"
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// UploadTask tracks the single in-flight upload-to-result cycle.
type UploadTask struct {
	ID        string     `json:"id"`
	FileName  string     `json:"file_name"`
	Status    TaskStatus `json:"status"`
	StartedAt time.Time  `json:"started_at,omitzero"`
}

// Sketch is one user-submitted file headed for analysis.
type Sketch struct {
	FileName string
	MimeType string
	Size     int64
	Data     io.Reader
}

// MaxSketchBytes caps uploads at 10 MB, matching the backend contract.
const MaxSketchBytes = 10 << 20

var acceptedMimeTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/jpg":  {},
}

// ValidateSketch rejects oversized or non-image files before any
// network call is made.
func ValidateSketch(s Sketch) error {
	if s.Size > MaxSketchBytes {
		return WrapError(ErrValidation, "validate sketch",
			fmt.Errorf("file size %d exceeds %d byte limit", s.Size, MaxSketchBytes))
	}
	if _, ok := acceptedMimeTypes[s.MimeType]; !ok {
		return WrapError(ErrValidation, "validate sketch",
			fmt.Errorf("unsupported media type %q, accepted: PNG, JPEG", s.MimeType))
	}
	return nil
}

// UploadReceipt is the raw response of the upload collaborator. The
// backend either embeds the full analysis or acknowledges with a task
// id that requires a follow-up score fetch.
type UploadReceipt struct {
	TaskID   string
	Analysis *RawAnalysis
}
