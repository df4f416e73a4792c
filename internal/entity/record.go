package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// DocumentRecord is the per-file outcome of one processing run: caller metadata,
// the extracted document and the reconstructed text it was derived from.
type DocumentRecord struct {
	ID                uuid.UUID              `json:"id"`
	FileID            *uuid.UUID             `json:"file_id,omitempty"`
	FileName          string                 `json:"file_name"`
	SourcePath        string                 `json:"source_path"`
	FileSize          int64                  `json:"file_size"`
	ContentHash       string                 `json:"content_hash,omitempty"`
	Format            constants.SourceFormat `json:"format,omitempty"`
	SourceMethod      string                 `json:"source_method,omitempty"`
	UploadedAt        time.Time              `json:"uploaded_at"`
	ProcessedAt       time.Time              `json:"processed_at"`
	Status            constants.RecordStatus `json:"status"`
	ErrorMessage      *string                `json:"error_message,omitempty"`
	Document          ExtractedDocument      `json:"document"`
	ReconstructedText string                 `json:"reconstructed_text,omitempty"`
}

// Failed reports whether the source adapter could not read the file.
func (r DocumentRecord) Failed() bool {
	return r.Status == constants.RecordStatusFailed
}
