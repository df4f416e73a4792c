package assemble

import (
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// Metadata is what the caller knows about a file before it is analysed.
type Metadata struct {
	FileID      *uuid.UUID
	FileName    string
	SourcePath  string
	FileSize    int64
	ContentHash string
	Format      constants.SourceFormat
	UploadedAt  time.Time
}

// Assemble merges caller metadata with a normalized document into a record.
// The document is copied so later edits to doc cannot leak into the record.
func Assemble(meta Metadata, doc entity.ExtractedDocument, text, sourceMethod string) entity.DocumentRecord {
	return entity.DocumentRecord{
		ID:                uuid.New(),
		FileID:            meta.FileID,
		FileName:          meta.FileName,
		SourcePath:        meta.SourcePath,
		FileSize:          meta.FileSize,
		ContentHash:       meta.ContentHash,
		Format:            meta.Format,
		SourceMethod:      sourceMethod,
		UploadedAt:        meta.UploadedAt,
		ProcessedAt:       time.Now().UTC(),
		Status:            constants.RecordStatusOK,
		Document:          doc.Clone(),
		ReconstructedText: text,
	}
}

// Failed builds the record for a file the source adapter could not read: empty
// extraction data, zero confidence and the error message.
func Failed(meta Metadata, err error) entity.DocumentRecord {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return entity.DocumentRecord{
		ID:           uuid.New(),
		FileID:       meta.FileID,
		FileName:     meta.FileName,
		SourcePath:   meta.SourcePath,
		FileSize:     meta.FileSize,
		ContentHash:  meta.ContentHash,
		Format:       meta.Format,
		UploadedAt:   meta.UploadedAt,
		ProcessedAt:  time.Now().UTC(),
		Status:       constants.RecordStatusFailed,
		ErrorMessage: &msg,
		Document:     Empty(),
	}
}

// Empty is the document attached to failed records.
func Empty() entity.ExtractedDocument {
	return entity.ExtractedDocument{
		DocumentType: constants.DocumentOther,
		Currency:     constants.DefaultCurrency,
		Items:        []entity.LineItem{},
		Confidence:   0,
	}
}
