package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

type DocumentRepository interface {
	Save(ctx context.Context, rec entity.DocumentRecord) error
	Get(ctx context.Context, id uuid.UUID) (entity.DocumentRecord, error)
	List(ctx context.Context, filter ListFilter) ([]entity.DocumentRecord, error)
}

// ListFilter narrows List. Zero values mean no restriction; Limit defaults to 100.
type ListFilter struct {
	Status      constants.RecordStatus
	ContentHash string
	Limit       int
}

type documentRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger}
}

const selectDocument = `SELECT id, file_id, file_name, source_path, file_size, content_hash, format,
	source_method, status, error_message, document_json, reconstructed_text, uploaded_at, processed_at
	FROM document_records`

// Save inserts rec or replaces the stored record with the same id.
func (r *documentRepo) Save(ctx context.Context, rec entity.DocumentRecord) error {
	docJSON, err := json.Marshal(rec.Document)
	if err != nil {
		return storeErr("marshal document", err)
	}
	var fileID any
	if rec.FileID != nil {
		fileID = rec.FileID.String()
	}
	var docNumber any
	if rec.Document.DocumentNumber != nil {
		docNumber = *rec.Document.DocumentNumber
	}
	var errMsg any
	if rec.ErrorMessage != nil {
		errMsg = *rec.ErrorMessage
	}

	_, err = r.db.SQL.ExecContext(ctx, r.db.rebind(`
		INSERT INTO document_records (
			id, file_id, file_name, source_path, file_size, content_hash, format,
			source_method, status, error_message, document_type, document_number,
			analysis_method, confidence, document_json, reconstructed_text, uploaded_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			document_type = excluded.document_type,
			document_number = excluded.document_number,
			analysis_method = excluded.analysis_method,
			confidence = excluded.confidence,
			document_json = excluded.document_json,
			reconstructed_text = excluded.reconstructed_text,
			processed_at = excluded.processed_at`),
		rec.ID.String(), fileID, rec.FileName, rec.SourcePath, rec.FileSize, rec.ContentHash, string(rec.Format),
		rec.SourceMethod, string(rec.Status), errMsg, string(rec.Document.DocumentType), docNumber,
		rec.Document.AnalysisMethod, rec.Document.Confidence, string(docJSON), rec.ReconstructedText,
		formatTime(rec.UploadedAt), formatTime(rec.ProcessedAt),
	)
	if err != nil {
		r.logger.Error("repository.document.save_failed", "id", rec.ID, "file", rec.FileName, "error", err)
		return storeErr("save document record", err)
	}
	r.logger.Debug("repository.document.saved", "id", rec.ID, "status", rec.Status)
	return nil
}

func (r *documentRepo) Get(ctx context.Context, id uuid.UUID) (entity.DocumentRecord, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(selectDocument+` WHERE id = ?`), id.String())
	if err != nil {
		return entity.DocumentRecord{}, storeErr("get document record", err)
	}
	recs, err := scanDocuments(rows)
	if err != nil {
		return entity.DocumentRecord{}, err
	}
	if len(recs) == 0 {
		return entity.DocumentRecord{}, common.ErrNotFound
	}
	return recs[0], nil
}

// List returns records ordered by processing time, newest first.
func (r *documentRepo) List(ctx context.Context, filter ListFilter) ([]entity.DocumentRecord, error) {
	query := selectDocument + ` WHERE 1 = 1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.ContentHash != "" {
		query += ` AND content_hash = ?`
		args = append(args, filter.ContentHash)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY processed_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, storeErr("list document records", err)
	}
	return scanDocuments(rows)
}

func scanDocuments(rows *sql.Rows) ([]entity.DocumentRecord, error) {
	defer rows.Close()
	var out []entity.DocumentRecord
	for rows.Next() {
		var (
			rec                     entity.DocumentRecord
			id                      string
			fileID, errMsg          sql.NullString
			format, status, docJSON string
			uploadedAt, processedAt string
		)
		if err := rows.Scan(&id, &fileID, &rec.FileName, &rec.SourcePath, &rec.FileSize, &rec.ContentHash, &format,
			&rec.SourceMethod, &status, &errMsg, &docJSON, &rec.ReconstructedText, &uploadedAt, &processedAt); err != nil {
			return nil, storeErr("scan document record", err)
		}
		var err error
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, storeErr("parse id", err)
		}
		if fileID.Valid {
			fid, err := uuid.Parse(fileID.String)
			if err != nil {
				return nil, storeErr("parse file id", err)
			}
			rec.FileID = &fid
		}
		if errMsg.Valid {
			msg := errMsg.String
			rec.ErrorMessage = &msg
		}
		rec.Format = constants.SourceFormat(format)
		rec.Status = constants.RecordStatus(status)
		if err := json.Unmarshal([]byte(docJSON), &rec.Document); err != nil {
			return nil, storeErr("unmarshal document", err)
		}
		if rec.UploadedAt, err = parseTime(uploadedAt); err != nil {
			return nil, storeErr("scan document record", err)
		}
		if rec.ProcessedAt, err = parseTime(processedAt); err != nil {
			return nil, storeErr("scan document record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, nil
		}
		return nil, storeErr("iterate document records", err)
	}
	return out, nil
}
