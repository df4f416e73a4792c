package repository

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

type SourceFileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (entity.SourceFile, error)
	GetByHash(ctx context.Context, hash []byte) (entity.SourceFile, error)
	Create(ctx context.Context, sourcePath, filename, ext string, size int64, hash []byte, uploadedAt time.Time) (entity.SourceFile, error)
	UpsertByHash(ctx context.Context, sourcePath, filename, ext string, size int64, hash []byte, uploadedAt time.Time) (entity.SourceFile, bool, error)
}

type sourceFileRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewSourceFileRepository(db *DB, logger *slog.Logger) SourceFileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &sourceFileRepo{db: db, logger: logger}
}

const selectSourceFile = `SELECT id, source_path, filename, file_ext, file_size, content_hash, uploaded_at FROM source_files`

func (r *sourceFileRepo) GetByID(ctx context.Context, id uuid.UUID) (entity.SourceFile, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(selectSourceFile+` WHERE id = ?`), id.String())
	return scanSourceFile(row)
}

func (r *sourceFileRepo) GetByHash(ctx context.Context, hash []byte) (entity.SourceFile, error) {
	row := r.db.SQL.QueryRowContext(ctx, r.db.rebind(selectSourceFile+` WHERE content_hash = ?`), hex.EncodeToString(hash))
	return scanSourceFile(row)
}

func (r *sourceFileRepo) Create(ctx context.Context, sourcePath, filename, ext string, size int64, hash []byte, uploadedAt time.Time) (entity.SourceFile, error) {
	f := entity.SourceFile{
		ID:          uuid.New(),
		SourcePath:  sourcePath,
		ContentHash: hash,
		Filename:    filename,
		FileExt:     ext,
		FileSize:    size,
		UploadedAt:  uploadedAt.UTC(),
	}
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(
		`INSERT INTO source_files (id, source_path, filename, file_ext, file_size, content_hash, uploaded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		f.ID.String(), f.SourcePath, f.Filename, f.FileExt, f.FileSize, hex.EncodeToString(hash), formatTime(f.UploadedAt),
	)
	if err != nil {
		r.logger.Error("repository.file.create_failed", "source_path", sourcePath, "filename", filename, "error", err)
		return entity.SourceFile{}, storeErr("create source file", err)
	}
	return f, nil
}

// UpsertByHash returns the existing row for hash, or creates one. The bool is
// true when the file was already known.
func (r *sourceFileRepo) UpsertByHash(ctx context.Context, sourcePath, filename, ext string, size int64, hash []byte, uploadedAt time.Time) (entity.SourceFile, bool, error) {
	existing, err := r.GetByHash(ctx, hash)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return entity.SourceFile{}, false, err
	}
	row, err := r.Create(ctx, sourcePath, filename, ext, size, hash, uploadedAt)
	if err != nil {
		return entity.SourceFile{}, false, err
	}
	return row, false, nil
}

func scanSourceFile(row *sql.Row) (entity.SourceFile, error) {
	var (
		f                       entity.SourceFile
		id, hashHex, uploadedAt string
	)
	if err := row.Scan(&id, &f.SourcePath, &f.Filename, &f.FileExt, &f.FileSize, &hashHex, &uploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.SourceFile{}, common.ErrNotFound
		}
		return entity.SourceFile{}, storeErr("scan source file", err)
	}
	var err error
	if f.ID, err = uuid.Parse(id); err != nil {
		return entity.SourceFile{}, storeErr("parse id", err)
	}
	if f.ContentHash, err = hex.DecodeString(hashHex); err != nil {
		return entity.SourceFile{}, storeErr("decode hash", err)
	}
	if f.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return entity.SourceFile{}, storeErr("scan source file", err)
	}
	return f, nil
}
