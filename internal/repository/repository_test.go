package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func ptr[T any](v T) *T { return &v }

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"}, nil)
	require.Error(t, err)
	assert.Equal(t, common.CodeConfig, common.CodeOf(err))
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.HealthCheck(context.Background(), time.Second))
	assert.Equal(t, DriverSQLite, db.Driver())
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	lite := &DB{driver: DriverSQLite}
	q := `SELECT a FROM t WHERE b = ? AND c = ?`
	assert.Equal(t, `SELECT a FROM t WHERE b = $1 AND c = $2`, pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestSourceFiles_UpsertByHashDeduplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewSourceFileRepository(openMemory(t), nil)
	hash := []byte{0xde, 0xad, 0xbe, 0xef}
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	first, dedup, err := repo.UpsertByHash(ctx, "/in/a.pdf", "a.pdf", "pdf", 1234, hash, now)
	require.NoError(t, err)
	assert.False(t, dedup)

	second, dedup, err := repo.UpsertByHash(ctx, "/in/copy-of-a.pdf", "copy-of-a.pdf", "pdf", 1234, hash, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, dedup)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "/in/a.pdf", second.SourcePath)
	assert.Equal(t, hash, second.ContentHash)
	assert.True(t, now.Equal(second.UploadedAt))

	byID, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), byID.FileSize)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func sampleRecord(status constants.RecordStatus, processed time.Time) entity.DocumentRecord {
	return entity.DocumentRecord{
		ID:           uuid.New(),
		FileName:     "inv.pdf",
		SourcePath:   "/in/inv.pdf",
		FileSize:     99,
		ContentHash:  "abc",
		Format:       constants.FormatPDF,
		SourceMethod: "pdf-text",
		UploadedAt:   processed.Add(-time.Minute),
		ProcessedAt:  processed,
		Status:       status,
		Document: entity.ExtractedDocument{
			DocumentType:   constants.DocumentInvoice,
			DocumentNumber: ptr("R-1"),
			Currency:       "EUR",
			Items: []entity.LineItem{
				{Position: 1, Description: "Bolt", Quantity: ptr(2.0), TotalPrice: ptr(4.5)},
			},
			Totals:         entity.Totals{TotalAmount: ptr(4.5)},
			Confidence:     0.98,
			AnalysisMethod: constants.MethodLLM,
		},
		ReconstructedText: "Invoice R-1\nBolt\t4,50",
	}
}

func TestDocuments_SaveGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	files := NewSourceFileRepository(db, nil)
	docs := NewDocumentRepository(db, nil)

	f, _, err := files.UpsertByHash(ctx, "/in/inv.pdf", "inv.pdf", "pdf", 99, []byte{1, 2}, time.Now())
	require.NoError(t, err)

	rec := sampleRecord(constants.RecordStatusOK, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	rec.FileID = &f.ID
	require.NoError(t, docs.Save(ctx, rec))

	got, err := docs.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	require.NotNil(t, got.FileID)
	assert.Equal(t, f.ID, *got.FileID)
	assert.Equal(t, rec.Document, got.Document)
	assert.Equal(t, rec.ReconstructedText, got.ReconstructedText)
	assert.Nil(t, got.ErrorMessage)
	assert.True(t, rec.ProcessedAt.Equal(got.ProcessedAt))

	_, err = docs.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDocuments_SaveReplacesExisting(t *testing.T) {
	ctx := context.Background()
	docs := NewDocumentRepository(openMemory(t), nil)

	rec := sampleRecord(constants.RecordStatusOK, time.Now())
	require.NoError(t, docs.Save(ctx, rec))

	rec.Document.DocumentNumber = ptr("R-2")
	require.NoError(t, docs.Save(ctx, rec))

	got, err := docs.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "R-2", *got.Document.DocumentNumber)

	all, err := docs.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDocuments_ListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	docs := NewDocumentRepository(openMemory(t), nil)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	older := sampleRecord(constants.RecordStatusOK, base)
	newer := sampleRecord(constants.RecordStatusOK, base.Add(1500*time.Millisecond))
	failed := sampleRecord(constants.RecordStatusFailed, base.Add(time.Second))
	failed.ErrorMessage = ptr("ADAPTER_FAILURE: boom")
	for _, r := range []entity.DocumentRecord{older, newer, failed} {
		require.NoError(t, docs.Save(ctx, r))
	}

	ok, err := docs.List(ctx, ListFilter{Status: constants.RecordStatusOK})
	require.NoError(t, err)
	require.Len(t, ok, 2)
	assert.Equal(t, newer.ID, ok[0].ID)
	assert.Equal(t, older.ID, ok[1].ID)

	bad, err := docs.List(ctx, ListFilter{Status: constants.RecordStatusFailed})
	require.NoError(t, err)
	require.Len(t, bad, 1)
	require.NotNil(t, bad[0].ErrorMessage)
	assert.Equal(t, "ADAPTER_FAILURE: boom", *bad[0].ErrorMessage)

	limited, err := docs.List(ctx, ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
