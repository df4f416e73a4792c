package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/assemble"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

// FSIngestor reads from the local filesystem. With a FilesRepo, duplicates are
// detected across runs; without one, only within the ingestor's lifetime.
type FSIngestor struct {
	FilesRepo   repository.SourceFileRepository
	AllowedExts map[string]struct{} // lowercased sans '.'; nil -> constants.AllowedExtensions
	Logger      *slog.Logger

	mu   sync.Mutex
	seen map[string]string // hash hex -> first path
}

func NewFSIngestor(files repository.SourceFileRepository, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{FilesRepo: files, Logger: logger, seen: map[string]string{}}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult
	log := common.LoggerFrom(ctx, i.logger())

	abs, err := filepath.Abs(path)
	if err != nil {
		log.Error("ingest.abs_failed", "path", path, "error", err)
		return out, err
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !i.allowed(ext) {
		log.Warn("ingest.unsupported", "path", abs, "ext", ext)
		return out, fmt.Errorf("extension %q: %w", ext, common.ErrUnsupportedFormat)
	}
	format, _ := constants.MapExtToFormat(ext)

	sum, size, err := hashFile(abs)
	if err != nil {
		log.Error("ingest.hash_failed", "path", abs, "error", err)
		return out, err
	}
	hashHex := hex.EncodeToString(sum)
	now := time.Now().UTC()

	out = IngestionResult{
		SourcePath: abs,
		HashHex:    hashHex,
		FileExt:    ext,
		UploadedAt: now,
		Meta: assemble.Metadata{
			FileName:    filepath.Base(abs),
			SourcePath:  abs,
			FileSize:    size,
			ContentHash: hashHex,
			Format:      format,
			UploadedAt:  now,
		},
	}

	if i.FilesRepo != nil {
		row, dedup, err := i.FilesRepo.UpsertByHash(ctx, abs, filepath.Base(abs), ext, size, sum, now)
		if err != nil {
			return IngestionResult{}, err
		}
		id := row.ID
		out.Meta.FileID = &id
		out.Deduplicated = dedup
		if dedup {
			out.UploadedAt = row.UploadedAt
			out.Meta.UploadedAt = row.UploadedAt
		}
	} else {
		out.Deduplicated = i.markSeen(hashHex, abs)
	}

	log.Debug("ingest.file", "path", abs, "hash", hashHex, "dedup", out.Deduplicated)
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !i.allowed(constants.NormalizeExt(filepath.Ext(path))) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	i.logger().Info("ingest.directory",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func (i *FSIngestor) allowed(ext string) bool {
	if i.AllowedExts == nil {
		return AllowedExt(ext)
	}
	_, ok := i.AllowedExts[constants.NormalizeExt(ext)]
	return ok
}

func (i *FSIngestor) markSeen(hashHex, path string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.seen == nil {
		i.seen = map[string]string{}
	}
	if _, ok := i.seen[hashHex]; ok {
		return true
	}
	i.seen[hashHex] = path
	return false
}

func (i *FSIngestor) logger() *slog.Logger {
	if i.Logger == nil {
		return slog.Default()
	}
	return i.Logger
}

func hashFile(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, 0, fmt.Errorf("hash: %w", err)
	}
	return h.Sum(nil), n, nil
}
