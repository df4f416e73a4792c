package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/layout"
)

type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"

	Language string // tesseract language(s), default "eng"
	DPI      int    // rasterization DPI for scanned PDFs, default 300
	MaxPages int    // 0 = no limit

	// MinTextLayerRunes is the number of non-space runes a PDF text layer must
	// carry before the rasterize-and-OCR path is skipped.
	MinTextLayerRunes int

	// Enhance runs grayscale/contrast/sharpen on images before recognition.
	Enhance bool
}

// ExtractionResult is what a source adapter hands to the reconstructor. Elements
// is empty when the source has no geometry; RawText is then used as-is.
type ExtractionResult struct {
	Elements   []layout.Element
	RawText    string
	Pages      int
	SourceType constants.SourceFormat
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr" | "spreadsheet" | "text"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float64
}

// HasGeometry reports whether the result carries positioned elements.
func (r ExtractionResult) HasGeometry() bool {
	return len(r.Elements) > 0
}

type Extractor struct {
	cfg        Config
	runner     Runner
	recognizer WordRecognizer
	logger     *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the exec runner used for pdftoppm.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithRecognizer sets the OCR engine used for images and scanned PDFs.
func WithRecognizer(r WordRecognizer) Option {
	return func(e *Extractor) { e.recognizer = r }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextLayerRunes <= 0 {
		cfg.MinTextLayerRunes = 20
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract picks an adapter based on file extension. Any error is an
// ADAPTER_FAILURE; the caller turns it into a failed record.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	format, ok := constants.MapExtToFormat(ext)
	if !ok {
		e.logger.Error("ocr.unsupported", "path", path, "ext", ext)
		return ExtractionResult{}, common.AdapterFailure(
			fmt.Sprintf("extension %q", ext), common.ErrUnsupportedFormat)
	}
	if _, err := os.Stat(path); err != nil {
		return ExtractionResult{SourceType: format}, common.AdapterFailure("stat source", err)
	}
	e.logger.Debug("ocr.start", "path", path, "format", format)

	var (
		res ExtractionResult
		err error
	)
	switch format {
	case constants.FormatPDF:
		res, err = e.extractPDF(ctx, path)
	case constants.FormatImage:
		res, err = e.extractImageFile(ctx, path)
	case constants.FormatSpreadsheet:
		res, err = e.extractSpreadsheet(path, ext)
	case constants.FormatText:
		res, err = e.extractText(path)
	}
	res.SourceType = format
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("ocr.failed", "path", path, "format", format, "error", err)
		return res, common.AdapterFailure(string(format)+" adapter", err)
	}
	e.logger.Info("ocr.ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"elements", len(res.Elements),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
