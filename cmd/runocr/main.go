package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/layout"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr/tesseract"
)

// runocr prints the layout-reconstructed text of one file, without field
// extraction. Useful for tuning OCR and reconstruction settings.
func main() {
	raw := flag.Bool("raw", false, "print the adapter's raw text instead of the reconstruction")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr [-raw] <file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("config.load_failed", "error", err)
		os.Exit(1)
	}

	var opts []ocr.Option
	tess, err := tesseract.New(cfg.Source.TessdataDir)
	if err != nil {
		logger.Warn("ocr.engine_unavailable", "error", err)
	} else {
		defer tess.Close()
		opts = append(opts, ocr.WithRecognizer(tess))
	}
	src := ocr.NewExtractor(ocr.Config{
		Pdftoppm: cfg.Source.Pdftoppm,
		Language: cfg.Source.Language,
		DPI:      cfg.Source.DPI,
		MaxPages: cfg.Source.MaxPages,
		Enhance:  cfg.Source.Enhance,
	}, logger, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Batch.FileTimeout)
	defer cancel()

	start := time.Now()
	res, err := src.Extract(ctx, path)
	if err != nil {
		logger.Error("runocr.failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	text := res.RawText
	if res.HasGeometry() && !*raw {
		text = layout.Reconstruct(layout.Clean(res.Elements))
	}
	logger.Info("runocr.ok",
		"method", res.Method,
		"pages", res.Pages,
		"elements", len(res.Elements),
		"confidence", res.Confidence,
		"warnings", len(res.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	fmt.Println(text)
}
