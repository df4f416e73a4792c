package ocr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/invoice-extractor/internal/layout"
)

// glyph is one text run as the PDF content stream draws it. Y is the
// bottom-up baseline.
type glyph struct {
	S    string
	X, Y float64
	W    float64
	Size float64
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	elements, pages, err := e.pdfTextLayer(path)
	if err != nil {
		e.logger.Warn("ocr.pdf.text_layer_failed", "path", path, "error", err)
	}
	raw := joinWords(elements)
	if countRunes(raw) >= e.cfg.MinTextLayerRunes {
		return ExtractionResult{
			Elements:   elements,
			RawText:    raw,
			Pages:      pages,
			Method:     "pdf-text",
			Confidence: heuristicConfidence(raw),
		}, nil
	}

	e.logger.Info("ocr.pdf.scanned", "path", path, "text_layer_runes", countRunes(raw))
	res, ocrErr := e.pdfToOCR(ctx, path)
	if ocrErr == nil {
		return res, nil
	}
	if len(elements) > 0 {
		return ExtractionResult{
			Elements:   elements,
			RawText:    raw,
			Pages:      pages,
			Method:     "pdf-text",
			Warnings:   []string{ocrErr.Error()},
			Confidence: heuristicConfidence(raw),
		}, nil
	}
	return res, errors.Join(err, ocrErr)
}

// pdfTextLayer reads positioned glyphs from every page and merges them into
// word elements in top-down coordinates.
func (e *Extractor) pdfTextLayer(path string) (elements []layout.Element, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages = r.NumPage()
	limit := pages
	if e.cfg.MaxPages > 0 && limit > e.cfg.MaxPages {
		limit = e.cfg.MaxPages
	}
	for i := 1; i <= limit; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content := p.Content()
		glyphs := make([]glyph, 0, len(content.Text))
		for _, t := range content.Text {
			glyphs = append(glyphs, glyph{S: t.S, X: t.X, Y: t.Y, W: t.W, Size: t.FontSize})
		}
		elements = append(elements, mergeGlyphs(glyphs, pageHeight(p, glyphs), i)...)
	}
	return elements, pages, nil
}

// pageHeight reads the MediaBox, falling back to the highest glyph top.
func pageHeight(p pdf.Page, glyphs []glyph) float64 {
	box := p.V.Key("MediaBox")
	if box.Kind() == pdf.Array && box.Len() == 4 {
		if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
			return h
		}
	}
	var top float64
	for _, g := range glyphs {
		top = math.Max(top, g.Y+g.Size)
	}
	return top
}

// mergeGlyphs joins consecutive glyphs on the same baseline into words. A
// whitespace glyph, a baseline change or a gap wider than a third of the font
// size starts a new word.
func mergeGlyphs(glyphs []glyph, height float64, page int) []layout.Element {
	var (
		out  []layout.Element
		cur  strings.Builder
		word glyph
		end  float64
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		out = append(out, layout.Element{
			Text:   cur.String(),
			X:      word.X,
			Y:      layout.FlipY(height, word.Y+word.Size),
			Width:  end - word.X,
			Height: word.Size,
			Page:   page,
		})
		cur.Reset()
	}
	for _, g := range glyphs {
		if strings.TrimFunc(g.S, unicode.IsSpace) == "" {
			flush()
			continue
		}
		if cur.Len() > 0 {
			tol := math.Max(word.Size, g.Size) / 3
			if tol <= 0 {
				tol = 1
			}
			gap := g.X - end
			if math.Abs(g.Y-word.Y) > tol || gap > tol || gap < -tol {
				flush()
			}
		}
		if cur.Len() == 0 {
			word = g
		}
		cur.WriteString(g.S)
		end = g.X + g.W
	}
	flush()
	return out
}

// pdfToOCR rasterizes the PDF with pdftoppm and recognizes every page.
func (e *Extractor) pdfToOCR(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{Method: "pdf-ocr", Language: e.cfg.Language}
	if e.recognizer == nil {
		return res, errNoRecognizer
	}
	tmpDir, err := os.MkdirTemp("", "docx-pp-*")
	if err != nil {
		return res, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.pdf.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		res.Warnings = append(res.Warnings, string(errb))
		return res, fmt.Errorf("pdftoppm: %w", err)
	}

	// prefix-1.png, prefix-2.png, ... zero padded by pdftoppm for larger documents
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		res.Warnings = append(res.Warnings, "pdftoppm produced no images")
		return res, errors.New("no pages rendered")
	}

	var sum float64
	var scored int
	for i, img := range matches {
		data, err := os.ReadFile(img)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}
		elements, conf, warns, err := e.recognizePage(ctx, data, i+1)
		res.Warnings = append(res.Warnings, warns...)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}
		res.Elements = append(res.Elements, elements...)
		if conf > 0 {
			sum += conf
			scored++
		}
	}
	res.Pages = len(matches)
	if len(res.Elements) == 0 {
		return res, errors.New("no text recognized on any page")
	}
	res.RawText = joinWords(res.Elements)
	var mean float64
	if scored > 0 {
		mean = sum / float64(scored)
	}
	res.Confidence = blendConfidence(mean, heuristicConfidence(res.RawText))
	return res, nil
}

func countRunes(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
