package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/invoice-extractor/internal/layout"
)

var errNoRecognizer = errors.New("no OCR engine configured")

// Word is one recognized word in pixel coordinates of the page image.
type Word struct {
	Text       string
	Box        image.Rectangle
	Confidence float64 // 0..100 as tesseract reports it
}

// WordRecognizer turns an encoded page image into word boxes.
type WordRecognizer interface {
	RecognizeWords(ctx context.Context, img []byte, lang string) ([]Word, error)
}

// Enhance prepares a scan for recognition: grayscale, contrast boost and a
// light sharpen. The result is PNG encoded.
func Enhance(data []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Extractor) extractImageFile(ctx context.Context, path string) (ExtractionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ExtractionResult{}, err
	}
	elements, meanConf, warns, err := e.recognizePage(ctx, data, 1)
	if err != nil {
		return ExtractionResult{Warnings: warns}, err
	}
	raw := joinWords(elements)
	return ExtractionResult{
		Elements:   elements,
		RawText:    raw,
		Pages:      1,
		Method:     "image-ocr",
		Language:   e.cfg.Language,
		Warnings:   warns,
		Confidence: blendConfidence(meanConf, heuristicConfidence(raw)),
	}, nil
}

// recognizePage runs the recognizer on a single page image and returns the
// words as elements on the given page, plus the mean word confidence in 0..1.
func (e *Extractor) recognizePage(ctx context.Context, data []byte, page int) ([]layout.Element, float64, []string, error) {
	if e.recognizer == nil {
		return nil, 0, nil, errNoRecognizer
	}
	var warns []string
	if e.cfg.Enhance {
		if enhanced, err := Enhance(data); err == nil {
			data = enhanced
		} else {
			warns = append(warns, err.Error())
			e.logger.Warn("ocr.enhance.failed", "page", page, "error", err)
		}
	}
	words, err := e.recognizer.RecognizeWords(ctx, data, e.cfg.Language)
	if err != nil {
		return nil, 0, warns, fmt.Errorf("recognize page %d: %w", page, err)
	}
	elements, meanConf := wordsToElements(words, page)
	return elements, meanConf, warns, nil
}

func wordsToElements(words []Word, page int) ([]layout.Element, float64) {
	elements := make([]layout.Element, 0, len(words))
	var sum float64
	var n int
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		el := layout.Element{
			Text:   w.Text,
			X:      float64(w.Box.Min.X),
			Y:      float64(w.Box.Min.Y),
			Width:  float64(w.Box.Dx()),
			Height: float64(w.Box.Dy()),
			Page:   page,
		}
		if w.Confidence >= 0 {
			c := w.Confidence / 100
			el.SourceConfidence = &c
			sum += c
			n++
		}
		elements = append(elements, el)
	}
	if n == 0 {
		return elements, 0
	}
	return elements, sum / float64(n)
}

func joinWords(elements []layout.Element) string {
	parts := make([]string, 0, len(elements))
	for _, el := range elements {
		parts = append(parts, el.Text)
	}
	return strings.Join(parts, " ")
}
