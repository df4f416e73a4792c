// Package tesseract recognizes word boxes through the Tesseract engine via
// gosseract. It requires libtesseract at build and run time. On Debian/Ubuntu:
//
//	apt-get install libtesseract-dev tesseract-ocr-deu tesseract-ocr-eng
package tesseract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
)

var _ ocr.WordRecognizer = (*Client)(nil)

// Client wraps a single gosseract client. Tesseract handles are not safe for
// concurrent use, so recognition is serialized.
type Client struct {
	mu      sync.Mutex
	client  *gosseract.Client
	current string
}

// New creates a recognizer. tessdata may be empty to use the system default.
// The client should be closed when no longer needed.
func New(tessdata string) (*Client, error) {
	client := gosseract.NewClient()
	if tessdata != "" {
		if err := client.SetTessdataPrefix(tessdata); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// RecognizeWords returns word-level boxes for an encoded image. lang accepts
// tesseract's "deu+eng" form.
func (c *Client) RecognizeWords(ctx context.Context, img []byte, lang string) ([]ocr.Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if lang != "" && lang != c.current {
		if err := c.client.SetLanguage(strings.Split(lang, "+")...); err != nil {
			return nil, fmt.Errorf("set language %q: %w", lang, err)
		}
		c.current = lang
	}
	if err := c.client.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := c.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	words := make([]ocr.Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, ocr.Word{Text: b.Word, Box: b.Box, Confidence: b.Confidence})
	}
	return words, nil
}
