// Package tesseract adapts gosseract to the ocr.Engine interface.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"suiverify/internal/document/ocr"
)

// Engine keeps a fixed pool of Tesseract clients; a client serves one call at a time.
type Engine struct {
	pool chan *gosseract.Client
}

// New creates size clients. tessdataPrefix may be empty to use the system default.
func New(size int, tessdataPrefix string) *Engine {
	if size <= 0 {
		size = 1
	}
	e := &Engine{pool: make(chan *gosseract.Client, size)}
	for range size {
		c := gosseract.NewClient()
		if tessdataPrefix != "" {
			c.TessdataPrefix = tessdataPrefix
		}
		e.pool <- c
	}
	return e
}

// Recognize returns the text Tesseract reads from img under profile. The C
// call cannot be interrupted, so on cancellation the client returns to the
// pool only once the call finishes.
func (e *Engine) Recognize(ctx context.Context, img image.Image, profile ocr.Profile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode variant: %w", err)
	}

	var client *gosseract.Client
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case client = <-e.pool:
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() { e.pool <- client }()
		text, err := recognize(client, buf.Bytes(), profile)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}

func recognize(client *gosseract.Client, data []byte, profile ocr.Profile) (string, error) {
	if err := client.SetLanguage(profile.Languages...); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(profile.PSM)); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	// An empty whitelist clears one left by a previous profile.
	if err := client.SetWhitelist(profile.Whitelist); err != nil {
		return "", fmt.Errorf("set whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w", profile.ID, err)
	}
	return text, nil
}

// Close releases every client. It must not race with Recognize.
func (e *Engine) Close() error {
	var firstErr error
	for range cap(e.pool) {
		c := <-e.pool
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ ocr.Engine = (*Engine)(nil)
