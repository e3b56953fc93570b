package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Artifact paths in the blob store.
const (
	PayloadPath  = "payload.json"
	markdownType = "text/markdown; charset=utf-8"
	jsonType     = "application/json"
)

// RawPath is where scrape-only mode saves the cleaned primary text.
func RawPath(recordID string) string {
	return fmt.Sprintf("raw_%s.md", recordID)
}

// ListingPath is where scrape-only mode saves one cleaned listing.
func ListingPath(recordID, short string) string {
	return fmt.Sprintf("listing_%s_%s.md", recordID, short)
}

// ScrapedPath is where fetch-sources mode saves the stored document.
func ScrapedPath(recordID string) string {
	return fmt.Sprintf("scraped_%s.md", recordID)
}

// BrochurePath is where fetch-sources mode saves the brochure text.
func BrochurePath(recordID string) string {
	return fmt.Sprintf("brochure_%s.md", recordID)
}

type payload struct {
	Fields map[string]string `json:"fields"`
}

func (p *Processor) putText(ctx context.Context, path, text string) error {
	if p.deps.Blobs == nil {
		return fmt.Errorf("save %s: no artifact store configured", path)
	}
	if _, err := p.deps.Blobs.PutObject(ctx, path, markdownType, strings.NewReader(text)); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// dumpPayload saves the exact store payload for debugging. Failures are logged.
func (p *Processor) dumpPayload(ctx context.Context, fields map[string]string) {
	if p.deps.Blobs == nil {
		return
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload{Fields: fields}); err != nil {
		p.logger.Warn("encode payload dump", zap.Error(err))
		return
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")
	if _, err := p.deps.Blobs.PutObject(ctx, PayloadPath, jsonType, bytes.NewReader(data)); err != nil {
		p.logger.Warn("save payload dump", zap.Error(err))
	}
}

func (p *Processor) deleteArtifact(ctx context.Context, path string) {
	if err := p.deps.Blobs.DeleteObject(ctx, path); err != nil {
		p.logger.Warn("delete artifact", zap.String("path", path), zap.Error(err))
	}
}
