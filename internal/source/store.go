// Package source loads immutable, paragraph-addressable documents used as
// ground truth for claims. Documents are never mutated by the core;
// paragraph IDs are stable within a document version.
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paragraph is one addressable unit of a source document.
type Paragraph struct {
	ID    string `json:"id"` // "<doc>#p<NNNN>", stable within a version
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Document is an immutable ground-truth text with stable paragraph IDs.
type Document struct {
	ID         string      `json:"id"`      // file stem, used as the production scope
	Version    string      `json:"version"` // content-hash tag
	Paragraphs []Paragraph `json:"paragraphs"`

	byID map[string]int
}

// New builds a document from pre-split paragraph texts. Callers that
// already hold materialized text (tests, fixtures) use this instead of
// Load.
func New(id string, blocks []string) *Document {
	joined := strings.Join(blocks, "\n\n")
	sum := sha256.Sum256([]byte(joined))
	doc := &Document{
		ID:      id,
		Version: hex.EncodeToString(sum[:6]),
		byID:    make(map[string]int, len(blocks)),
	}
	for i, text := range blocks {
		p := Paragraph{
			ID:    fmt.Sprintf("%s#p%04d", id, i),
			Index: i,
			Text:  text,
		}
		doc.Paragraphs = append(doc.Paragraphs, p)
		doc.byID[p.ID] = i
	}
	return doc
}

// Load reads a single document from disk. HTML is reduced to visible
// text; plain text and markdown split on blank lines.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var blocks []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		blocks, err = htmlBlocks(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
	default:
		blocks = textBlocks(string(raw))
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("document %s: no paragraphs", id)
	}

	doc := New(id, blocks)
	sum := sha256.Sum256(raw)
	doc.Version = hex.EncodeToString(sum[:6])
	return doc, nil
}

// Paragraph resolves a proof-anchor ID, reporting whether it exists.
func (d *Document) Paragraph(id string) (Paragraph, bool) {
	i, ok := d.byID[id]
	if !ok {
		return Paragraph{}, false
	}
	return d.Paragraphs[i], true
}

// Snippet concatenates the text of the referenced paragraphs, skipping
// unknown IDs. The result is the proof text claims are checked against.
func (d *Document) Snippet(anchorIDs []string) string {
	var buf strings.Builder
	for _, id := range anchorIDs {
		if p, ok := d.Paragraph(id); ok {
			if buf.Len() > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(p.Text)
		}
	}
	return buf.String()
}

// FirstUncovered returns the first paragraph whose ID is not in covered,
// or false when the document is fully covered. The dedupe gate's forced
// fallback depends on this being deterministic.
func (d *Document) FirstUncovered(covered map[string]bool) (Paragraph, bool) {
	for _, p := range d.Paragraphs {
		if !covered[p.ID] {
			return p, true
		}
	}
	return Paragraph{}, false
}

// textBlocks splits plain text into paragraphs on blank lines.
func textBlocks(text string) []string {
	var blocks []string
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		block = strings.TrimSpace(strings.Join(strings.Fields(block), " "))
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}
