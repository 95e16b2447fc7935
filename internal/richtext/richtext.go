// Package richtext models the block document produced by the task description
// editor. The editor itself is opaque; this package only reads and writes its
// JSON tree and projects it to plain text and Markdown.
//
// Descriptions arrive from the API as a string. Newer records hold a
// JSON-encoded array of blocks, older ones hold plain text. Both decode into a
// Document; plain text is kept verbatim so that an untouched legacy
// description is written back unchanged.
package richtext

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Block types understood by the projections. Unknown types render as
// paragraphs.
const (
	TypeParagraph    = "paragraph"
	TypeHeading      = "heading"
	TypeBulletList   = "bulletListItem"
	TypeNumberedList = "numberedListItem"
	TypeCheckList    = "checkListItem"
	TypeQuote        = "quote"
	TypeCodeBlock    = "codeBlock"
)

// Inline is a run of text or a link inside a block.
type Inline struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Styles  map[string]any `json:"styles,omitempty"`
	Href    string         `json:"href,omitempty"`
	Content []Inline       `json:"content,omitempty"`
}

// Block is one node of the document tree.
type Block struct {
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type"`
	Props    map[string]any `json:"props,omitempty"`
	Content  []Inline       `json:"content"`
	Children []Block        `json:"children,omitempty"`
}

// UnmarshalJSON tolerates non-inline content (tables carry an object there);
// such content is dropped rather than failing the whole document.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       string          `json:"id"`
		Type     string          `json:"type"`
		Props    map[string]any  `json:"props"`
		Content  json.RawMessage `json:"content"`
		Children []Block         `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.ID, b.Type, b.Props, b.Children = raw.ID, raw.Type, raw.Props, raw.Children
	b.Content = nil
	if trimmed := bytes.TrimSpace(raw.Content); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &b.Content); err != nil {
			return err
		}
	}
	return nil
}

// Document is a task description.
type Document struct {
	blocks []Block
	legacy *string
}

// FromText builds a document from plain text. The text is preserved verbatim
// on the wire.
func FromText(s string) Document {
	return Document{legacy: &s}
}

// FromBlocks builds a document from editor blocks.
func FromBlocks(blocks []Block) Document {
	return Document{blocks: blocks}
}

// Parse decodes a stored description string.
func Parse(s string) Document {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "[") {
		var blocks []Block
		if err := json.Unmarshal([]byte(trimmed), &blocks); err == nil && validBlocks(blocks) {
			return Document{blocks: blocks}
		}
	}
	return FromText(s)
}

func validBlocks(blocks []Block) bool {
	for _, b := range blocks {
		if b.Type == "" {
			return false
		}
	}
	return true
}

// Blocks returns the document in editor form. Legacy text becomes a single
// paragraph and an empty document becomes one empty paragraph, so the editor
// always has something to mount.
func (d Document) Blocks() []Block {
	if d.legacy != nil {
		if strings.TrimSpace(*d.legacy) != "" {
			return []Block{{
				Type:    TypeParagraph,
				Content: []Inline{{Type: "text", Text: *d.legacy, Styles: map[string]any{}}},
			}}
		}
		return []Block{{Type: TypeParagraph, Content: []Inline{}}}
	}
	if len(d.blocks) == 0 {
		return []Block{{Type: TypeParagraph, Content: []Inline{}}}
	}
	return d.blocks
}

// IsEmpty reports whether the document has no visible text.
func (d Document) IsEmpty() bool {
	return strings.TrimSpace(d.PlainText()) == ""
}

// String returns the wire form of the description.
func (d Document) String() string {
	if d.legacy != nil {
		return *d.legacy
	}
	if len(d.blocks) == 0 {
		return ""
	}
	data, err := json.Marshal(d.blocks)
	if err != nil {
		return ""
	}
	return string(data)
}

// MarshalJSON encodes the description as the string the API stores.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a string (plain or encoded blocks), a bare block array
// or null.
func (d *Document) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*d = Document{}
		return nil
	case trimmed[0] == '[':
		var blocks []Block
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return err
		}
		*d = Document{blocks: blocks}
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return err
	}
	*d = Parse(s)
	return nil
}

// MarshalYAML renders the document as Markdown in YAML output.
func (d Document) MarshalYAML() (any, error) {
	return d.Markdown(), nil
}
