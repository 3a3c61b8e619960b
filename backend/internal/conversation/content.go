package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SegmentType tags a content segment
type SegmentType string

const (
	SegmentText     SegmentType = "text"
	SegmentDocument SegmentType = "document"
)

// Document carries a JSON-encoded tool result
type Document struct {
	Data string `json:"data" bson:"data"`
}

// Segment is one typed piece of message content.
// Text is meaningful only for SegmentText and Document only for SegmentDocument;
// any other Type is carried through opaquely and never rendered.
type Segment struct {
	Type     SegmentType `json:"type" bson:"type"`
	Text     string      `json:"text,omitempty" bson:"text,omitempty"`
	Document *Document   `json:"document,omitempty" bson:"document,omitempty"`
}

// TextSegment builds a text segment
func TextSegment(text string) Segment {
	return Segment{Type: SegmentText, Text: text}
}

// DocumentSegment builds a document segment around a JSON payload
func DocumentSegment(data string) Segment {
	return Segment{Type: SegmentDocument, Document: &Document{Data: data}}
}

// IsText reports whether the segment contributes display text
func (s Segment) IsText() bool {
	return s.Type == SegmentText
}

// Content is the ordered list of segments of a message. A nil Content means "absent".
type Content []Segment

// Text wraps a plain string as content. The empty string yields absent content.
func Text(s string) Content {
	if s == "" {
		return nil
	}
	return Content{TextSegment(s)}
}

// Text flattens the content to display text
func (c Content) Text() string {
	return ExtractText(c)
}

// Documents returns the payloads of all document segments in order
func (c Content) Documents() []string {
	var docs []string
	for _, seg := range c {
		if seg.Type == SegmentDocument && seg.Document != nil {
			docs = append(docs, seg.Document.Data)
		}
	}
	return docs
}

// ExtractText concatenates every text segment in order, without separators.
// Non-text segments contribute nothing.
func ExtractText(c Content) string {
	if len(c) == 0 {
		return ""
	}
	if len(c) == 1 && c[0].IsText() {
		return c[0].Text
	}

	var b strings.Builder
	for _, seg := range c {
		if seg.IsText() {
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}

// UnmarshalJSON accepts null, a bare string, or an array of segments
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = nil
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("decode string content: %w", err)
		}
		*c = Text(s)
		return nil
	case '[':
		var segs []Segment
		if err := json.Unmarshal(trimmed, &segs); err != nil {
			return fmt.Errorf("decode content segments: %w", err)
		}
		if len(segs) == 0 {
			*c = nil
			return nil
		}
		*c = segs
		return nil
	default:
		return fmt.Errorf("content must be a string or an array, got %q", string(trimmed[:1]))
	}
}

func (c Content) clone() Content {
	if c == nil {
		return nil
	}
	out := make(Content, len(c))
	for i, seg := range c {
		out[i] = seg
		if seg.Document != nil {
			doc := *seg.Document
			out[i].Document = &doc
		}
	}
	return out
}
