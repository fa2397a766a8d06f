package quotes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/animequote/internal/model"
)

// Shape recognizes one response layout of the quote service and extracts its records
type Shape interface {
	// Name returns the shape name used in logs
	Name() string

	// Detect reports whether the payload has this shape. It must not fail.
	Detect(payload json.RawMessage) bool

	// Extract normalizes the payload into quote records
	Extract(payload json.RawMessage) ([]model.QuoteRecord, error)
}

// Chain is an ordered list of shapes; the first one that detects the payload wins
type Chain struct {
	shapes []Shape
}

// DefaultChain returns the shapes the quote service has been observed to return,
// most current first
func DefaultChain() *Chain {
	return &Chain{shapes: []Shape{
		envelopeShape{},
		arrayShape{},
		objectShape{},
	}}
}

// Names returns the shape names in evaluation order
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.shapes))
	for _, s := range c.shapes {
		names = append(names, s.Name())
	}
	return names
}

// Normalize parses body and runs it through the chain.
// Malformed JSON is an ErrUpstream; a well-formed payload no shape recognizes is ErrUnexpectedFormat.
func (c *Chain) Normalize(body []byte) ([]model.QuoteRecord, string, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return nil, "", fmt.Errorf("%w: malformed JSON", ErrUpstream)
	}

	payload := json.RawMessage(trimmed)
	for _, shape := range c.shapes {
		if !shape.Detect(payload) {
			continue
		}
		records, err := shape.Extract(payload)
		if err != nil {
			return nil, shape.Name(), err
		}
		return records, shape.Name(), nil
	}

	return nil, "", fmt.Errorf("%w (payload starts %q)", ErrUnexpectedFormat, preview(trimmed))
}

// envelopeShape: {"status": "success", "data": [ {content, anime:{name,altName}, character:{name}} ]}
// The random endpoint returns a single object under data.
type envelopeShape struct{}

func (envelopeShape) Name() string { return "envelope" }

func (envelopeShape) Detect(payload json.RawMessage) bool {
	fields, ok := asObject(payload)
	if !ok {
		return false
	}
	_, hasStatus := fields["status"]
	_, hasData := fields["data"]
	return hasStatus || hasData
}

func (envelopeShape) Extract(payload json.RawMessage) ([]model.QuoteRecord, error) {
	fields, _ := asObject(payload)

	data, hasData := fields["data"]
	if !hasData || isNull(data) {
		status := stringField(fields, "status")
		if status != "" && !strings.EqualFold(status, "success") {
			message := stringField(fields, "message")
			return nil, fmt.Errorf("%w: status %q %s", ErrUpstream, status, message)
		}
		return nil, nil
	}

	switch firstByte(data) {
	case '[':
		return extractList(data)
	case '{':
		record, ok := decodeItem(data)
		if !ok {
			return nil, fmt.Errorf("%w: envelope data is not a quote", ErrUnexpectedFormat)
		}
		return []model.QuoteRecord{record}, nil
	default:
		return nil, fmt.Errorf("%w: envelope data is neither a list nor an object", ErrUnexpectedFormat)
	}
}

// arrayShape: [ {quote|content, anime, character} ] with names as strings or {name} objects
type arrayShape struct{}

func (arrayShape) Name() string { return "array" }

func (arrayShape) Detect(payload json.RawMessage) bool {
	var items []json.RawMessage
	if firstByte(payload) != '[' || json.Unmarshal(payload, &items) != nil {
		return false
	}
	for _, item := range items {
		if _, ok := asObject(item); !ok {
			return false
		}
	}
	return true
}

func (arrayShape) Extract(payload json.RawMessage) ([]model.QuoteRecord, error) {
	return extractList(payload)
}

// objectShape: a bare quote object, as served by the historical random endpoint
type objectShape struct{}

func (objectShape) Name() string { return "object" }

func (objectShape) Detect(payload json.RawMessage) bool {
	fields, ok := asObject(payload)
	if !ok {
		return false
	}
	_, hasQuote := fields["quote"]
	_, hasContent := fields["content"]
	return hasQuote || hasContent
}

func (objectShape) Extract(payload json.RawMessage) ([]model.QuoteRecord, error) {
	record, _ := decodeItem(payload)
	return []model.QuoteRecord{record}, nil
}

func extractList(data json.RawMessage) ([]model.QuoteRecord, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedFormat, err)
	}

	records := make([]model.QuoteRecord, 0, len(items))
	for i, item := range items {
		record, ok := decodeItem(item)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is not an object", ErrUnexpectedFormat, i)
		}
		records = append(records, record)
	}
	return records, nil
}

// decodeItem normalizes one quote object. Unresolvable fields become model.UnknownValue.
func decodeItem(item json.RawMessage) (model.QuoteRecord, bool) {
	fields, ok := asObject(item)
	if !ok {
		return model.QuoteRecord{}, false
	}

	text := stringField(fields, "content")
	if strings.TrimSpace(text) == "" {
		text = stringField(fields, "quote")
	}

	return model.QuoteRecord{
		Text:      orUnknown(text),
		Anime:     orUnknown(nameField(fields["anime"])),
		Character: orUnknown(nameField(fields["character"])),
	}, true
}

// nameField resolves a plain string or an object carrying name (or altName)
func nameField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	fields, ok := asObject(raw)
	if !ok {
		return ""
	}
	if name := stringField(fields, "name"); strings.TrimSpace(name) != "" {
		return name
	}
	return stringField(fields, "altName")
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if firstByte(raw) != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.UnknownValue
	}
	return s
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func preview(body []byte) string {
	const limit = 80
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
