// Package parser decodes spool request documents.
//
// A request file holds one or more YAML documents separated by "---", each
// describing one insert:
//
//	table: users
//	column: name
//	payload: Alice
//	proof: a650465a554b50        # hex
//	actor: u1
//	timestamp: 2023-11-14T22:13:20Z  # or integer ms since epoch
//	rationale: initial import
package parser

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/promptdb/internal/apperr"
	"github.com/starford/promptdb/internal/models"
)

// Document is the YAML shape of one insert request.
type Document struct {
	Table     string    `yaml:"table"`
	Column    string    `yaml:"column"`
	Payload   string    `yaml:"payload"`
	Proof     string    `yaml:"proof"`
	Actor     string    `yaml:"actor"`
	Timestamp Timestamp `yaml:"timestamp"`
	Rationale string    `yaml:"rationale"`
}

// Timestamp accepts integer milliseconds since epoch or an RFC 3339 string.
// A value that does not parse leaves Err set instead of failing the
// document, so the store can report it in pipeline order.
type Timestamp struct {
	Millis int64
	Set    bool
	Err    error
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	t.Set = true
	if node.Kind != yaml.ScalarNode {
		t.Err = fmt.Errorf("timestamp: expected scalar: %w", apperr.ErrInvalidTimestamp)
		return nil
	}
	t.Millis, t.Err = ParseTimestamp(node.Value)
	return nil
}

func (t Timestamp) value() (int64, error) {
	switch {
	case !t.Set:
		return 0, fmt.Errorf("timestamp: missing: %w", apperr.ErrInvalidTimestamp)
	case t.Err != nil:
		return 0, t.Err
	}
	return t.Millis, nil
}

// ParseTimestamp parses integer milliseconds or RFC 3339.
func ParseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("timestamp: empty: %w", apperr.ErrInvalidTimestamp)
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("timestamp: %q is neither ms nor RFC 3339: %w", s, apperr.ErrInvalidTimestamp)
	}
	return ts.UnixMilli(), nil
}

// Request converts d into an insert request. The proof is hex-decoded.
// A missing or malformed timestamp, or malformed hex, is carried in
// DecodeErr.
func (d Document) Request() models.InsertRequest {
	req := models.InsertRequest{
		Table:     d.Table,
		Column:    d.Column,
		Payload:   []byte(d.Payload),
		Actor:     d.Actor,
		Rationale: d.Rationale,
	}
	ts, err := d.Timestamp.value()
	if err != nil {
		req.DecodeErr = err
		return req
	}
	req.Timestamp = ts
	if req.Proof, err = DecodeProof(d.Proof); err != nil {
		req.DecodeErr = err
	}
	return req
}

// DecodeProof decodes a hex proof string, ignoring surrounding whitespace
// and an optional 0x prefix. Malformed hex is an invalid proof.
func DecodeProof(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	blob, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("proof: %v: %w", err, apperr.ErrInvalidProof)
	}
	return blob, nil
}

// Parse decodes every document in data. Unknown keys and malformed YAML
// are type errors. Empty documents are skipped. Field values are checked
// by the store, not here.
func Parse(data []byte) ([]models.InsertRequest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var out []models.InsertRequest
	for i := 0; ; i++ {
		var doc *Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, documentError(i, err)
		}
		if doc == nil {
			continue
		}
		out = append(out, doc.Request())
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("parser: no documents: %w", apperr.ErrTypeError)
	}
	return out, nil
}

// documentError wraps a decoder failure as a shape error.
func documentError(i int, err error) error {
	return fmt.Errorf("document %d: %v: %w", i, err, apperr.ErrTypeError)
}
