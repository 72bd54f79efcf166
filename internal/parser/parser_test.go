package parser

import (
	"bytes"
	"errors"
	"testing"

	"github.com/starford/promptdb/internal/apperr"
)

const validDoc = `table: users
column: name
payload: Alice
proof: a650465a554b50
actor: u1
timestamp: 1700000000000
rationale: initial import
`

func TestParse_SingleDocument(t *testing.T) {
	reqs, err := Parse([]byte(validDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("len = %d, want 1", len(reqs))
	}
	r := reqs[0]
	if r.Table != "users" || r.Column != "name" || r.Actor != "u1" || r.Rationale != "initial import" {
		t.Errorf("unexpected request: %+v", r)
	}
	if string(r.Payload) != "Alice" {
		t.Errorf("payload = %q", r.Payload)
	}
	if !bytes.Equal(r.Proof, []byte{0xA6, 80, 70, 90, 85, 75, 80}) {
		t.Errorf("proof = %x", r.Proof)
	}
	if r.Timestamp != 1700000000000 {
		t.Errorf("timestamp = %d", r.Timestamp)
	}
	if r.DecodeErr != nil {
		t.Errorf("DecodeErr = %v", r.DecodeErr)
	}
}

func TestParse_MultipleDocuments(t *testing.T) {
	input := validDoc + "---\n" + validDoc + "---\n"
	reqs, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reqs) != 2 {
		t.Errorf("len = %d, want 2", len(reqs))
	}
}

func TestParse_RFC3339Timestamp(t *testing.T) {
	input := bytes.Replace([]byte(validDoc), []byte("1700000000000"), []byte("2023-11-14T22:13:20Z"), 1)
	reqs, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reqs[0].Timestamp != 1700000000000 {
		t.Errorf("timestamp = %d, want 1700000000000", reqs[0].Timestamp)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"unknown key", validDoc + "extra: 1\n"},
		{"malformed yaml", "table: [users\n"},
		{"empty file", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.input))
			if !errors.Is(err, apperr.ErrTypeError) {
				t.Errorf("err = %v, want %v", err, apperr.ErrTypeError)
			}
		})
	}
}

func TestParse_DecodeErrorsAreCarried(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  error
	}{
		{"bad timestamp", string(bytes.Replace([]byte(validDoc), []byte("1700000000000"), []byte("yesterday"), 1)), apperr.ErrInvalidTimestamp},
		{"sequence timestamp", string(bytes.Replace([]byte(validDoc), []byte("1700000000000"), []byte("[1, 2]"), 1)), apperr.ErrInvalidTimestamp},
		{"missing timestamp", "table: users\ncolumn: name\nproof: a6\nactor: u1\nrationale: r\n", apperr.ErrInvalidTimestamp},
		{"bad hex proof", string(bytes.Replace([]byte(validDoc), []byte("a650465a554b50"), []byte("zz"), 1)), apperr.ErrInvalidProof},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reqs, err := Parse([]byte(tc.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(reqs) != 1 {
				t.Fatalf("len = %d, want 1", len(reqs))
			}
			if !errors.Is(reqs[0].DecodeErr, tc.want) {
				t.Errorf("DecodeErr = %v, want %v", reqs[0].DecodeErr, tc.want)
			}
			if reqs[0].Table != "users" || reqs[0].Actor != "u1" {
				t.Errorf("fields not kept alongside the decode error: %+v", reqs[0])
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]int64{
		"0":                        0,
		"-1":                       -1,
		"1700000000000":            1700000000000,
		"1970-01-01T00:00:01Z":     1000,
		"1970-01-01T00:00:00.5Z":   500,
		"1970-01-01T01:00:00+01:00": 0,
	}
	for in, want := range cases {
		got, err := ParseTimestamp(in)
		if err != nil || got != want {
			t.Errorf("ParseTimestamp(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	if _, err := ParseTimestamp(" "); !errors.Is(err, apperr.ErrInvalidTimestamp) {
		t.Errorf("blank timestamp err = %v", err)
	}
}

func TestDecodeProof(t *testing.T) {
	blob, err := DecodeProof(" 0xA650 ")
	if err != nil || !bytes.Equal(blob, []byte{0xA6, 0x50}) {
		t.Errorf("DecodeProof = %x, %v", blob, err)
	}
	blob, err = DecodeProof("")
	if err != nil || len(blob) != 0 {
		t.Errorf("empty hex should decode to an empty blob, got %x, %v", blob, err)
	}
	if _, err := DecodeProof("abc"); !errors.Is(err, apperr.ErrInvalidProof) {
		t.Errorf("odd-length hex err = %v", err)
	}
}
