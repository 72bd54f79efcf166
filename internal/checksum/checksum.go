// Package checksum computes content digests for payloads and spool files.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes keep payload and file digests from colliding.
const (
	DomainPayload = "promptdb/payload/v1"
	DomainFile    = "promptdb/file/v1"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Domain returns SHA-256(domain || 0x00 || data) in hex.
func Domain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Payload digests an opaque tracked-value payload.
func Payload(data []byte) string { return Domain(DomainPayload, data) }

// File digests a spool file's raw bytes.
func File(data []byte) string { return Domain(DomainFile, data) }
