package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainDataset = "equery/dataset/v1"
	DomainRow     = "equery/row/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes a dataset. Row order matters; field order within a row
// does not. Used to label executions in logs and to detect unchanged
// collections on re-import.
func Fingerprint(ds Dataset) (string, error) {
	canonical, err := MarshalCanonical(ds.Value())
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDataset, canonical), nil
}

// RowHash hashes a single row.
func RowHash(row Object) (string, error) {
	canonical, err := MarshalCanonical(row)
	if err != nil {
		return "", fmt.Errorf("RowHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRow, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(ds Dataset) string {
	fp, err := Fingerprint(ds)
	if err != nil {
		panic(err)
	}
	return fp
}
