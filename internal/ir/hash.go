package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed record identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainInvocation = "weft/invocation/v1"
	DomainCompletion = "weft/completion/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/payload boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InvocationID computes the content-addressed ID of an invocation record.
// Stable across restarts given the same inputs, which makes log appends
// naturally idempotent.
func InvocationID(flowID, concept, action string, input Object, seq int64) (string, error) {
	obj := Object{
		"flow_id": String(flowID),
		"concept": String(concept),
		"action":  String(action),
		"input":   input,
		"seq":     Int(seq),
	}
	if input == nil {
		obj["input"] = Object{}
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("InvocationID: marshal: %w", err)
	}
	return hashWithDomain(DomainInvocation, canonical), nil
}

// CompletionID computes the content-addressed ID of a completion record.
// Linked to its invocation via parent.
func CompletionID(parent, variant string, output Object, seq int64) (string, error) {
	obj := Object{
		"parent":  String(parent),
		"variant": String(variant),
		"output":  output,
		"seq":     Int(seq),
	}
	if output == nil {
		obj["output"] = Object{}
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("CompletionID: marshal: %w", err)
	}
	return hashWithDomain(DomainCompletion, canonical), nil
}

// MustInvocationID is like InvocationID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustInvocationID(flowID, concept, action string, input Object, seq int64) string {
	id, err := InvocationID(flowID, concept, action, input, seq)
	if err != nil {
		panic(err)
	}
	return id
}

// MustCompletionID is like CompletionID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCompletionID(parent, variant string, output Object, seq int64) string {
	id, err := CompletionID(parent, variant, output, seq)
	if err != nil {
		panic(err)
	}
	return id
}
