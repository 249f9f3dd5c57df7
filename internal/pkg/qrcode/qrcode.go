// Package qrcode decodes the student reference printed on attendance cards.
//
// A card carries either a bare student UUID or a JSON document:
//
//	{"student_id": "...", "tenant_id": "...", "sig": "..."}
//
// tenant_id and sig are optional unless a signing key is configured, in which
// case sig must be the hex keyed BLAKE2b-256 of "tenant_id|student_id".
package qrcode

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrInvalidPayload   = errors.New("invalid QR payload")
	ErrTenantMismatch   = errors.New("QR payload belongs to another school")
	ErrInvalidSignature = errors.New("QR payload signature is invalid")
)

// Payload is a decoded card.
type Payload struct {
	StudentID string
	TenantID  string // empty when the card carries no tenant claim
	Signature string
}

type document struct {
	StudentID string `json:"student_id"`
	TenantID  string `json:"tenant_id,omitempty"`
	Sig       string `json:"sig,omitempty"`
}

type Parser struct {
	key []byte
}

// NewParser returns a parser. An empty signingKey disables signature checks.
func NewParser(signingKey string) *Parser {
	p := &Parser{}
	if signingKey != "" {
		p.key = []byte(signingKey)
	}
	return p
}

// Parse decodes raw and checks it against the caller's tenant. A tenant claim
// different from callerTenantID is always rejected, whether or not the
// student exists.
func (p *Parser) Parse(raw, callerTenantID string) (Payload, error) {
	payload, err := Decode(raw)
	if err != nil {
		return Payload{}, err
	}

	if payload.TenantID != "" && !strings.EqualFold(payload.TenantID, callerTenantID) {
		return Payload{}, ErrTenantMismatch
	}

	if len(p.key) > 0 {
		if payload.Signature == "" {
			return Payload{}, ErrInvalidSignature
		}
		want := Sign(p.key, callerTenantID, payload.StudentID)
		if subtle.ConstantTimeCompare([]byte(strings.ToLower(payload.Signature)), []byte(want)) != 1 {
			return Payload{}, ErrInvalidSignature
		}
	}

	return payload, nil
}

// Decode performs the structural checks only.
func Decode(raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}, ErrInvalidPayload
	}

	if !strings.HasPrefix(raw, "{") {
		id, err := normalizeUUID(raw)
		if err != nil {
			return Payload{}, ErrInvalidPayload
		}
		return Payload{StudentID: id}, nil
	}

	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Payload{}, ErrInvalidPayload
	}

	studentID, err := normalizeUUID(doc.StudentID)
	if err != nil {
		return Payload{}, ErrInvalidPayload
	}

	payload := Payload{StudentID: studentID, Signature: strings.TrimSpace(doc.Sig)}
	if doc.TenantID != "" {
		tenantID, err := normalizeUUID(doc.TenantID)
		if err != nil {
			return Payload{}, ErrInvalidPayload
		}
		payload.TenantID = tenantID
	}
	return payload, nil
}

// Sign returns the hex signature for a card. Keys longer than 64 bytes are
// hashed down first.
func Sign(key []byte, tenantID, studentID string) string {
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	h, _ := blake2b.New256(key)
	h.Write([]byte(strings.ToLower(tenantID) + "|" + strings.ToLower(studentID)))
	return hex.EncodeToString(h.Sum(nil))
}

// Encode renders the JSON form of a card, signing it when key is non-empty.
func Encode(key []byte, tenantID, studentID string) (string, error) {
	doc := document{StudentID: studentID, TenantID: tenantID}
	if len(key) > 0 {
		doc.Sig = Sign(key, tenantID, studentID)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func normalizeUUID(s string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
