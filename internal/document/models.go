// Package document owns the keyed document table: the Document model, the
// Store implementations, and the service that runs rule checks and change
// broadcasts around every mutation.
package document

import (
	"encoding/json"
	"strings"
	"time"

	dErrors "alphabase/pkg/domain-errors"
)

// Document is a single stored record, identified by "<collection>:<key>".
type Document struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Key        string          `json:"key"`
	Value      json.RawMessage `json:"value"`
	Owner      string          `json:"owner"`
	CreatedAt  time.Time       `json:"created_at"`
}

// DocumentID builds the store key for a collection/key pair.
func DocumentID(collection, key string) string {
	return collection + ":" + key
}

// ValidateName checks a collection or key component. The ":" separator is
// reserved: rather than define an escaping scheme we reject it outright, so
// every document ID splits back unambiguously.
func ValidateName(kind, name string) error {
	if name == "" {
		return dErrors.Newf(dErrors.CodeBadRequest, "%s must not be empty", kind)
	}
	if strings.ContainsRune(name, ':') {
		return dErrors.Newf(dErrors.CodeBadRequest, "%s must not contain ':'", kind)
	}
	return nil
}
