// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

// Package security holds helpers for credentials that must never show up in
// logs, table output or error messages.
package security

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
)

const redacted = "[SECRET]"

// Secret wraps an API token. Formatting, JSON and text encoding all render
// the placeholder; only Reveal and the SQL Valuer expose the real value.
type Secret []byte

// String redacts the secret for fmt.Print* convenience.
func (s Secret) String() string { return redacted }

// Format implements fmt.Formatter so `%v`, `%#v` and `%q` are redacted too.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, redacted)
}

// Reveal returns the plain token. Use it only where the token leaves the
// process on purpose (request headers, backups).
func (s Secret) Reveal() string { return string(s) }

// IsEmpty reports whether no token is set.
func (s Secret) IsEmpty() bool { return len(s) == 0 }

// Zero overwrites the underlying byte slice with zeros.
func (s *Secret) Zero() {
	if s == nil || *s == nil {
		return
	}
	for i := range *s {
		(*s)[i] = 0
	}
}

// MarshalJSON redacts secrets in JSON marshaling.
func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

// MarshalText redacts secrets for text encoding (YAML, logfmt).
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Value stores the token as text so every backend keeps it in a TEXT column.
func (s Secret) Value() (driver.Value, error) { return string(s), nil }

// Scan implements sql.Scanner.
func (s *Secret) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
	case []byte:
		tmp := make([]byte, len(v))
		copy(tmp, v)
		*s = Secret(tmp)
	case string:
		*s = Secret(v)
	default:
		return fmt.Errorf("unsupported scan type %T", src)
	}
	return nil
}

// FromString creates a Secret from a string input.
func FromString(in string) Secret { return Secret(in) }
