// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// OptString is a text field that may be absent, null, or sent by the panel
// as a number or boolean instead of a string.
type OptString struct {
	Value string
	Set   bool
}

// UnmarshalJSON accepts string, number, bool and null.
func (o *OptString) UnmarshalJSON(b []byte) error {
	*o = OptString{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '"':
		if err := json.Unmarshal(b, &o.Value); err != nil {
			return err
		}
	case '{', '[':
		return fmt.Errorf("expected scalar, got %s", kindOf(b))
	default:
		// numbers and booleans keep their literal spelling
		o.Value = string(b)
	}
	o.Set = true
	return nil
}

// Or returns the value when present and non-empty, def otherwise.
func (o OptString) Or(def string) string {
	if !o.Set || o.Value == "" {
		return def
	}
	return o.Value
}

// OptInt is an integer flag that may be absent, null, a number, a numeric
// string or a boolean.
type OptInt struct {
	Value int
	Set   bool
}

// UnmarshalJSON accepts number, numeric string, bool and null.
func (o *OptInt) UnmarshalJSON(b []byte) error {
	*o = OptInt{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch {
	case bytes.Equal(b, []byte("true")):
		o.Value = 1
	case bytes.Equal(b, []byte("false")):
		o.Value = 0
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("expected integer, got %q", s)
		}
		o.Value = n
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("expected integer, got %s", kindOf(b))
	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("expected integer, got %s", b)
		}
		o.Value = int(f)
	}
	o.Set = true
	return nil
}

// Or returns the value when present, def otherwise.
func (o OptInt) Or(def int) int {
	if !o.Set {
		return def
	}
	return o.Value
}

// RawDomain is one entry of WHM's data.domains array before validation.
type RawDomain struct {
	Docroot            OptString `json:"docroot"`
	Domain             OptString `json:"domain"`
	DomainType         OptString `json:"domain_type"`
	IPv4               OptString `json:"ipv4"`
	IPv4SSL            OptString `json:"ipv4_ssl"`
	IPv6               OptString `json:"ipv6"`
	IPv6IsDedicated    OptInt    `json:"ipv6_is_dedicated"`
	ModSecurityEnabled OptInt    `json:"modsecurity_enabled"`
	ParentDomain       OptString `json:"parent_domain"`
	PHPVersion         OptString `json:"php_version"`
	Port               OptString `json:"port"`
	PortSSL            OptString `json:"port_ssl"`
	User               OptString `json:"user"`
	UserOwner          OptString `json:"user_owner"`
}

// RecordField is the pseudo field name used when a record is not an object.
const RecordField = "<record>"

// UnmarshalJSON decodes field by field so a bad value is reported with the
// name of the field that carried it. Unknown keys are ignored.
func (r *RawDomain) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
		return &ValidationError{Field: RecordField, Reason: "is not a JSON object"}
	}
	*r = RawDomain{}
	targets := []struct {
		name string
		dst  json.Unmarshaler
	}{
		{"docroot", &r.Docroot},
		{"domain", &r.Domain},
		{"domain_type", &r.DomainType},
		{"ipv4", &r.IPv4},
		{"ipv4_ssl", &r.IPv4SSL},
		{"ipv6", &r.IPv6},
		{"ipv6_is_dedicated", &r.IPv6IsDedicated},
		{"modsecurity_enabled", &r.ModSecurityEnabled},
		{"parent_domain", &r.ParentDomain},
		{"php_version", &r.PHPVersion},
		{"port", &r.Port},
		{"port_ssl", &r.PortSSL},
		{"user", &r.User},
		{"user_owner", &r.UserOwner},
	}
	for _, t := range targets {
		raw, ok := fields[t.name]
		if !ok {
			continue
		}
		if err := t.dst.UnmarshalJSON(raw); err != nil {
			return &ValidationError{Field: t.name, Reason: err.Error()}
		}
	}
	return nil
}

func kindOf(b []byte) string {
	if len(b) > 0 && b[0] == '[' {
		return "array"
	}
	return "object"
}
