// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/toeirei/cpcm/internal/security"
)

func TestServerString(t *testing.T) {
	s := Server{Name: "web-01", IP: "10.0.0.1", APIKey: security.FromString("tok")}
	if got := s.String(); got != "web-01@10.0.0.1" {
		t.Errorf("unexpected Server.String(): %q", got)
	}
	if got := fmt.Sprintf("%+v", s); strings.Contains(got, "tok") {
		t.Errorf("api key leaked through formatting: %s", got)
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "tok") {
		t.Errorf("api key leaked through json: %s", b)
	}
}

func TestOptString_Unmarshal(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		isSet bool
	}{
		{`"x"`, "x", true},
		{`""`, "", true},
		{`null`, "", false},
		{`80`, "80", true},
		{`true`, "true", true},
	}
	for _, tt := range tests {
		var o OptString
		if err := json.Unmarshal([]byte(tt.in), &o); err != nil {
			t.Fatalf("%s: unexpected error %v", tt.in, err)
		}
		if o.Value != tt.want || o.Set != tt.isSet {
			t.Errorf("%s: got %+v", tt.in, o)
		}
	}
	var o OptString
	if err := json.Unmarshal([]byte(`{"a":1}`), &o); err == nil {
		t.Errorf("expected error for object value")
	}
	if got := (OptString{}).Or(NullMarker); got != NullMarker {
		t.Errorf("Or on unset = %q", got)
	}
	if got := (OptString{Set: true}).Or(NullMarker); got != NullMarker {
		t.Errorf("Or on empty = %q", got)
	}
}

func TestOptInt_Unmarshal(t *testing.T) {
	tests := []struct {
		in    string
		want  int
		isSet bool
	}{
		{`1`, 1, true},
		{`0`, 0, true},
		{`"1"`, 1, true},
		{`""`, 0, false},
		{`null`, 0, false},
		{`true`, 1, true},
		{`false`, 0, true},
	}
	for _, tt := range tests {
		var o OptInt
		if err := json.Unmarshal([]byte(tt.in), &o); err != nil {
			t.Fatalf("%s: unexpected error %v", tt.in, err)
		}
		if o.Value != tt.want || o.Set != tt.isSet {
			t.Errorf("%s: got %+v", tt.in, o)
		}
	}
	var o OptInt
	if err := json.Unmarshal([]byte(`"abc"`), &o); err == nil {
		t.Errorf("expected error for non-numeric string")
	}
}

func TestRawDomain_ReportsFieldName(t *testing.T) {
	var r RawDomain
	err := json.Unmarshal([]byte(`{"domain":"a.com","modsecurity_enabled":"on"}`), &r)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T %v", err, err)
	}
	if ve.Field != "modsecurity_enabled" {
		t.Fatalf("expected field modsecurity_enabled, got %q", ve.Field)
	}

	err = json.Unmarshal([]byte(`"just a string"`), &r)
	if !errors.As(err, &ve) || ve.Field != RecordField {
		t.Fatalf("expected record-level ValidationError, got %v", err)
	}
}

func TestRawDomain_IgnoresUnknownKeys(t *testing.T) {
	var r RawDomain
	if err := json.Unmarshal([]byte(`{"domain":"a.com","extra":{"x":1}}`), &r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Domain.Value != "a.com" {
		t.Fatalf("domain not decoded: %+v", r.Domain)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")
	errs := []error{
		&StoreAccessError{Op: "list servers", Err: cause},
		&FetchError{Server: ServerKey{"a", "1.1.1.1"}, Err: cause},
		&MalformedResponseError{Server: ServerKey{"a", "1.1.1.1"}, Err: cause},
		&WriteError{Server: ServerKey{"a", "1.1.1.1"}, Domain: "a.com", Err: cause},
	}
	for _, e := range errs {
		if !errors.Is(e, cause) {
			t.Errorf("%T does not unwrap to cause", e)
		}
		if e.Error() == "" {
			t.Errorf("%T has empty message", e)
		}
	}
	fe := &FetchError{Server: ServerKey{"a", "1.1.1.1"}, Reason: "Access denied"}
	if !strings.Contains(fe.Error(), "Access denied") {
		t.Errorf("reason missing from %q", fe.Error())
	}
}
