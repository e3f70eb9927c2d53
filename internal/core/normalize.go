// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"encoding/json"
	"strings"

	"github.com/toeirei/cpcm/internal/model"
)

// NormalizeDomain turns one raw inventory entry into a DomainRecord. Server
// and epoch columns are left for the caller.
//
// Required fields are docroot, domain, domain_type, ipv4 and user; a missing,
// null or blank one yields a *model.ValidationError naming it. Optional text
// fields default to model.NullMarker and numeric flags to 0.
func NormalizeDomain(raw json.RawMessage) (model.DomainRecord, error) {
	var rd model.RawDomain
	if err := rd.UnmarshalJSON(raw); err != nil {
		return model.DomainRecord{}, err
	}

	required := []struct {
		name string
		val  model.OptString
	}{
		{"docroot", rd.Docroot},
		{"domain", rd.Domain},
		{"domain_type", rd.DomainType},
		{"ipv4", rd.IPv4},
		{"user", rd.User},
	}
	for _, f := range required {
		if !f.val.Set {
			return model.DomainRecord{}, &model.ValidationError{Field: f.name, Reason: "is missing"}
		}
		if strings.TrimSpace(f.val.Value) == "" {
			return model.DomainRecord{}, &model.ValidationError{Field: f.name, Reason: "is empty"}
		}
	}

	return model.DomainRecord{
		Domain:             strings.TrimSpace(rd.Domain.Value),
		DomainType:         rd.DomainType.Value,
		Docroot:            rd.Docroot.Value,
		IPv4:               rd.IPv4.Value,
		IPv4SSL:            rd.IPv4SSL.Or(model.NullMarker),
		IPv6:               rd.IPv6.Or(model.NullMarker),
		IPv6IsDedicated:    rd.IPv6IsDedicated.Or(0),
		ModSecurityEnabled: rd.ModSecurityEnabled.Or(0),
		ParentDomain:       rd.ParentDomain.Or(model.NullMarker),
		PHPVersion:         rd.PHPVersion.Or(model.NullMarker),
		Port:               rd.Port.Or(model.NullMarker),
		PortSSL:            rd.PortSSL.Or(model.NullMarker),
		User:               rd.User.Value,
		UserOwner:          rd.UserOwner.Or(model.NullMarker),
	}, nil
}
