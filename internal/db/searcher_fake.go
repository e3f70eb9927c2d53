// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"strings"

	"github.com/toeirei/cpcm/internal/model"
)

// FakeDomainSearcher is a minimal, configurable fake used by tests. It
// filters Results in memory with the same matching rules as the store.
type FakeDomainSearcher struct {
	Results []model.DomainRecord
	Err     error
	// Calls records every filter passed to SearchDomains.
	Calls []DomainFilter
}

// SearchDomains implements DomainSearcher for the fake.
func (f *FakeDomainSearcher) SearchDomains(_ context.Context, filter DomainFilter) ([]model.DomainRecord, error) {
	f.Calls = append(f.Calls, filter)
	if f.Err != nil {
		return nil, f.Err
	}
	out := []model.DomainRecord{}
	needle := strings.ToLower(filter.Substring)
	for _, r := range f.Results {
		if needle != "" && !strings.Contains(strings.ToLower(r.Domain), needle) {
			continue
		}
		if filter.Server != "" && r.ServerName != filter.Server {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
