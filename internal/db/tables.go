// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"github.com/toeirei/cpcm/internal/config"
)

// DefaultSyncRunsTable is the audit table name. It is not configurable.
const DefaultSyncRunsTable = "sync_runs"

// Tables names the physical tables every query builder targets. It is passed
// explicitly instead of living in package state.
type Tables struct {
	Domains  string
	Servers  string
	SyncRuns string
}

// DefaultTables returns the stock table names.
func DefaultTables() Tables {
	return Tables{Domains: "domains", Servers: "servers", SyncRuns: DefaultSyncRunsTable}
}

// NewTables validates operator-supplied names. Only validated names ever
// reach a query, and they are always quoted as identifiers.
func NewTables(domains, servers string) (Tables, error) {
	if err := config.ValidateIdentifier(domains); err != nil {
		return Tables{}, err
	}
	if err := config.ValidateIdentifier(servers); err != nil {
		return Tables{}, err
	}
	return Tables{Domains: domains, Servers: servers, SyncRuns: DefaultSyncRunsTable}, nil
}

// domainIndex is the secondary index on the domain column.
func (t Tables) domainIndex() string { return t.Domains + "_domain_idx" }
