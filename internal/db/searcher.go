// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"strings"

	"github.com/toeirei/cpcm/internal/model"
	"github.com/uptrace/bun"
)

// likeEscape is the LIKE escape character. '!' behaves the same on every
// supported engine, unlike backslash which MySQL also treats as a string
// literal escape.
const likeEscape = "!"

// DomainFilter narrows a domain search. Zero values match everything.
type DomainFilter struct {
	// Substring is matched case-insensitively anywhere in the domain name.
	Substring string
	// Server restricts results to one server name.
	Server string
	Limit  int
}

// DomainSearcher is the read-only query consumers depend on instead of the
// full Store.
type DomainSearcher interface {
	SearchDomains(ctx context.Context, f DomainFilter) ([]model.DomainRecord, error)
}

// EscapeLike escapes LIKE metacharacters so s only ever matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}

// SearchDomains returns rows ordered by (domain, server_name). Operator input
// is only ever bound as a parameter.
func (s *BunStore) SearchDomains(ctx context.Context, f DomainFilter) ([]model.DomainRecord, error) {
	return searchDomains(ctx, s.db, s.tables, f)
}

func searchDomains(ctx context.Context, idb bun.IDB, t Tables, f DomainFilter) ([]model.DomainRecord, error) {
	var rows []DomainModel
	q := idb.NewSelect().Model(&rows).ModelTableExpr("? AS d", bun.Ident(t.Domains))
	if f.Substring != "" {
		q = q.Where("LOWER(d.domain) LIKE LOWER(?) ESCAPE '"+likeEscape+"'", "%"+EscapeLike(f.Substring)+"%")
	}
	if f.Server != "" {
		q = q.Where("d.server_name = ?", f.Server)
	}
	q = q.OrderExpr("d.domain ASC, d.server_name ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, MapDBError(err)
	}
	out := make([]model.DomainRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, domainToModel(r))
	}
	return out, nil
}
