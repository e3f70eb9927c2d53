// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"strings"

	"github.com/toeirei/cpcm/internal/db"
	"github.com/toeirei/cpcm/internal/model"
)

// RunFindCmd runs the read-only domain query. The substring is trimmed and
// matched case-insensitively; store failures come back as
// *model.StoreAccessError.
func RunFindCmd(ctx context.Context, s db.DomainSearcher, f db.DomainFilter) ([]model.DomainRecord, error) {
	f.Substring = strings.TrimSpace(f.Substring)
	f.Server = strings.TrimSpace(f.Server)
	recs, err := s.SearchDomains(ctx, f)
	if err != nil {
		return nil, &model.StoreAccessError{Op: "search domains", Err: err}
	}
	return recs, nil
}
