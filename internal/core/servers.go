// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/toeirei/cpcm/internal/db"
	"github.com/toeirei/cpcm/internal/logging"
	"github.com/toeirei/cpcm/internal/model"
)

// ErrServerNotFound is returned when removing a server that is not registered.
var ErrServerNotFound = errors.New("server not found")

// ValidateServer checks the attributes server add requires.
func ValidateServer(s model.Server) error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return &model.ValidationError{Field: "name", Reason: "is empty"}
	case net.ParseIP(s.IP) == nil:
		return &model.ValidationError{Field: "ip", Reason: fmt.Sprintf("%q is not an IP address", s.IP)}
	case strings.TrimSpace(s.User) == "":
		return &model.ValidationError{Field: "user", Reason: "is empty"}
	case s.APIKey.IsEmpty():
		return &model.ValidationError{Field: "apikey", Reason: "is empty"}
	}
	return nil
}

// AddServer registers s, replacing user, key, hostname and group when
// (name, ip) already exists.
func AddServer(ctx context.Context, st ServerStore, s model.Server) error {
	s.Name = strings.TrimSpace(s.Name)
	s.IP = strings.TrimSpace(s.IP)
	s.User = strings.TrimSpace(s.User)
	if err := ValidateServer(s); err != nil {
		return err
	}
	if s.Hostname == "" {
		s.Hostname = model.NullMarker
	}
	if s.Group == "" {
		s.Group = model.NullMarker
	}
	if err := st.UpsertServer(ctx, s); err != nil {
		return &model.StoreAccessError{Op: "upsert server", Err: err}
	}
	logging.Infof("server %s registered", s)
	return nil
}

// ListServers returns the registry ordered by (name, ip).
func ListServers(ctx context.Context, st ServerStore) ([]model.Server, error) {
	servers, err := st.ListServers(ctx)
	if err != nil {
		return nil, &model.StoreAccessError{Op: "list servers", Err: err}
	}
	return servers, nil
}

// RemoveServer deletes a server and its cached domains and returns how many
// domain rows went with it.
func RemoveServer(ctx context.Context, st ServerStore, key model.ServerKey) (int64, error) {
	n, err := st.DeleteServer(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrServerNotFound, key)
		}
		return 0, &model.StoreAccessError{Op: "delete server", Err: err}
	}
	logging.Infof("server %s removed with %d domain(s)", key, n)
	return n, nil
}
