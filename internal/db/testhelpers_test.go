// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"strings"
	"testing"

	"github.com/toeirei/cpcm/internal/model"
	"github.com/toeirei/cpcm/internal/security"
)

func memoryDSN(t *testing.T) string {
	t.Helper()
	return "file:" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
}

// newTestStore opens a migrated in-memory sqlite store that is closed when
// the test ends.
func newTestStore(t *testing.T, tables Tables) *BunStore {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", memoryDSN(t), tables)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testServer(name, ip string) model.Server {
	return model.Server{Name: name, IP: ip, User: "root", APIKey: security.FromString("key-" + name)}
}

func testDomain(srv model.Server, domain string, epoch int64) model.DomainRecord {
	return model.DomainRecord{
		ServerName:         srv.Name,
		ServerIP:           srv.IP,
		Domain:             domain,
		DomainType:         "main_domain",
		Docroot:            "/home/" + domain + "/public_html",
		IPv4:               srv.IP,
		IPv4SSL:            srv.IP,
		IPv6:               model.NullMarker,
		ParentDomain:       model.NullMarker,
		PHPVersion:         "ea-php82",
		Port:               "80",
		PortSSL:            "443",
		User:               "owner",
		UserOwner:          "root",
		LastConfirmedEpoch: epoch,
	}
}

func mustSession(t *testing.T, s *BunStore) Session {
	t.Helper()
	sess, err := s.Session(context.Background())
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func mustUpsertServer(t *testing.T, s *BunStore, srv model.Server) {
	t.Helper()
	if err := s.UpsertServer(context.Background(), srv); err != nil {
		t.Fatalf("UpsertServer(%s): %v", srv, err)
	}
}

func mustUpsertDomain(t *testing.T, sess Session, rec model.DomainRecord) bool {
	t.Helper()
	ok, err := sess.UpsertDomain(context.Background(), rec)
	if err != nil {
		t.Fatalf("UpsertDomain(%s): %v", rec.Domain, err)
	}
	return ok
}
