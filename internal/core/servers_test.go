// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/toeirei/cpcm/internal/model"
	"github.com/toeirei/cpcm/internal/security"
)

func TestAddServer_ValidatesAndReplaces(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	bad := []model.Server{
		{Name: "", IP: "10.0.0.1", User: "root", APIKey: security.FromString("k")},
		{Name: "web1", IP: "not-an-ip", User: "root", APIKey: security.FromString("k")},
		{Name: "web1", IP: "10.0.0.1", User: " ", APIKey: security.FromString("k")},
		{Name: "web1", IP: "10.0.0.1", User: "root"},
	}
	for _, srv := range bad {
		var ve *model.ValidationError
		if err := AddServer(ctx, s, srv); !errors.As(err, &ve) {
			t.Errorf("AddServer(%+v) = %v, want ValidationError", srv, err)
		}
	}

	srv := model.Server{Name: " web1 ", IP: "10.0.0.1", User: "root", APIKey: security.FromString("old")}
	if err := AddServer(ctx, s, srv); err != nil {
		t.Fatalf("AddServer: %v", err)
	}
	srv.APIKey = security.FromString("new")
	srv.Group = "eu"
	if err := AddServer(ctx, s, srv); err != nil {
		t.Fatalf("AddServer replace: %v", err)
	}

	list, err := ListServers(ctx, s)
	if err != nil {
		t.Fatalf("ListServers: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("servers = %v", list)
	}
	got := list[0]
	if got.Name != "web1" || got.APIKey.Reveal() != "new" || got.Group != "eu" || got.Hostname != model.NullMarker {
		t.Fatalf("server = %+v", got)
	}
}

func TestRemoveServer(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	srv := addServer(t, s, "web1", "10.0.0.1")
	addServer(t, s, "web2", "10.0.0.2")
	f := &fakeFetcher{records: map[string][]json.RawMessage{
		"web1": {rawRec("a.com", "/a"), rawRec("b.com", "/b")},
		"web2": {rawRec("x.com", "/x")},
	}}
	mustPass(t, s, f, SyncOptions{Clock: at(1000)})

	n, err := RemoveServer(ctx, s, srv.Key())
	if err != nil {
		t.Fatalf("RemoveServer: %v", err)
	}
	if n != 2 {
		t.Fatalf("removed domains = %d, want 2", n)
	}
	got := storedDomains(t, s)
	if len(got) != 1 {
		t.Fatalf("stored = %+v", got)
	}
	if _, ok := got["x.com"]; !ok {
		t.Fatal("other server's rows must survive")
	}

	if _, err := RemoveServer(ctx, s, model.ServerKey{Name: "nope", IP: "10.0.0.9"}); !errors.Is(err, ErrServerNotFound) {
		t.Fatalf("want ErrServerNotFound, got %v", err)
	}
}
