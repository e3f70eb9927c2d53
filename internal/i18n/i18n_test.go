// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package i18n

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestInitAndAvailableLocales(t *testing.T) {
	Init("en")
	if GetLang() != "en" {
		t.Fatalf("expected lang 'en', got %q", GetLang())
	}

	av := GetAvailableLocales()
	for _, k := range []string{"en", "de"} {
		if _, ok := av[k]; !ok {
			t.Fatalf("expected available locale %q to be present", k)
		}
	}
	if av["de"] != "Deutsch" {
		t.Fatalf("unexpected display name for de: %q", av["de"])
	}
}

func TestT_BasicAndFormatting(t *testing.T) {
	Init("en")
	t.Cleanup(func() { Init("en") })

	if got := T("table.epoch"); got != "Epoch" {
		t.Fatalf("expected 'Epoch', got %q", got)
	}
	if got := T("browse.count", 7); got != "7 domain(s)" {
		t.Fatalf("unexpected formatted translation: %q", got)
	}
	if got := T("migrate.success", "postgres", 2, 5); got != "Copied 2 server(s) and 5 domain(s) to the postgres database." {
		t.Fatalf("positional args: %q", got)
	}

	got := T("sync.summary", map[string]any{"Servers": 2, "Epoch": 1000, "Written": 3, "Unchanged": 1, "Purged": 0})
	if got != "Sync finished: 2 server(s), epoch 1000, 3 written, 1 unchanged, 0 purged." {
		t.Fatalf("template data: %q", got)
	}

	SetLang("de")
	if GetLang() != "de" {
		t.Fatalf("expected lang 'de', got %q", GetLang())
	}
	if got := T("table.type"); got != "Typ" {
		t.Fatalf("expected German 'Typ', got %q", got)
	}
}

func TestT_UnknownIDFallsBack(t *testing.T) {
	Init("en")
	if got := T("no.such.message"); got != "no.such.message" {
		t.Fatalf("got %q", got)
	}
	Init("fr")
	if got := T("table.epoch"); got != "Epoch" {
		t.Fatalf("unknown language should fall back to English, got %q", got)
	}
}

func TestLocalesHaveSameKeys(t *testing.T) {
	en := loadKeys(t, "en.yaml")
	de := loadKeys(t, "de.yaml")
	for k := range en {
		if _, ok := de[k]; !ok {
			t.Errorf("de.yaml is missing %q", k)
		}
	}
	for k := range de {
		if _, ok := en[k]; !ok {
			t.Errorf("en.yaml is missing %q", k)
		}
	}
}

func loadKeys(t *testing.T, name string) map[string]any {
	t.Helper()
	data, err := localeFS.ReadFile("locales/" + name)
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return out
}
