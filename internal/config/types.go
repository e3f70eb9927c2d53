// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Purge scopes for the stale-row collector.
const (
	PurgeScopeFetched = "fetched"
	PurgeScopeGlobal  = "global"
)

// Config is the on-disk and in-memory configuration.
type Config struct {
	Database Database `mapstructure:"database" yaml:"database"`
	Language string   `mapstructure:"language" yaml:"language"`
	Tables   Tables   `mapstructure:"tables" yaml:"tables"`
	Sync     Sync     `mapstructure:"sync" yaml:"sync"`
}

// Database selects the backend. Type is one of sqlite, postgres, mysql.
type Database struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// Tables holds the operator-chosen table names.
type Tables struct {
	Domains string `mapstructure:"domains" yaml:"domains"`
	Servers string `mapstructure:"servers" yaml:"servers"`
}

// Sync tunes the reconciliation pass.
type Sync struct {
	Port               int    `mapstructure:"port" yaml:"port"`
	Timeout            string `mapstructure:"timeout" yaml:"timeout"`
	Concurrency        int    `mapstructure:"concurrency" yaml:"concurrency"`
	PurgeScope         string `mapstructure:"purge_scope" yaml:"purge_scope"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// TimeoutDuration parses Timeout. Validate guarantees it parses.
func (s Sync) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Defaults returns the viper defaults keyed by dotted config key.
func Defaults() map[string]any {
	return map[string]any{
		"database.type":             "sqlite",
		"database.dsn":              DefaultDSN(),
		"language":                  "en",
		"tables.domains":            "domains",
		"tables.servers":            "servers",
		"sync.port":                 2087,
		"sync.timeout":              "30s",
		"sync.concurrency":          1,
		"sync.purge_scope":          PurgeScopeFetched,
		"sync.insecure_skip_verify": true,
	}
}

// Default returns a Config populated with Defaults.
func Default() Config {
	return Config{
		Database: Database{Type: "sqlite", Dsn: DefaultDSN()},
		Language: "en",
		Tables:   Tables{Domains: "domains", Servers: "servers"},
		Sync: Sync{
			Port:               2087,
			Timeout:            "30s",
			Concurrency:        1,
			PurgeScope:         PurgeScopeFetched,
			InsecureSkipVerify: true,
		},
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// reserved words that are legal identifiers by shape but break at least one
// of the supported engines when used unquoted in tooling or migrations.
var reserved = map[string]struct{}{
	"select": {}, "insert": {}, "update": {}, "delete": {}, "from": {},
	"where": {}, "table": {}, "index": {}, "group": {}, "order": {},
	"user": {}, "key": {}, "primary": {}, "references": {}, "drop": {},
	"create": {}, "alter": {}, "join": {}, "union": {}, "default": {},
	"schema_migrations": {}, "sync_runs": {},
}

// ValidateIdentifier checks a configurable table name against the allow-list
// shape and the reserved-word list.
func ValidateIdentifier(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q: must match %s", name, identRe.String())
	}
	if _, bad := reserved[strings.ToLower(name)]; bad {
		return fmt.Errorf("invalid table name %q: reserved", name)
	}
	return nil
}

// Validate rejects configurations the rest of the program cannot honour.
func (c Config) Validate() error {
	switch c.Database.Type {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}
	if err := ValidateIdentifier(c.Tables.Domains); err != nil {
		return fmt.Errorf("tables.domains: %w", err)
	}
	if err := ValidateIdentifier(c.Tables.Servers); err != nil {
		return fmt.Errorf("tables.servers: %w", err)
	}
	if strings.EqualFold(c.Tables.Domains, c.Tables.Servers) {
		return fmt.Errorf("tables.domains and tables.servers must differ")
	}
	switch c.Sync.PurgeScope {
	case PurgeScopeFetched, PurgeScopeGlobal:
	default:
		return fmt.Errorf("unsupported sync.purge_scope %q", c.Sync.PurgeScope)
	}
	if c.Sync.Port < 1 || c.Sync.Port > 65535 {
		return fmt.Errorf("sync.port %d out of range", c.Sync.Port)
	}
	if c.Sync.Concurrency < 1 {
		return fmt.Errorf("sync.concurrency must be at least 1")
	}
	d, err := time.ParseDuration(c.Sync.Timeout)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid sync.timeout %q", c.Sync.Timeout)
	}
	return nil
}
