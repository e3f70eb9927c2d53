// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"fmt"
	"time"

	"github.com/toeirei/cpcm/internal/security"
)

// NullMarker fills optional text columns the control panel did not report.
// It keeps those columns non-nullable while staying distinguishable from
// real data.
const NullMarker = "NULL"

// ServerKey is the identity of a registered control-panel server.
type ServerKey struct {
	Name string
	IP   string
}

// String returns the name@ip representation.
func (k ServerKey) String() string {
	return fmt.Sprintf("%s@%s", k.Name, k.IP)
}

// Server is a WHM host the cache pulls inventory from.
type Server struct {
	Name     string          `json:"name"`
	IP       string          `json:"ip"`
	User     string          `json:"user"`
	APIKey   security.Secret `json:"-"`
	Hostname string          `json:"hostname"`
	Group    string          `json:"group"`
}

// Key returns the (name, ip) identity.
func (s Server) Key() ServerKey { return ServerKey{Name: s.Name, IP: s.IP} }

// String returns the name@ip representation. The API key is never included.
func (s Server) String() string { return s.Key().String() }

// DomainRecord is one cached domain row. Rows are owned by the sync pass:
// created, refreshed or purged only there.
type DomainRecord struct {
	ServerName         string `json:"server_name"`
	ServerIP           string `json:"server_ip"`
	Domain             string `json:"domain"`
	DomainType         string `json:"domain_type"`
	Docroot            string `json:"docroot"`
	IPv4               string `json:"ipv4"`
	IPv4SSL            string `json:"ipv4_ssl"`
	IPv6               string `json:"ipv6"`
	IPv6IsDedicated    int    `json:"ipv6_is_dedicated"`
	ModSecurityEnabled int    `json:"modsecurity_enabled"`
	ParentDomain       string `json:"parent_domain"`
	PHPVersion         string `json:"php_version"`
	Port               string `json:"port"`
	PortSSL            string `json:"port_ssl"`
	User               string `json:"user"`
	UserOwner          string `json:"user_owner"`
	LastConfirmedEpoch int64  `json:"last_confirmed_epoch"`
}

// ServerKey returns the owning server's identity.
func (d DomainRecord) ServerKey() ServerKey {
	return ServerKey{Name: d.ServerName, IP: d.ServerIP}
}

// SyncRun is the audit row written after each completed pass.
type SyncRun struct {
	ID               string    `json:"id"`
	Epoch            int64     `json:"epoch"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	ServersTotal     int       `json:"servers_total"`
	ServersFailed    int       `json:"servers_failed"`
	RecordsWritten   int       `json:"records_written"`
	RecordsUnchanged int       `json:"records_unchanged"`
	RecordsInvalid   int       `json:"records_invalid"`
	WriteErrors      int       `json:"write_errors"`
	Purged           int64     `json:"purged"`
}
