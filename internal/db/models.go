// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"time"

	"github.com/toeirei/cpcm/internal/model"
	"github.com/toeirei/cpcm/internal/security"
	"github.com/uptrace/bun"
)

// The table tags are placeholders: every query overrides the table with the
// configured name through ModelTableExpr/TableExpr.

// ServerModel maps a row of the servers table.
type ServerModel struct {
	bun.BaseModel `bun:"table:servers,alias:s"`
	Name          string          `bun:"name,pk"`
	IP            string          `bun:"ip,pk"`
	User          string          `bun:"user"`
	APIKey        security.Secret `bun:"apikey,type:text"`
	Hostname      string          `bun:"hostname"`
	Group         string          `bun:"group"`
}

// DomainModel maps a row of the domains table.
type DomainModel struct {
	bun.BaseModel      `bun:"table:domains,alias:d"`
	ServerName         string `bun:"server_name,pk"`
	ServerIP           string `bun:"server_ip"`
	Domain             string `bun:"domain,pk"`
	DomainType         string `bun:"domain_type"`
	Docroot            string `bun:"docroot"`
	IPv4               string `bun:"ipv4"`
	IPv4SSL            string `bun:"ipv4_ssl"`
	IPv6               string `bun:"ipv6"`
	IPv6IsDedicated    int    `bun:"ipv6_is_dedicated"`
	ModSecurityEnabled int    `bun:"modsecurity_enabled"`
	ParentDomain       string `bun:"parent_domain"`
	PHPVersion         string `bun:"php_version"`
	Port               string `bun:"port"`
	PortSSL            string `bun:"port_ssl"`
	User               string `bun:"user"`
	UserOwner          string `bun:"user_owner"`
	LastConfirmedEpoch int64  `bun:"last_confirmed_epoch"`
}

// domainUpdateColumns are overwritten when a newer epoch is accepted. The
// epoch column is last: MySQL evaluates assignments left to right and every
// guard compares against the stored epoch.
var domainUpdateColumns = []string{
	"server_ip", "domain_type", "docroot", "ipv4", "ipv4_ssl", "ipv6",
	"ipv6_is_dedicated", "modsecurity_enabled", "parent_domain", "php_version",
	"port", "port_ssl", "user", "user_owner", "last_confirmed_epoch",
}

// SyncRunModel maps a row of the sync_runs audit table.
type SyncRunModel struct {
	bun.BaseModel    `bun:"table:sync_runs,alias:r"`
	ID               string    `bun:"id,pk"`
	Epoch            int64     `bun:"epoch"`
	StartedAt        time.Time `bun:"started_at"`
	FinishedAt       time.Time `bun:"finished_at"`
	ServersTotal     int       `bun:"servers_total"`
	ServersFailed    int       `bun:"servers_failed"`
	RecordsWritten   int       `bun:"records_written"`
	RecordsUnchanged int       `bun:"records_unchanged"`
	RecordsInvalid   int       `bun:"records_invalid"`
	WriteErrors      int       `bun:"write_errors"`
	Purged           int64     `bun:"purged"`
}

func serverToModel(s ServerModel) model.Server {
	return model.Server{
		Name:     s.Name,
		IP:       s.IP,
		User:     s.User,
		APIKey:   s.APIKey,
		Hostname: s.Hostname,
		Group:    s.Group,
	}
}

func serverFromModel(s model.Server) ServerModel {
	hostname, group := s.Hostname, s.Group
	if hostname == "" {
		hostname = model.NullMarker
	}
	if group == "" {
		group = model.NullMarker
	}
	return ServerModel{
		Name:     s.Name,
		IP:       s.IP,
		User:     s.User,
		APIKey:   s.APIKey,
		Hostname: hostname,
		Group:    group,
	}
}

func domainToModel(d DomainModel) model.DomainRecord {
	return model.DomainRecord{
		ServerName:         d.ServerName,
		ServerIP:           d.ServerIP,
		Domain:             d.Domain,
		DomainType:         d.DomainType,
		Docroot:            d.Docroot,
		IPv4:               d.IPv4,
		IPv4SSL:            d.IPv4SSL,
		IPv6:               d.IPv6,
		IPv6IsDedicated:    d.IPv6IsDedicated,
		ModSecurityEnabled: d.ModSecurityEnabled,
		ParentDomain:       d.ParentDomain,
		PHPVersion:         d.PHPVersion,
		Port:               d.Port,
		PortSSL:            d.PortSSL,
		User:               d.User,
		UserOwner:          d.UserOwner,
		LastConfirmedEpoch: d.LastConfirmedEpoch,
	}
}

func domainFromModel(d model.DomainRecord) DomainModel {
	return DomainModel{
		ServerName:         d.ServerName,
		ServerIP:           d.ServerIP,
		Domain:             d.Domain,
		DomainType:         d.DomainType,
		Docroot:            d.Docroot,
		IPv4:               d.IPv4,
		IPv4SSL:            d.IPv4SSL,
		IPv6:               d.IPv6,
		IPv6IsDedicated:    d.IPv6IsDedicated,
		ModSecurityEnabled: d.ModSecurityEnabled,
		ParentDomain:       d.ParentDomain,
		PHPVersion:         d.PHPVersion,
		Port:               d.Port,
		PortSSL:            d.PortSSL,
		User:               d.User,
		UserOwner:          d.UserOwner,
		LastConfirmedEpoch: d.LastConfirmedEpoch,
	}
}

func syncRunToModel(r SyncRunModel) model.SyncRun {
	return model.SyncRun{
		ID:               r.ID,
		Epoch:            r.Epoch,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
		ServersTotal:     r.ServersTotal,
		ServersFailed:    r.ServersFailed,
		RecordsWritten:   r.RecordsWritten,
		RecordsUnchanged: r.RecordsUnchanged,
		RecordsInvalid:   r.RecordsInvalid,
		WriteErrors:      r.WriteErrors,
		Purged:           r.Purged,
	}
}

func syncRunFromModel(r model.SyncRun) SyncRunModel {
	return SyncRunModel{
		ID:               r.ID,
		Epoch:            r.Epoch,
		StartedAt:        r.StartedAt.UTC(),
		FinishedAt:       r.FinishedAt.UTC(),
		ServersTotal:     r.ServersTotal,
		ServersFailed:    r.ServersFailed,
		RecordsWritten:   r.RecordsWritten,
		RecordsUnchanged: r.RecordsUnchanged,
		RecordsInvalid:   r.RecordsInvalid,
		WriteErrors:      r.WriteErrors,
		Purged:           r.Purged,
	}
}
