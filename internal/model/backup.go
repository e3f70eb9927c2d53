// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

package model

// BackupSchemaVersion is bumped whenever BackupData changes shape.
const BackupSchemaVersion = 1

// BackupData is a container for everything exported by `cpcm backup`.
type BackupData struct {
	SchemaVersion int            `json:"schema_version"`
	Servers       []BackupServer `json:"servers"`
	Domains       []DomainRecord `json:"domains"`
	SyncRuns      []SyncRun      `json:"sync_runs"`
}

// BackupServer carries the API key in clear text: a backup that cannot be
// restored into a working registry is useless. Protect the file instead.
type BackupServer struct {
	Name     string `json:"name"`
	IP       string `json:"ip"`
	User     string `json:"user"`
	APIKey   string `json:"apikey"`
	Hostname string `json:"hostname"`
	Group    string `json:"group"`
}
