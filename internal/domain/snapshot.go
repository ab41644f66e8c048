// SPDX-License-Identifier: MIT

package domain

import "time"

// CacheSnapshot is the full-replace announcement cache file written by the sync
// bridge and read by displays that prefer disk over the API.
type CacheSnapshot struct {
	Announcements []Announcement `json:"announcements"`
	Timestamp     time.Time      `json:"timestamp"`
	Total         int            `json:"total"`
}

// SyncStatus is the bridge's companion status file.
type SyncStatus struct {
	LastSync    time.Time `json:"lastSync"`
	TotalCount  int       `json:"totalCount"`
	UrgentCount int       `json:"urgentCount"`
	ServerUp    bool      `json:"serverUp"`
}

// Exhibition is one append-only audit record of an announcement being rendered.
type Exhibition struct {
	ID             int64     `json:"id"`
	AnnouncementID int64     `json:"aviso_id"`
	LocalityID     *int64    `json:"localidade_id,omitempty"`
	DurationMS     int64     `json:"duracao_ms"`
	ShownAt        time.Time `json:"exibido_em"`
}

// ExhibitionReportRow aggregates the exhibition log per announcement.
type ExhibitionReportRow struct {
	AnnouncementID  int64  `json:"aviso_id"`
	Title           string `json:"titulo"`
	Count           int64  `json:"exibicoes"`
	TotalDurationMS int64  `json:"duracao_total_ms"`
}
