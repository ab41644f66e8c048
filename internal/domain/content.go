// SPDX-License-Identifier: MIT

package domain

import "time"

// Locality is a clinic (UBS) that owns IP rules and content associations.
type Locality struct {
	ID          int64     `json:"id"`
	Name        string    `json:"nome"`
	Description string    `json:"descricao,omitempty"`
	Active      bool      `json:"ativo"`
	CreatedAt   time.Time `json:"criado_em"`
}

// LocalityIP maps an inbound display address to a locality. Rule is an exact
// IP ("10.0.50.10"), a CIDR ("10.0.50.0/24") or an inclusive range
// ("10.0.50.10-10.0.50.20").
type LocalityIP struct {
	ID         int64  `json:"id"`
	LocalityID int64  `json:"localidade_id"`
	Rule       string `json:"regra"`
}

// VideoSource distinguishes locally stored files from YouTube embeds.
type VideoSource string

const (
	SourceLocal   VideoSource = "local"
	SourceYouTube VideoSource = "youtube"
)

// Video is a single playable item in the display rotation.
type Video struct {
	ID          int64  `json:"id"`
	Title       string `json:"titulo"`
	Description string `json:"descricao,omitempty"`
	Category    string `json:"categoria,omitempty"`
	FilePath    string `json:"arquivo,omitempty"`
	YouTubeURL  string `json:"youtube_url,omitempty"`
	DurationSec int    `json:"duracao_s"`
	Active      bool   `json:"ativo"`
	Order       int    `json:"ordem"`
}

// Source reports where the video plays from. A file path wins when both are set.
func (v Video) Source() VideoSource {
	if v.FilePath != "" {
		return SourceLocal
	}
	return SourceYouTube
}

// Playlist is an ordered collection of videos. At most one playlist is active
// globally at a time; the store enforces this on activation.
type Playlist struct {
	ID     int64  `json:"id"`
	Name   string `json:"nome"`
	Active bool   `json:"ativo"`
}

// Image is a slideshow asset.
type Image struct {
	ID          int64  `json:"id"`
	Title       string `json:"titulo"`
	Description string `json:"descricao,omitempty"`
	FilePath    string `json:"arquivo"`
	DurationMS  int64  `json:"duracao_ms"`
	Order       int    `json:"ordem"`
	Active      bool   `json:"ativo"`
}

// TickerMessage is a free-text line scrolled at the bottom of the display.
type TickerMessage struct {
	ID     int64  `json:"id"`
	Text   string `json:"texto"`
	Order  int    `json:"ordem"`
	Active bool   `json:"ativo"`
}

// ContentBundle is the Content Resolver's answer for one display client.
// An empty Videos slice means "no content anywhere", not an error.
type ContentBundle struct {
	Locality *Locality `json:"locality,omitempty"`
	Playlist *Playlist `json:"playlist,omitempty"`
	Videos   []Video   `json:"videos"`
}
