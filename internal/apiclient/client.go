// SPDX-License-Identifier: MIT

// Package apiclient is the HTTP client used by the display engine and the sync
// bridge to talk to the tvsaude daemon.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ubsdigital/tvsaude/internal/domain"
)

// Client calls the daemon's JSON API. All calls share one rate limiter so a
// misconfigured poll interval cannot hammer the server.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

// Option tweaks a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithPollFloor caps the request rate. Zero disables the limiter.
func WithPollFloor(minInterval time.Duration) Option {
	return func(c *Client) {
		if minInterval <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(minInterval), 1)
	}
}

// New creates a client for the daemon at base.
func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
		// Generous default: the tightest poll loop runs at 3s.
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNoContent {
		return errNoContent
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, res.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// errNoContent marks a deliberate empty answer (HTTP 204), not a failure.
var errNoContent = fmt.Errorf("no content")

// Content resolves the content bundle for this display. The server decides by
// source IP, so there is nothing to send.
func (c *Client) Content(ctx context.Context) (domain.ContentBundle, error) {
	var bundle domain.ContentBundle
	if err := c.get(ctx, "/api/content", &bundle); err != nil {
		return domain.ContentBundle{}, fmt.Errorf("fetch content: %w", err)
	}
	return bundle, nil
}

// AnnouncementsSnapshot fetches the currently eligible announcements with the
// server's timestamp and count, the payload the sync bridge persists verbatim.
func (c *Client) AnnouncementsSnapshot(ctx context.Context) (domain.CacheSnapshot, error) {
	var snap domain.CacheSnapshot
	if err := c.get(ctx, "/api/announcements/active", &snap); err != nil {
		return domain.CacheSnapshot{}, fmt.Errorf("fetch announcements: %w", err)
	}
	return snap, nil
}

// ActiveAnnouncements returns the eligible announcements only.
func (c *Client) ActiveAnnouncements(ctx context.Context) ([]domain.Announcement, error) {
	snap, err := c.AnnouncementsSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Announcements, nil
}

// Announcement fetches a single announcement by ID, eligible or not.
func (c *Client) Announcement(ctx context.Context, id int64) (domain.Announcement, error) {
	var a domain.Announcement
	if err := c.get(ctx, fmt.Sprintf("/api/announcements/%d", id), &a); err != nil {
		return domain.Announcement{}, fmt.Errorf("fetch announcement %d: %w", id, err)
	}
	return a, nil
}

// ActiveImages fetches the slideshow assets.
func (c *Client) ActiveImages(ctx context.Context) ([]domain.Image, error) {
	var images []domain.Image
	if err := c.get(ctx, "/api/images", &images); err != nil {
		return nil, fmt.Errorf("fetch images: %w", err)
	}
	return images, nil
}

// ActiveMessages fetches the ticker lines.
func (c *Client) ActiveMessages(ctx context.Context) ([]domain.TickerMessage, error) {
	var messages []domain.TickerMessage
	if err := c.get(ctx, "/api/messages", &messages); err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	return messages, nil
}

// LatestCommand reads the command mailbox. found is false when the mailbox is
// empty (HTTP 204).
func (c *Client) LatestCommand(ctx context.Context) (domain.Command, bool, error) {
	var cmd domain.Command
	err := c.get(ctx, "/api/commands/latest", &cmd)
	if err == errNoContent {
		return domain.Command{}, false, nil
	}
	if err != nil {
		return domain.Command{}, false, fmt.Errorf("fetch command: %w", err)
	}
	return cmd, true, nil
}

// RegisterExhibition reports that announcementID was rendered for durationMS.
func (c *Client) RegisterExhibition(ctx context.Context, announcementID int64, localityID *int64, durationMS int64) error {
	body := struct {
		LocalityID *int64 `json:"localidade_id,omitempty"`
		DurationMS int64  `json:"duracao_ms"`
	}{LocalityID: localityID, DurationMS: durationMS}

	path := fmt.Sprintf("/api/announcements/%d/exhibit", announcementID)
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil && err != errNoContent {
		return fmt.Errorf("register exhibition: %w", err)
	}
	return nil
}

// Healthy probes the daemon's liveness endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	err := c.get(ctx, "/healthz", nil)
	return err == nil || err == errNoContent
}

// ExhibitionReport fetches the aggregated exhibition log since the given time.
func (c *Client) ExhibitionReport(ctx context.Context, since time.Time) ([]domain.ExhibitionReportRow, error) {
	path := "/api/announcements/exhibitions"
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.Format(time.RFC3339))
	}
	var rows []domain.ExhibitionReportRow
	if err := c.get(ctx, path, &rows); err != nil {
		return nil, fmt.Errorf("fetch exhibition report: %w", err)
	}
	return rows, nil
}
