// SPDX-License-Identifier: MIT

// Package command implements the depth-1 remote command mailbox: the issuing
// side writes commands, the display polls only the most recent one.
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/log"
	"github.com/ubsdigital/tvsaude/internal/metrics"
	"github.com/ubsdigital/tvsaude/internal/store"
)

var (
	// ErrBlocked marks a dispatch rejected by the blocklist.
	ErrBlocked = errors.New("command blocked")
	// ErrUnknownCommand marks a dispatch with an unrecognized command name.
	ErrUnknownCommand = errors.New("unknown command")
)

// CommandStore is the slice of the store the mailbox needs.
type CommandStore interface {
	InsertCommand(ctx context.Context, c domain.Command) (domain.Command, error)
	LatestCommand(ctx context.Context) (domain.Command, error)
}

// Mailbox dispatches and serves remote commands.
type Mailbox struct {
	store CommandStore
}

// NewMailbox creates a mailbox backed by the given store.
func NewMailbox(s CommandStore) *Mailbox {
	return &Mailbox{store: s}
}

// Dispatch validates and records a command. Blocklisted command/parameter
// combinations are rejected here, before they can ever reach a display.
func (m *Mailbox) Dispatch(ctx context.Context, name domain.CommandName, params *string, issuedBy string) (domain.Command, error) {
	if !name.Valid() {
		return domain.Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	if reason, blocked := Blocked(name, params); blocked {
		metrics.CommandBlocked(string(name))
		logger := log.WithComponentFromContext(ctx, "command")
		logger.Warn().
			Str("event", "command.blocked").
			Str("command", string(name)).
			Str("reason", reason).
			Str("issued_by", issuedBy).
			Msg("blocklisted command rejected at dispatch")
		return domain.Command{}, fmt.Errorf("%w: %s", ErrBlocked, reason)
	}

	c, err := m.store.InsertCommand(ctx, domain.Command{Name: name, Params: params, IssuedBy: issuedBy})
	if err != nil {
		return domain.Command{}, fmt.Errorf("dispatch %s: %w", name, err)
	}

	metrics.CommandDispatched(string(name))
	logger := log.WithComponentFromContext(ctx, "command")
	logger.Info().
		Str("event", "command.dispatched").
		Int64("id", c.ID).
		Str("command", string(name)).
		Str("issued_by", issuedBy).
		Msg("command dispatched")
	return c, nil
}

// Latest returns the most recent command. The second return is false when the
// mailbox is empty.
func (m *Mailbox) Latest(ctx context.Context) (domain.Command, bool, error) {
	c, err := m.store.LatestCommand(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Command{}, false, nil
	}
	if err != nil {
		return domain.Command{}, false, fmt.Errorf("latest command: %w", err)
	}
	return c, true, nil
}
