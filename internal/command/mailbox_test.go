// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubsdigital/tvsaude/internal/domain"
	"github.com/ubsdigital/tvsaude/internal/store"
)

func newMailbox(t *testing.T) *Mailbox {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "tvsaude.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewMailbox(s)
}

func strptr(s string) *string { return &s }

func TestDispatchAndLatest(t *testing.T) {
	m := newMailbox(t)
	ctx := context.Background()

	_, found, err := m.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, found, "empty mailbox")

	first, err := m.Dispatch(ctx, domain.CmdPause, nil, "maria")
	require.NoError(t, err)
	second, err := m.Dispatch(ctx, domain.CmdNext, nil, "maria")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	latest, found, err := m.Latest(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second.ID, latest.ID, "mailbox holds only the newest command")
	assert.Equal(t, domain.CmdNext, latest.Name)
}

func TestDispatchRejectsUnknownCommand(t *testing.T) {
	m := newMailbox(t)
	_, err := m.Dispatch(context.Background(), "dance", nil, "x")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestDispatchBlocksLoopInducingCommands(t *testing.T) {
	m := newMailbox(t)
	ctx := context.Background()

	for _, name := range []domain.CommandName{domain.CmdPlay, domain.CmdRefresh, domain.CmdRestart} {
		_, err := m.Dispatch(ctx, name, nil, "x")
		assert.ErrorIs(t, err, ErrBlocked, string(name))

		_, err = m.Dispatch(ctx, name, strptr("null"), "x")
		assert.ErrorIs(t, err, ErrBlocked, string(name)+" with json null")
	}

	// The same commands with real parameters are fine.
	_, err := m.Dispatch(ctx, domain.CmdPlay, strptr(`{"video_id":3}`), "x")
	assert.NoError(t, err)

	// Nothing blocked ever reached the mailbox.
	latest, found, err := m.Latest(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.CmdPlay, latest.Name)
	require.NotNil(t, latest.Params)
}

func TestTrackerExecutesExactlyOnce(t *testing.T) {
	var tr Tracker
	cmd := domain.Command{ID: 7, Name: domain.CmdNext}

	assert.True(t, tr.Accept(cmd), "first poll executes")
	assert.False(t, tr.Accept(cmd), "second poll of the same id is a no-op")
	assert.False(t, tr.Accept(cmd), "and every poll after that")

	assert.True(t, tr.Accept(domain.Command{ID: 8, Name: domain.CmdPause}), "new id executes")
	assert.Equal(t, int64(8), tr.LastSeen())
}

func TestTrackerFiltersBlockedCombinations(t *testing.T) {
	var tr Tracker

	// A blocked command that somehow reached the consumer (old cache, older
	// server version) must never execute, but its id is still consumed.
	blocked := domain.Command{ID: 3, Name: domain.CmdRefresh}
	assert.False(t, tr.Accept(blocked))
	assert.Equal(t, int64(3), tr.LastSeen())
	assert.False(t, tr.Accept(blocked), "stays rejected on re-poll")
}

func TestBlockedTable(t *testing.T) {
	cases := []struct {
		name    domain.CommandName
		params  *string
		blocked bool
	}{
		{domain.CmdPlay, nil, true},
		{domain.CmdPlay, strptr(""), true},
		{domain.CmdPlay, strptr("{}"), true},
		{domain.CmdPlay, strptr(`{"video_id":1}`), false},
		{domain.CmdRefresh, nil, true},
		{domain.CmdRestart, nil, true},
		{domain.CmdPause, nil, false},
		{domain.CmdEmergencyStop, nil, false},
	}
	for _, tc := range cases {
		_, blocked := Blocked(tc.name, tc.params)
		assert.Equal(t, tc.blocked, blocked, "%s %v", tc.name, tc.params)
	}
}
