// SPDX-License-Identifier: MIT

package command

import "github.com/ubsdigital/tvsaude/internal/domain"

// Tracker is the consumer-side guard of the mailbox protocol: a command is
// executed exactly once no matter how often the same row is polled, and
// blocklisted combinations are filtered again right before execution.
type Tracker struct {
	lastSeen int64
}

// Accept reports whether the polled command should be executed now. It
// returns false for a command id already seen and for blocked combinations;
// blocked ids are still remembered so they are not re-evaluated every poll.
func (t *Tracker) Accept(c domain.Command) bool {
	if c.ID == t.lastSeen {
		return false
	}
	t.lastSeen = c.ID
	if _, blocked := Blocked(c.Name, c.Params); blocked {
		return false
	}
	return true
}

// LastSeen returns the most recent command id observed.
func (t *Tracker) LastSeen() int64 {
	return t.lastSeen
}
