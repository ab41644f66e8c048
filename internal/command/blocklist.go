// SPDX-License-Identifier: MIT

package command

import (
	"strings"

	"github.com/ubsdigital/tvsaude/internal/domain"
)

// blockRule declares one permanently blocked command/parameter combination,
// together with the concrete failure mode it prevents. The table is checked at
// dispatch time and again by the consumer before execution, so a stale cached
// command cannot slip through either.
type blockRule struct {
	name   domain.CommandName
	params func(*string) bool
	reason string
}

// nilParams matches a missing or empty/null parameter blob.
func nilParams(p *string) bool {
	if p == nil {
		return true
	}
	s := strings.TrimSpace(*p)
	return s == "" || s == "null" || s == "{}"
}

var blocklist = []blockRule{
	{
		name:   domain.CmdPlay,
		params: nilParams,
		reason: "bare play restarts the whole playback loop on every poll, displays re-execute it endlessly",
	},
	{
		name:   domain.CmdRefresh,
		params: nilParams,
		reason: "parameterless refresh reloads the client page, which re-polls and reloads again forever",
	},
	{
		name:   domain.CmdRestart,
		params: nilParams,
		reason: "parameterless restart re-enters the loading state on every poll and never converges",
	},
}

// Blocked reports whether the command/parameter combination is on the
// blocklist, returning the documented reason when it is.
func Blocked(name domain.CommandName, params *string) (string, bool) {
	for _, rule := range blocklist {
		if rule.name == name && rule.params(params) {
			return rule.reason, true
		}
	}
	return "", false
}
