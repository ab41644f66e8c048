// SPDX-License-Identifier: MIT

package resolver

import (
	"net/netip"
	"strings"

	"github.com/ubsdigital/tvsaude/internal/domain"
)

// matchLocality returns the locality whose IP rule matches clientIP. Rules are
// checked in storage order; the first match wins.
func matchLocality(rules []domain.LocalityIP, clientIP string) (int64, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(clientIP))
	if err != nil {
		return 0, false
	}
	addr = addr.Unmap()

	for _, rule := range rules {
		if ruleMatches(rule.Rule, addr) {
			return rule.LocalityID, true
		}
	}
	return 0, false
}

// ruleMatches accepts three rule shapes: exact IP, CIDR prefix, and inclusive
// "start-end" range. Malformed rules never match.
func ruleMatches(rule string, addr netip.Addr) bool {
	rule = strings.TrimSpace(rule)
	switch {
	case strings.Contains(rule, "/"):
		prefix, err := netip.ParsePrefix(rule)
		if err != nil {
			return false
		}
		return prefix.Contains(addr)
	case strings.Contains(rule, "-"):
		parts := strings.SplitN(rule, "-", 2)
		start, err1 := netip.ParseAddr(strings.TrimSpace(parts[0]))
		end, err2 := netip.ParseAddr(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return false
		}
		return addr.Compare(start.Unmap()) >= 0 && addr.Compare(end.Unmap()) <= 0
	default:
		exact, err := netip.ParseAddr(rule)
		if err != nil {
			return false
		}
		return addr == exact.Unmap()
	}
}
