// SPDX-License-Identifier: MIT

package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ubsdigital/tvsaude/internal/domain"
)

func TestMatchLocalityRuleShapes(t *testing.T) {
	rules := []domain.LocalityIP{
		{LocalityID: 1, Rule: "10.0.50.10"},
		{LocalityID: 2, Rule: "10.0.60.0/24"},
		{LocalityID: 3, Rule: "10.0.70.10-10.0.70.20"},
	}

	cases := []struct {
		ip      string
		want    int64
		matched bool
	}{
		{"10.0.50.10", 1, true},
		{"10.0.50.11", 0, false},
		{"10.0.60.1", 2, true},
		{"10.0.60.255", 2, true},
		{"10.0.61.1", 0, false},
		{"10.0.70.10", 3, true},
		{"10.0.70.15", 3, true},
		{"10.0.70.20", 3, true},
		{"10.0.70.21", 0, false},
		{"::ffff:10.0.50.10", 1, true}, // IPv4-mapped form still matches
		{"not-an-ip", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		id, ok := matchLocality(rules, tc.ip)
		assert.Equal(t, tc.matched, ok, tc.ip)
		if tc.matched {
			assert.Equal(t, tc.want, id, tc.ip)
		}
	}
}

func TestMatchFirstRuleWins(t *testing.T) {
	rules := []domain.LocalityIP{
		{LocalityID: 7, Rule: "10.0.0.0/8"},
		{LocalityID: 8, Rule: "10.0.50.10"},
	}
	id, ok := matchLocality(rules, "10.0.50.10")
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestMalformedRulesNeverMatch(t *testing.T) {
	rules := []domain.LocalityIP{
		{LocalityID: 1, Rule: "10.0.0.0/99"},
		{LocalityID: 2, Rule: "banana-split"},
		{LocalityID: 3, Rule: ""},
	}
	_, ok := matchLocality(rules, "10.0.0.1")
	assert.False(t, ok)
}
