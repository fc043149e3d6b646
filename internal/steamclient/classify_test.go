package steamclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/94faddy/dz-wrokshop/internal/interfaces"
)

func TestClassificationFeedLine(t *testing.T) {
	cases := []struct {
		name         string
		lines        []string
		contentFound bool
		wantKind     interfaces.AdapterOutcomeKind
		wantSecond   interfaces.SecondFactorKind
	}{
		{
			name:         "clean success with content present",
			lines:        []string{"Logged in OK", "Success. Downloaded item 123"},
			contentFound: true,
			wantKind:     interfaces.OutcomeContentWritten,
		},
		{
			name:         "success text but empty directory is transient",
			lines:        []string{"Logged in OK", "Success. Downloaded item 123"},
			contentFound: false,
			wantKind:     interfaces.OutcomeTransientFailure,
		},
		{
			name:       "steam guard prompt wins over later error",
			lines:      []string{"This account is protected", "Steam Guard code:", "ERROR! generic failure"},
			wantKind:   interfaces.OutcomeNeedsSecondFactor,
			wantSecond: interfaces.SecondFactorEmail,
		},
		{
			name:     "mobile two-factor prompt",
			lines:    []string{"Two-factor code:"},
			wantKind: interfaces.OutcomeNeedsSecondFactor,
		},
		{
			name:     "invalid password marks session expired",
			lines:    []string{"FAILED (Invalid Password)"},
			wantKind: interfaces.OutcomeSessionExpired,
		},
		{
			name:     "no subscription is access denied",
			lines:    []string{"No subscription"},
			wantKind: interfaces.OutcomeAccessDenied,
		},
		{
			name:     "item not found",
			lines:    []string{"Item not found"},
			wantKind: interfaces.OutcomeNotFound,
		},
		{
			name:     "generic error is transient",
			lines:    []string{"ERROR! Download item 123 failed (Timeout)."},
			wantKind: interfaces.OutcomeTransientFailure,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClassification()
			for _, l := range tc.lines {
				c.feedLine(l)
			}
			outcome := c.resolve("/tmp/content", tc.contentFound)
			assert.Equal(t, tc.wantKind, outcome.Kind)
			if tc.wantSecond != "" {
				assert.Equal(t, tc.wantSecond, outcome.SecondFactor)
			}
		})
	}
}

func TestPrecedenceOrdering(t *testing.T) {
	c := newClassification()
	c.feedLine("ERROR! generic")
	c.feedLine("No subscription")
	// access-denied (rank 2) outranks transient (rank 3): the earlier
	// transient line must not lock in the verdict.
	outcome := c.resolve("", false)
	assert.Equal(t, interfaces.OutcomeAccessDenied, outcome.Kind)
}
