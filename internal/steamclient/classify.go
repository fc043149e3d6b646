package steamclient

import (
	"strings"

	"github.com/94faddy/dz-wrokshop/internal/interfaces"
)

// marker is one substring rule from the classification table in spec.md
// §4.1. Rules are evaluated in table order, and the table is ordered by
// the documented precedence: second-factor prompt > session expired >
// access/availability > transient > success.
type marker struct {
	substr       string
	outcome      interfaces.AdapterOutcomeKind
	secondFactor interfaces.SecondFactorKind
}

// classifiers is the single source of truth for output classification
// (§9 Design Notes: "centralise the markers in a single classification
// table"). Do not special-case matching logic outside this table.
var classifiers = []marker{
	{substr: "Steam Guard code", outcome: interfaces.OutcomeNeedsSecondFactor, secondFactor: interfaces.SecondFactorEmail},
	{substr: "Two-factor code", outcome: interfaces.OutcomeNeedsSecondFactor, secondFactor: interfaces.SecondFactorMobile},
	{substr: "Invalid Password", outcome: interfaces.OutcomeSessionExpired},
	{substr: "Login Failure", outcome: interfaces.OutcomeSessionExpired},
	{substr: "No subscription", outcome: interfaces.OutcomeAccessDenied},
	{substr: "Access Denied", outcome: interfaces.OutcomeAccessDenied},
	{substr: "Item not found", outcome: interfaces.OutcomeNotFound},
	{substr: "ERROR!", outcome: interfaces.OutcomeTransientFailure},
	{substr: "failed (Failure)", outcome: interfaces.OutcomeTransientFailure},
}

// successMarkers indicate a clean login when no higher-precedence marker
// fired; they do not themselves prove content was written (filesystem
// verification supersedes them, §4.1).
var successMarkers = []string{
	"Logged in OK",
	"Waiting for client config...OK",
	"Loading Steam API...OK",
}

// classification is the accumulated verdict from scanning every line of
// one invocation's stdout.
type classification struct {
	kind         interfaces.AdapterOutcomeKind
	secondFactor interfaces.SecondFactorKind
	sawSuccess   bool
	detail       string
}

// newClassification starts in a state with no verdict; feedLine narrows it
// as lines arrive, honoring the documented precedence order.
func newClassification() *classification {
	return &classification{}
}

// precedence maps outcome kinds to a rank; lower wins when a line matches
// more than one table entry, and a later line is only allowed to raise
// precedence, never lower it, once a verdict has already been captured
// (a job that briefly prints "ERROR!" and later recovers is still
// considered to have hit a transient blip worth retrying).
func precedence(k interfaces.AdapterOutcomeKind) int {
	switch k {
	case interfaces.OutcomeNeedsSecondFactor:
		return 0
	case interfaces.OutcomeSessionExpired:
		return 1
	case interfaces.OutcomeAccessDenied, interfaces.OutcomeNotFound:
		return 2
	case interfaces.OutcomeTransientFailure:
		return 3
	default:
		return 99
	}
}

// feedLine scans one line of the adapter's stdout against the table.
func (c *classification) feedLine(line string) {
	for _, m := range classifiers {
		if strings.Contains(line, m.substr) {
			if c.kind == "" || precedence(m.outcome) < precedence(c.kind) {
				c.kind = m.outcome
				c.secondFactor = m.secondFactor
				c.detail = line
			}
			return
		}
	}
	for _, s := range successMarkers {
		if strings.Contains(line, s) {
			c.sawSuccess = true
			return
		}
	}
}

// resolve turns the accumulated classification plus a filesystem check
// into the final AdapterOutcome. Filesystem verification is mandatory and
// supersedes textual success markers (§4.1).
func (c *classification) resolve(contentPath string, contentPresent bool) interfaces.AdapterOutcome {
	if c.kind != "" {
		return interfaces.AdapterOutcome{Kind: c.kind, SecondFactor: c.secondFactor, Detail: c.detail}
	}
	if !contentPresent {
		return interfaces.AdapterOutcome{
			Kind:   interfaces.OutcomeTransientFailure,
			Detail: "expected content path absent or empty after apparent success",
		}
	}
	return interfaces.AdapterOutcome{Kind: interfaces.OutcomeContentWritten, ContentPath: contentPath}
}
