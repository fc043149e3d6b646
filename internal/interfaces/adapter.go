package interfaces

import "context"

// AdapterOutcomeKind names the classified result of one External-Client Adapter
// invocation (§4.1), combining exit status, output markers, and filesystem
// inspection.
type AdapterOutcomeKind string

const (
	OutcomeContentWritten     AdapterOutcomeKind = "ContentWritten"
	OutcomeNeedsSecondFactor  AdapterOutcomeKind = "NeedsSecondFactor"
	OutcomeSessionExpired     AdapterOutcomeKind = "SessionExpired"
	OutcomeAccessDenied       AdapterOutcomeKind = "AccessDenied"
	OutcomeNotFound           AdapterOutcomeKind = "NotFound"
	OutcomeTransientFailure   AdapterOutcomeKind = "TransientFailure"
	OutcomeTimeout            AdapterOutcomeKind = "Timeout"
)

// SecondFactorKind names which out-of-band code the external tool prompted
// for (§4.1 output classification table).
type SecondFactorKind string

const (
	SecondFactorEmail  SecondFactorKind = "email"
	SecondFactorMobile SecondFactorKind = "mobile"
)

// AdapterOutcome is returned by Fetch once the child process has exited and
// filesystem verification has run.
type AdapterOutcome struct {
	Kind         AdapterOutcomeKind
	ContentPath  string           // set when Kind == ContentWritten
	SecondFactor SecondFactorKind // set when Kind == NeedsSecondFactor
	Detail       string           // free-form, never surfaced to callers
}

func (o AdapterOutcome) Retryable() bool {
	return o.Kind == OutcomeTransientFailure || o.Kind == OutcomeTimeout
}

// AdapterEventKind distinguishes the typed events the Adapter emits on its
// one-directional channel to the Orchestrator (§9: "re-architect as a
// one-directional event channel").
type AdapterEventKind string

const (
	EventProgressTick AdapterEventKind = "ProgressTick"
	EventOutputLine   AdapterEventKind = "OutputLine"
	EventOutcome      AdapterEventKind = "Outcome"
)

// AdapterEvent is one item on the Adapter->Orchestrator event channel. The
// Adapter never holds a reference back to the Job; it only produces these.
type AdapterEvent struct {
	Kind     AdapterEventKind
	Line     string         // set for EventOutputLine
	Delta    int            // set for EventProgressTick: absolute progress percent
	Outcome  AdapterOutcome // set for EventOutcome
}

// FetchRequest names one download attempt (§4.1).
type FetchRequest struct {
	WorkspacePath string
	AppID         string
	ItemID        string
	CachedSession bool // true: invoke without password, relying on saved credential store
	Anonymous     bool // true: "+login anonymous", session machinery is skipped entirely
}

// Adapter wraps invocations of the external steam command-line tool
// (§4.1).
type Adapter interface {
	// Fetch runs one invocation and streams typed events on the returned
	// channel; the channel is closed after the terminal AdapterEvent
	// (Kind == EventOutcome) is sent.
	Fetch(ctx context.Context, req FetchRequest) <-chan AdapterEvent

	// VerifySession spawns a short-lived login-and-quit process with a
	// hard deadline; returns true only on an unambiguous success marker.
	VerifySession(ctx context.Context, username, password string) (bool, error)

	// AuthenticateWithSecondFactor performs the one-time bootstrap login
	// that supplies an out-of-band code.
	AuthenticateWithSecondFactor(ctx context.Context, username, password, code string) error

	// SessionValid reports the Adapter's current, possibly cached, view of
	// session validity (§4.4 "session-aware first attempt").
	SessionValid() bool
}
