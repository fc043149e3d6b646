package models

import "time"

// SessionState models the Adapter's "lazy object" as an explicit three
// state value rather than a boolean plus a scattered timestamp (§9 Design
// Notes: "Session lazy object").
type SessionState string

const (
	SessionUnknown  SessionState = "Unknown"
	SessionVerified SessionState = "Verified"
	SessionInvalid  SessionState = "Invalid"
)

// SessionSnapshot is a read-only view of the Adapter's process-wide Session
// object (§3).
type SessionSnapshot struct {
	Username       string
	State          SessionState
	LastVerifiedAt time.Time
}
