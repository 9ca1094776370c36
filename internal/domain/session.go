package domain

// SessionState tracks a session through its lifecycle. Transitions are
// strictly forward: Unauthenticated -> Authenticated -> Authorized ->
// Attached -> Recording -> Closed.
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticated   SessionState = "authenticated"
	StateAuthorized      SessionState = "authorized"
	StateAttached        SessionState = "attached"
	StateRecording       SessionState = "recording"
	StateClosed          SessionState = "closed"
)

// SessionOutcome describes how a closed session ended.
type SessionOutcome string

const (
	OutcomeCompleted   SessionOutcome = "completed"
	OutcomeFailed      SessionOutcome = "failed"
	OutcomeInterrupted SessionOutcome = "interrupted"
)
