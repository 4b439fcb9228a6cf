package sessions

import "context"

// Session is one live completion session reported by the supervisor.
type Session struct {
	ID   string `json:"id"`
	PID  int    `json:"pid"`
	Kind string `json:"kind"`
}

// Supervisor controls the live sessions owned by the GUI shell. Stops are
// best-effort: a false StopSession result means the shell refused the
// graceful path and the caller may escalate to ForceStopSession.
type Supervisor interface {
	ListSessions(ctx context.Context) ([]Session, error)
	StopSession(ctx context.Context, id string) (bool, error)
	ForceStopSession(ctx context.Context, id string, pid int) error
}

// Nop stands in when no supervisor endpoint is configured. It reports no
// sessions, so switches proceed without touching any process.
type Nop struct{}

func (Nop) ListSessions(context.Context) ([]Session, error) { return nil, nil }

func (Nop) StopSession(context.Context, string) (bool, error) { return true, nil }

func (Nop) ForceStopSession(context.Context, string, int) error { return nil }
