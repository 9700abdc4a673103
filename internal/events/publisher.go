package events

import "context"

// Publisher puts envelopes on the event stream. Best-effort; callers log
// and ignore errors rather than failing the surrounding operation.
type Publisher interface {
	Publish(ctx context.Context, e *Envelope) error
	Close() error
}
