package notify

import (
	"context"
	"log"
)

// Dispatcher sends a templated email to one recipient. Implementations sit
// behind an external mail service; the lifecycle engine only ever calls this
// after commit and treats failures as log-only.
type Dispatcher interface {
	Send(ctx context.Context, recipient, template string, fields map[string]string) error
}

// LogDispatcher is the default wiring until a real mail adapter is
// configured. It also serves tests.
type LogDispatcher struct{}

func (LogDispatcher) Send(_ context.Context, recipient, template string, fields map[string]string) error {
	log.Printf("notify: to=%s template=%s fields=%v", recipient, template, fields)
	return nil
}
