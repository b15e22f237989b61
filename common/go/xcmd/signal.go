package xcmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Interrupted is returned by WaitInterrupted when the process receives a
// termination signal. Callers treat it as a clean shutdown request.
type Interrupted struct {
	os.Signal
}

func (m Interrupted) Error() string {
	return m.String()
}

// WaitInterrupted blocks until either SIGINT or SIGTERM signal is received or
// the provided context is canceled.
func WaitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	defer signal.Stop(ch)

	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case v := <-ch:
		return Interrupted{Signal: v}
	case <-ctx.Done():
		return ctx.Err()
	}
}
