package notifier

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// SimulatedSender stands in for a real mail transport: it sleeps a
// plausible SMTP round-trip and logs the message.
type SimulatedSender struct {
	logger *slog.Logger
}

func NewSimulatedSender(logger *slog.Logger) *SimulatedSender {
	return &SimulatedSender{logger: logger}
}

func (s *SimulatedSender) Send(ctx context.Context, to, subject, body string) error {
	delay := time.Duration(50+rand.Intn(151)) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}
