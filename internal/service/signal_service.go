package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sawariz0r/3d-voice-room/internal/domain"
)

// SignalRelay forwards negotiation payloads between two connections without
// looking inside them. Ordering per sender/target pair comes from the
// notifier's per-connection queue.
type SignalRelay struct {
	notifier Notifier
}

func NewSignalRelay(notifier Notifier) *SignalRelay {
	return &SignalRelay{notifier: notifier}
}

func (s *SignalRelay) Relay(ctx context.Context, env domain.SignalEnvelope) error {
	if env.TargetID == "" {
		return fmt.Errorf("%w: signal target is required", domain.ErrValidation)
	}
	if env.TargetID == env.SenderID {
		return fmt.Errorf("%w: cannot signal yourself", domain.ErrValidation)
	}
	if len(env.Payload) == 0 {
		env.Payload = json.RawMessage("null")
	}

	err := s.notifier.Send(env.TargetID, domain.EventSignal, domain.SignalPayload{
		Sender: env.SenderID,
		Signal: env.Payload,
	})
	if err != nil {
		return fmt.Errorf("signal to %q: %w", env.TargetID, domain.ErrUnreachable)
	}
	return nil
}
