package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrChannelNotFound is returned when a channel name is not registered.
var ErrChannelNotFound = errors.New("notify: channel not found") //nolint:gochecknoglobals // sentinel error

// Channel delivers a plain-text message somewhere humans look.
type Channel interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// ChannelRegistry lists channels in delivery order.
type ChannelRegistry interface {
	Get(name string) (Channel, bool)
	Names() []string
}

// Notifier reports failed builds through the first channel that accepts the
// message.
type Notifier struct {
	channels ChannelRegistry
}

// New creates a Notifier over the given channels.
func New(channels ChannelRegistry) *Notifier {
	return &Notifier{channels: channels}
}

// NotifyFailure tells humans that a build failed. With no channels registered
// the failure is only logged.
func (n *Notifier) NotifyFailure(ctx context.Context, buildID uuid.UUID, cause error) error {
	text := FailureText(buildID, cause)

	names := n.channels.Names()
	if len(names) == 0 {
		log.Warn().Str("build_id", buildID.String()).Msg("notify: no channels, " + text)
		return nil
	}

	var lastErr error
	for _, name := range names {
		sendErr := n.NotifyVia(ctx, name, text)
		if sendErr == nil {
			return nil
		}
		lastErr = sendErr
	}

	return fmt.Errorf("notify.Notifier.NotifyFailure: all channels failed: %w", lastErr)
}

// NotifyVia sends text through one named channel.
func (n *Notifier) NotifyVia(ctx context.Context, name, text string) error {
	ch, ok := n.channels.Get(name)
	if !ok {
		return fmt.Errorf("notify.Notifier.NotifyVia: channel %q: %w", name, ErrChannelNotFound)
	}

	if err := ch.Send(ctx, text); err != nil {
		return fmt.Errorf("notify.Notifier.NotifyVia: send: %w", err)
	}

	return nil
}

// FailureText renders the message sent for a failed build.
func FailureText(buildID uuid.UUID, cause error) string {
	return fmt.Sprintf("font manifest build %s failed: %v", buildID, cause)
}
