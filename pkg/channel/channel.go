// Package channel provides the command channel used to talk to a device CLI:
// one literal command in, the raw text response out.
package channel

import (
	"context"

	"github.com/newtron-network/relayctl/pkg/util"
)

// Channel sends a command to an authenticated, connected device session and
// returns the raw response text. Calls are blocking round trips; a channel
// is owned by a single job and implementations serialize concurrent callers.
type Channel interface {
	Send(ctx context.Context, command string) (string, error)
}

// Traced wraps a Channel and logs every command and response size at debug level.
type Traced struct {
	Channel
	Device string
}

// NewTraced returns ch wrapped with debug logging for device.
func NewTraced(ch Channel, device string) *Traced {
	return &Traced{Channel: ch, Device: device}
}

// Send logs the command, forwards it, and logs the outcome.
func (t *Traced) Send(ctx context.Context, command string) (string, error) {
	log := util.WithDevice(t.Device)
	log.Debugf("send: %q", command)
	out, err := t.Channel.Send(ctx, command)
	if err != nil {
		log.Debugf("send %q failed: %v", command, err)
		return out, err
	}
	log.Debugf("recv: %d bytes", len(out))
	return out, nil
}
