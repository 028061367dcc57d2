package voice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
)

// CloseSessionNoLongerValid is the voice gateway close code sent when the
// handshake fails.
const CloseSessionNoLongerValid = 4006

// ErrHandshake marks a voice connection that never became ready. discordgo
// handles the 4006 close internally and only reports a join timeout, so
// every failed join or move is wrapped with it.
var ErrHandshake = errors.New("voice handshake failed")

// joinError wraps a ChannelVoiceJoin or ChangeChannel failure.
func joinError(op, cid string, err error) error {
	return fmt.Errorf("failed to %s voice channel %s: %w: %w", op, cid, ErrHandshake, err)
}

// IsHandshakeError reports whether err is a failed voice handshake.
func IsHandshakeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrHandshake) {
		return true
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == CloseSessionNoLongerValid
	}
	return strings.Contains(err.Error(), "4006")
}
