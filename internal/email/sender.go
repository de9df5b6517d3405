package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/dripmail/dripmail/internal/config"
	"github.com/dripmail/dripmail/internal/content"
)

// ErrDelivery indicates the transport could not complete. A timed-out
// attempt is a delivery failure, never a success.
var ErrDelivery = errors.New("email delivery failure")

// Message represents a composed marketing email. Images are inline
// attachments addressable from the HTML body by their cid: tokens.
type Message struct {
	To       []string
	Subject  string
	HTMLBody string
	Images   []content.Image
}

// Sender is the interface every email provider implements. The dispatch
// path depends only on this boundary, so providers can be swapped without
// touching business logic.
type Sender interface {
	// Send attempts transport of the message to all destinations at once.
	Send(ctx context.Context, msg Message) error
}

// New creates the Sender selected by configuration
func New(ctx context.Context, cfg config.EmailConfig) (Sender, error) {
	switch cfg.Provider {
	case "", "smtp":
		return NewSMTPSender(cfg), nil
	case "gmail":
		return NewGmailSender(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
