// Package delivery dispatches plaintext verification codes over the transport
// a challenge's channel names. It is the only place plaintext codes cross a
// process boundary, and it never logs them.
package delivery

import (
	"context"
	"fmt"

	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/infrastructure/smtp"
	"github.com/go-verify-api/internal/infrastructure/sns"
)

// Dispatcher routes a payload to SMS or email transport by channel.
type Dispatcher struct {
	mailer smtp.Mailer
	sms    sns.SMSSender
}

func NewDispatcher(mailer smtp.Mailer, sms sns.SMSSender) *Dispatcher {
	return &Dispatcher{mailer: mailer, sms: sms}
}

func (d *Dispatcher) Send(ctx context.Context, ch domain.Channel, destination, payload string) error {
	switch ch {
	case domain.ChannelSMS:
		if d.sms == nil {
			return fmt.Errorf("sms transport not configured")
		}
		return d.sms.SendSMS(ctx, destination, payload)
	case domain.ChannelEmail:
		if d.mailer == nil {
			return fmt.Errorf("email transport not configured")
		}
		return d.mailer.SendEmail(destination, "Verification code", payload)
	}
	return fmt.Errorf("unknown delivery channel %q", ch)
}
