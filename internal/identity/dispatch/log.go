package dispatch

import (
	"context"
	"log/slog"

	"github.com/nexhire/nexhire/pkg/slogx"
)

// LogDispatcher writes deliveries to the structured log instead of sending
// them. It never logs the code or token themselves, only the destination.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) SendEmailOTP(ctx context.Context, email, code, displayName string) error {
	slogx.FromContext(ctx).InfoContext(ctx, "dispatched email otp",
		slog.String("to", email),
		slog.String("name", displayName),
	)
	return nil
}

func (d *LogDispatcher) SendSMSOTP(ctx context.Context, phone, code, displayName string) error {
	slogx.FromContext(ctx).InfoContext(ctx, "dispatched sms otp",
		slog.String("to", phone),
		slog.String("name", displayName),
	)
	return nil
}

func (d *LogDispatcher) SendResetLink(ctx context.Context, email, token string) error {
	slogx.FromContext(ctx).InfoContext(ctx, "dispatched reset link",
		slog.String("to", email),
	)
	return nil
}
