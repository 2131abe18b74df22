package sso

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/ssobridge/internal/account"
	"github.com/dmitrymomot/ssobridge/pkg/email"
	"github.com/dmitrymomot/ssobridge/pkg/logger"
)

// NotifyMeta carries the request context an administrator wants to see when
// reviewing a pending account.
type NotifyMeta struct {
	ExternalID string
	ClientIP   string
	UserAgent  string
	When       time.Time
}

// AdminNotifier tells every administrator about a newly created, unapproved
// account so someone reviews it. Notification is at-most-once per account,
// guarded by a preference flag set before any delivery is attempted.
type AdminNotifier struct {
	accounts  account.Store
	messenger Messenger
	mailer    email.EmailSender
	log       *slog.Logger
}

func NewAdminNotifier(accounts account.Store, messenger Messenger, mailer email.EmailSender, log *slog.Logger) *AdminNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &AdminNotifier{
		accounts:  accounts,
		messenger: messenger,
		mailer:    mailer,
		log:       log,
	}
}

// NotifyPendingApproval sends each administrator an in-app message and an
// email about the pending account. Per-recipient failures are logged and
// counted but never abort the remaining deliveries, and they never surface
// to the login flow. Returns how many administrators received at least one
// channel successfully.
func (n *AdminNotifier) NotifyPendingApproval(ctx context.Context, acc *account.Account, meta NotifyMeta) int {
	already, err := n.accounts.Pref(ctx, acc.ID, account.PrefAdminNotified)
	if err != nil {
		n.log.Error("failed to read notification flag",
			logger.Component("notify"),
			logger.AccountID(acc.ID),
			logger.Error(err),
		)
		return 0
	}
	if already == "1" {
		return 0
	}

	// Set the flag first so a retried callback cannot double-notify even if
	// some deliveries below fail.
	if err := n.accounts.SetPref(ctx, acc.ID, account.PrefAdminNotified, "1"); err != nil {
		n.log.Error("failed to set notification flag",
			logger.Component("notify"),
			logger.AccountID(acc.ID),
			logger.Error(err),
		)
		return 0
	}

	admins, err := n.accounts.Administrators(ctx)
	if err != nil {
		n.log.Error("failed to list administrators",
			logger.Component("notify"),
			logger.Error(err),
		)
		return 0
	}
	if len(admins) == 0 {
		n.log.Warn("no administrators to notify about pending account",
			logger.Component("notify"),
			logger.AccountID(acc.ID),
		)
		return 0
	}

	subject := "New account pending approval"
	body := buildNotifyBody(acc, meta)

	var reached, messageFailures, emailFailures int
	for _, admin := range admins {
		ok := false

		if n.messenger != nil {
			if err := n.messenger.DeliverMessage(ctx, acc.ID, admin.ID, subject, body); err != nil {
				messageFailures++
				n.log.Error("in-app notification failed",
					logger.Component("notify"),
					logger.AccountID(admin.ID),
					logger.Error(err),
				)
			} else {
				ok = true
			}
		}

		if n.mailer != nil && admin.Email != "" {
			err := n.mailer.SendEmail(ctx, email.SendEmailParams{
				SendTo:   admin.Email,
				Subject:  subject,
				BodyText: body,
				Tag:      "sso-pending-approval",
			})
			if err != nil {
				emailFailures++
				n.log.Error("email notification failed",
					logger.Component("notify"),
					logger.AccountID(admin.ID),
					logger.Error(err),
				)
			} else {
				ok = true
			}
		}

		if ok {
			reached++
		}
	}

	n.log.Info("administrator notifications sent",
		logger.Component("notify"),
		logger.AccountID(acc.ID),
		slog.Int("admins", len(admins)),
		slog.Int("reached", reached),
		slog.Int("message_failures", messageFailures),
		slog.Int("email_failures", emailFailures),
	)
	return reached
}

func buildNotifyBody(acc *account.Account, meta NotifyMeta) string {
	when := meta.When
	if when.IsZero() {
		when = time.Now()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "A new account signed in through single sign-on and is awaiting approval.\n\n")
	fmt.Fprintf(&b, "Username:    %s\n", acc.UserName)
	fmt.Fprintf(&b, "Email:       %s\n", acc.Email)
	fmt.Fprintf(&b, "External id: %s\n", meta.ExternalID)
	fmt.Fprintf(&b, "When:        %s\n", when.Format(time.RFC3339))
	if meta.ClientIP != "" {
		fmt.Fprintf(&b, "Client IP:   %s\n", meta.ClientIP)
	}
	if meta.UserAgent != "" {
		fmt.Fprintf(&b, "User agent:  %s\n", meta.UserAgent)
	}
	return b.String()
}
