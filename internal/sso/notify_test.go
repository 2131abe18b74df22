package sso

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ssobridge/internal/account"
	"github.com/dmitrymomot/ssobridge/pkg/email"
)

func seedAdmin(t *testing.T, store account.Store, addr string) *account.Account {
	t.Helper()
	acc := &account.Account{
		ID:       uuid.New(),
		UserName: "admin-" + addr,
		Email:    addr,
		IsAdmin:  true,
	}
	require.NoError(t, store.Create(context.Background(), acc))
	return acc
}

func pendingAccount(t *testing.T, store account.Store) *account.Account {
	t.Helper()
	acc := &account.Account{
		ID:       uuid.New(),
		UserName: "newbie",
		Email:    "newbie@example.com",
	}
	require.NoError(t, store.Create(context.Background(), acc))
	return acc
}

func TestNotifierDeliversOnceToEveryAdmin(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	admin1 := seedAdmin(t, store, "one@example.com")
	admin2 := seedAdmin(t, store, "two@example.com")
	acc := pendingAccount(t, store)

	messenger := new(MockMessenger)
	mailer := new(MockEmailSender)
	for _, admin := range []*account.Account{admin1, admin2} {
		messenger.On("DeliverMessage", mock.Anything, acc.ID, admin.ID, mock.Anything, mock.Anything).Return(nil).Once()
	}
	mailer.On("SendEmail", mock.Anything, mock.MatchedBy(func(p email.SendEmailParams) bool {
		return p.Subject != "" && p.BodyText != ""
	})).Return(nil).Twice()

	n := NewAdminNotifier(store, messenger, mailer, nil)
	meta := NotifyMeta{ExternalID: "wp-42", ClientIP: "203.0.113.7", When: time.Now()}

	reached := n.NotifyPendingApproval(context.Background(), acc, meta)
	assert.Equal(t, 2, reached)

	// A second call is a no-op: the flag was set on the first attempt.
	reached = n.NotifyPendingApproval(context.Background(), acc, meta)
	assert.Zero(t, reached)

	messenger.AssertExpectations(t)
	mailer.AssertExpectations(t)

	flag, err := store.Pref(context.Background(), acc.ID, account.PrefAdminNotified)
	require.NoError(t, err)
	assert.Equal(t, "1", flag)
}

func TestNotifierIsolatesPerRecipientFailures(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	seedAdmin(t, store, "one@example.com")
	seedAdmin(t, store, "two@example.com")
	acc := pendingAccount(t, store)

	messenger := new(MockMessenger)
	mailer := new(MockEmailSender)
	// Messages fail across the board, email succeeds for both admins: each
	// admin is still reached through one channel.
	messenger.On("DeliverMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("inbox down")).Twice()
	mailer.On("SendEmail", mock.Anything, mock.Anything).Return(nil).Twice()

	n := NewAdminNotifier(store, messenger, mailer, nil)
	reached := n.NotifyPendingApproval(context.Background(), acc, NotifyMeta{ExternalID: "wp-42"})
	assert.Equal(t, 2, reached)

	messenger.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestNotifierNoAdmins(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	acc := pendingAccount(t, store)

	n := NewAdminNotifier(store, new(MockMessenger), new(MockEmailSender), nil)
	assert.Zero(t, n.NotifyPendingApproval(context.Background(), acc, NotifyMeta{}))
}

func TestNotifierBodyCarriesContext(t *testing.T) {
	t.Parallel()

	acc := &account.Account{UserName: "newbie", Email: "newbie@example.com"}
	body := buildNotifyBody(acc, NotifyMeta{
		ExternalID: "wp-42",
		ClientIP:   "203.0.113.7",
		UserAgent:  "Mozilla/5.0",
		When:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	assert.Contains(t, body, "newbie")
	assert.Contains(t, body, "newbie@example.com")
	assert.Contains(t, body, "wp-42")
	assert.Contains(t, body, "203.0.113.7")
	assert.Contains(t, body, "Mozilla/5.0")
	assert.Contains(t, body, "2025-06-01T12:00:00Z")
}
