package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ssobridge/internal/account"
)

func newAccount(email string, admin bool) *account.Account {
	return &account.Account{
		ID:        uuid.New(),
		UserName:  "user-" + email,
		Email:     email,
		IsAdmin:   admin,
		CreatedAt: time.Now(),
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		t.Parallel()

		store := account.NewMemoryStore()
		acc := newAccount("alice@example.com", false)
		require.NoError(t, store.Create(ctx, acc))

		byID, err := store.ByID(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, acc.Email, byID.Email)

		byEmail, err := store.ByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, acc.ID, byEmail.ID)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		t.Parallel()

		store := account.NewMemoryStore()
		require.NoError(t, store.Create(ctx, newAccount("bob@example.com", false)))

		err := store.Create(ctx, newAccount("bob@example.com", false))
		assert.ErrorIs(t, err, account.ErrEmailTaken)
	})

	t.Run("external id lookup through prefs", func(t *testing.T) {
		t.Parallel()

		store := account.NewMemoryStore()
		acc := newAccount("carol@example.com", false)
		require.NoError(t, store.Create(ctx, acc))
		require.NoError(t, store.SetPref(ctx, acc.ID, account.PrefExternalID, "42"))

		found, err := store.ByExternalID(ctx, "42")
		require.NoError(t, err)
		assert.Equal(t, acc.ID, found.ID)

		_, err = store.ByExternalID(ctx, "43")
		assert.ErrorIs(t, err, account.ErrNotFound)
	})

	t.Run("external id uniqueness enforced", func(t *testing.T) {
		t.Parallel()

		store := account.NewMemoryStore()
		first := newAccount("dave@example.com", false)
		second := newAccount("erin@example.com", false)
		require.NoError(t, store.Create(ctx, first))
		require.NoError(t, store.Create(ctx, second))

		require.NoError(t, store.SetPref(ctx, first.ID, account.PrefExternalID, "77"))
		err := store.SetPref(ctx, second.ID, account.PrefExternalID, "77")
		assert.ErrorIs(t, err, account.ErrExternalIDTaken)

		// Re-linking the same account is fine.
		assert.NoError(t, store.SetPref(ctx, first.ID, account.PrefExternalID, "77"))
	})

	t.Run("unset pref reads as empty", func(t *testing.T) {
		t.Parallel()

		store := account.NewMemoryStore()
		acc := newAccount("frank@example.com", false)
		require.NoError(t, store.Create(ctx, acc))

		value, err := store.Pref(ctx, acc.ID, account.PrefApproved)
		require.NoError(t, err)
		assert.Empty(t, value)
	})

	t.Run("update email", func(t *testing.T) {
		t.Parallel()

		store := account.NewMemoryStore()
		acc := newAccount("grace@example.com", false)
		require.NoError(t, store.Create(ctx, acc))

		require.NoError(t, store.UpdateEmail(ctx, acc.ID, "grace@other.example.com"))

		updated, err := store.ByID(ctx, acc.ID)
		require.NoError(t, err)
		assert.Equal(t, "grace@other.example.com", updated.Email)

		assert.ErrorIs(t, store.UpdateEmail(ctx, uuid.New(), "x@example.com"), account.ErrNotFound)
	})

	t.Run("administrators", func(t *testing.T) {
		t.Parallel()

		store := account.NewMemoryStore()
		require.NoError(t, store.Create(ctx, newAccount("admin1@example.com", true)))
		require.NoError(t, store.Create(ctx, newAccount("admin2@example.com", true)))
		require.NoError(t, store.Create(ctx, newAccount("user@example.com", false)))

		admins, err := store.Administrators(ctx)
		require.NoError(t, err)
		assert.Len(t, admins, 2)
	})
}
