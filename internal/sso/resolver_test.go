package sso

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/ssobridge/internal/account"
	"github.com/dmitrymomot/ssobridge/internal/idp"
)

func testClaims() idp.Claims {
	return idp.Claims{
		ExternalID: "wp-42",
		Email:      "alice@example.com",
		Username:   "alice",
	}
}

func seedAccount(t *testing.T, store account.Store, email, externalID string) *account.Account {
	t.Helper()
	acc := &account.Account{
		ID:       uuid.New(),
		UserName: "alice",
		Email:    email,
	}
	require.NoError(t, store.Create(context.Background(), acc))
	if externalID != "" {
		require.NoError(t, store.SetPref(context.Background(), acc.ID, account.PrefExternalID, externalID))
	}
	return acc
}

func TestResolverExistingLink(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	seeded := seedAccount(t, store, "alice@example.com", "wp-42")

	resolver := NewResolver(store, nil)
	acc, created, err := resolver.Resolve(context.Background(), testClaims(), false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, seeded.ID, acc.ID)
}

func TestResolverLinksByEmail(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	seeded := seedAccount(t, store, "alice@example.com", "")

	resolver := NewResolver(store, nil)
	acc, created, err := resolver.Resolve(context.Background(), testClaims(), false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, seeded.ID, acc.ID)

	linked, err := store.Pref(context.Background(), seeded.ID, account.PrefExternalID)
	require.NoError(t, err)
	assert.Equal(t, "wp-42", linked)
}

func TestResolverExternalIDWinsOverEmail(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	// Two candidates: one linked by external id under a different email, one
	// matching by email only. The link must win.
	byID := &account.Account{ID: uuid.New(), UserName: "old", Email: "old@example.com"}
	require.NoError(t, store.Create(context.Background(), byID))
	require.NoError(t, store.SetPref(context.Background(), byID.ID, account.PrefExternalID, "wp-42"))
	seedAccount(t, store, "alice@example.com", "")

	resolver := NewResolver(store, nil)
	acc, created, err := resolver.Resolve(context.Background(), testClaims(), false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, byID.ID, acc.ID)
}

func TestResolverCreatesAccount(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	resolver := NewResolver(store, nil)

	acc, created, err := resolver.Resolve(context.Background(), testClaims(), true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alice", acc.UserName)
	assert.Equal(t, "alice@example.com", acc.Email)

	ctx := context.Background()
	approved, err := store.Pref(ctx, acc.ID, account.PrefApproved)
	require.NoError(t, err)
	assert.Equal(t, "0", approved)

	verified, err := store.Pref(ctx, acc.ID, account.PrefEmailVerified)
	require.NoError(t, err)
	assert.Equal(t, "1", verified)

	linked, err := store.Pref(ctx, acc.ID, account.PrefExternalID)
	require.NoError(t, err)
	assert.Equal(t, "wp-42", linked)

	// The placeholder credential is a real bcrypt hash, not a guessable value.
	require.NotEmpty(t, acc.PasswordHash)
	err = bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(""))
	assert.Error(t, err)
}

func TestResolverCreationDisabled(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	resolver := NewResolver(store, nil)

	_, _, err := resolver.Resolve(context.Background(), testClaims(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCreationDisabled)

	fe := classify(err)
	assert.Equal(t, KindUserCreation, fe.Kind)
}

func TestResolverIdempotent(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	resolver := NewResolver(store, nil)
	ctx := context.Background()

	first, created, err := resolver.Resolve(ctx, testClaims(), true)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := resolver.Resolve(ctx, testClaims(), true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolverConcurrentSameIdentity(t *testing.T) {
	t.Parallel()

	store := account.NewMemoryStore()
	ctx := context.Background()
	claims := testClaims()

	const workers = 8
	results := make(chan uuid.UUID, workers)
	errs := make(chan error, workers)
	for range workers {
		go func() {
			acc, _, err := NewResolver(store, nil).Resolve(ctx, claims, true)
			if err != nil {
				errs <- err
				return
			}
			results <- acc.ID
		}()
	}

	ids := make(map[uuid.UUID]struct{})
	for range workers {
		select {
		case err := <-errs:
			t.Fatalf("resolve failed: %v", err)
		case id := <-results:
			ids[id] = struct{}{}
		}
	}
	// Every concurrent callback must settle on the same account.
	assert.Len(t, ids, 1)
}
