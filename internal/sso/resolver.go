package sso

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/ssobridge/internal/account"
	"github.com/dmitrymomot/ssobridge/internal/idp"
	"github.com/dmitrymomot/ssobridge/pkg/logger"
)

// Resolver maps external identity claims to a local account. Lookup order:
// external-id link first, then email (which links the account), then creation
// when allowed. First match wins; the store's uniqueness constraint on the
// external-id link prevents duplicates under concurrent callbacks.
type Resolver struct {
	accounts account.Store
	log      *slog.Logger
	now      func() time.Time
}

func NewResolver(accounts account.Store, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		accounts: accounts,
		log:      log,
		now:      time.Now,
	}
}

// Resolve returns the local account for the claims and whether it was freshly
// created. When no account matches and creation is disallowed, it fails with
// a user_creation flow error carrying ErrCreationDisabled.
func (r *Resolver) Resolve(ctx context.Context, claims idp.Claims, allowCreation bool) (*account.Account, bool, error) {
	acc, err := r.accounts.ByExternalID(ctx, claims.ExternalID)
	if err == nil {
		r.log.Debug("found existing account by external id",
			logger.Component("resolver"),
			logger.AccountID(acc.ID),
			logger.ExternalID(claims.ExternalID),
		)
		return acc, false, nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup by external id: %w", err)
	}

	acc, err = r.accounts.ByEmail(ctx, claims.Email)
	if err == nil {
		return r.link(ctx, acc, claims.ExternalID)
	}
	if !errors.Is(err, account.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup by email: %w", err)
	}

	if !allowCreation {
		return nil, false, &FlowError{
			Kind:    KindUserCreation,
			Message: ErrCreationDisabled.Error(),
			Err:     ErrCreationDisabled,
		}
	}

	return r.create(ctx, claims)
}

// link migrates an existing local account into SSO-linked status by writing
// the external-id preference onto it.
func (r *Resolver) link(ctx context.Context, acc *account.Account, externalID string) (*account.Account, bool, error) {
	err := r.accounts.SetPref(ctx, acc.ID, account.PrefExternalID, externalID)
	if errors.Is(err, account.ErrExternalIDTaken) {
		// A concurrent callback linked this identity first; use its result.
		return r.lookupAfterRace(ctx, externalID)
	}
	if err != nil {
		return nil, false, fmt.Errorf("link account by email: %w", err)
	}

	r.log.Debug("linked existing account by email",
		logger.Component("resolver"),
		logger.AccountID(acc.ID),
		logger.ExternalID(externalID),
	)
	return acc, false, nil
}

func (r *Resolver) create(ctx context.Context, claims idp.Claims) (*account.Account, bool, error) {
	placeholder, err := placeholderCredential()
	if err != nil {
		return nil, false, fmt.Errorf("generate placeholder credential: %w", err)
	}

	acc := &account.Account{
		ID:           uuid.New(),
		UserName:     claims.Username,
		RealName:     claims.Username,
		Email:        claims.Email,
		PasswordHash: placeholder,
		CreatedAt:    r.now(),
	}

	if err := r.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			// A concurrent callback created the account; link it instead.
			existing, lookupErr := r.accounts.ByEmail(ctx, claims.Email)
			if lookupErr != nil {
				return nil, false, fmt.Errorf("lookup after concurrent create: %w", lookupErr)
			}
			return r.link(ctx, existing, claims.ExternalID)
		}
		return nil, false, fmt.Errorf("create account: %w", err)
	}

	if err := r.accounts.SetPref(ctx, acc.ID, account.PrefExternalID, claims.ExternalID); err != nil {
		if errors.Is(err, account.ErrExternalIDTaken) {
			// Lost the race to another callback carrying the same identity.
			// Roll back our record so the external id maps to one account.
			if delErr := r.accounts.Delete(ctx, acc.ID); delErr != nil {
				r.log.Error("failed to roll back account after external id race",
					logger.Component("resolver"),
					logger.AccountID(acc.ID),
					logger.Error(delErr),
				)
			}
			return r.lookupAfterRace(ctx, claims.ExternalID)
		}
		return nil, false, fmt.Errorf("store external id link: %w", err)
	}

	// New SSO accounts start unapproved; email verification is delegated to
	// the IdP, which already verified it.
	if err := r.accounts.SetPref(ctx, acc.ID, account.PrefApproved, "0"); err != nil {
		return nil, false, fmt.Errorf("set approval flag: %w", err)
	}
	if err := r.accounts.SetPref(ctx, acc.ID, account.PrefEmailVerified, "1"); err != nil {
		return nil, false, fmt.Errorf("set verified flag: %w", err)
	}

	r.log.Debug("created new account",
		logger.Component("resolver"),
		logger.AccountID(acc.ID),
		logger.ExternalID(claims.ExternalID),
	)
	return acc, true, nil
}

func (r *Resolver) lookupAfterRace(ctx context.Context, externalID string) (*account.Account, bool, error) {
	acc, err := r.accounts.ByExternalID(ctx, externalID)
	if err != nil {
		return nil, false, fmt.Errorf("lookup after external id race: %w", err)
	}
	return acc, false, nil
}

// placeholderCredential produces a hashed random credential. SSO accounts are
// never expected to authenticate with a local password; the hash only keeps
// the password column non-guessable.
func placeholderCredential() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(base64.StdEncoding.EncodeToString(raw)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
