package sso

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/ssobridge/internal/idp"
	"github.com/dmitrymomot/ssobridge/pkg/logger"
	"github.com/dmitrymomot/ssobridge/pkg/sessionstate"
)

// Keys of the short-lived logout record. The record lives under a random
// correlation id, not the browser session id, because the host session is
// already destroyed when the bridge request arrives.
const (
	logoutKeyToken  = "logout_token"
	logoutKeyIssued = "logout_issued_at"
)

// LogoutBridge implements the two-phase logout handoff to the identity
// provider. Phase one tears down the local session and redirects the browser
// through the bridge with a single-use token; phase two validates the token
// and forwards the browser to the provider's logout URL.
type LogoutBridge struct {
	state    sessionstate.Store
	env      idp.Environment
	tokenTTL time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewLogoutBridge(state sessionstate.Store, env idp.Environment, tokenTTL time.Duration, log *slog.Logger) *LogoutBridge {
	if tokenTTL <= 0 {
		tokenTTL = 60 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &LogoutBridge{
		state:    state,
		env:      env,
		tokenTTL: tokenTTL,
		log:      log,
		now:      time.Now,
	}
}

// Begin mints the single-use token, stores it with its issue time under a
// fresh correlation id, and returns the bridge URL the browser should be
// redirected to.
func (b *LogoutBridge) Begin(ctx context.Context, bridgePath string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate logout token: %w", err)
	}
	token := hex.EncodeToString(raw)
	cid := uuid.NewString()

	if err := b.state.Put(ctx, cid, logoutKeyToken, token); err != nil {
		return "", fmt.Errorf("store logout token: %w", err)
	}
	issued := strconv.FormatInt(b.now().Unix(), 10)
	if err := b.state.Put(ctx, cid, logoutKeyIssued, issued); err != nil {
		return "", fmt.Errorf("store logout timestamp: %w", err)
	}

	q := url.Values{}
	q.Set("token", token)
	q.Set("sid", cid)
	return bridgePath + "?" + q.Encode(), nil
}

// Complete validates the presented token and resolves the provider logout
// URL for the browser's final redirect. The stored record is discarded before
// any comparison, so a token can only ever be checked once regardless of the
// outcome. A false second return means the request was rejected and the
// caller should silently send the browser home.
func (b *LogoutBridge) Complete(ctx context.Context, cid, token, returnTo string) (string, bool) {
	stored, err := b.state.Get(ctx, cid, logoutKeyToken)
	issuedRaw, issuedErr := b.state.Get(ctx, cid, logoutKeyIssued)

	// Single use: the record is gone after the first attempt, valid or not.
	if forgetErr := b.state.Forget(ctx, cid, logoutKeyToken, logoutKeyIssued); forgetErr != nil {
		b.log.Error("failed to discard logout token",
			logger.Component("logout"),
			logger.Error(forgetErr),
		)
	}

	if err != nil || issuedErr != nil {
		b.log.Warn("logout bridge called without a pending token",
			logger.Component("logout"),
			logger.SessionID(cid),
		)
		return "", false
	}

	if token == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		b.log.Warn("logout token mismatch",
			logger.Component("logout"),
			logger.SessionID(cid),
		)
		return "", false
	}

	issued, err := strconv.ParseInt(issuedRaw, 10, 64)
	if err != nil || b.now().Sub(time.Unix(issued, 0)) >= b.tokenTTL {
		b.log.Warn("logout token expired",
			logger.Component("logout"),
			logger.SessionID(cid),
		)
		return "", false
	}

	logoutURL, err := b.env.LogoutURL(ctx, returnTo)
	if err != nil {
		b.log.Error("failed to resolve provider logout url",
			logger.Component("logout"),
			logger.Error(err),
		)
		return "", false
	}
	return logoutURL, true
}
