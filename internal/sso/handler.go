package sso

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/ssobridge/internal/account"
	"github.com/dmitrymomot/ssobridge/internal/idp"
	"github.com/dmitrymomot/ssobridge/pkg/clientip"
	"github.com/dmitrymomot/ssobridge/pkg/cookie"
	"github.com/dmitrymomot/ssobridge/pkg/logger"
	"github.com/dmitrymomot/ssobridge/pkg/sessionstate"
)

const (
	// sidCookieName identifies the browser to the flow-state store. It is a
	// signed cookie independent of the host's own session cookie.
	sidCookieName = "ssobridge_sid"
	sidCookieTTL  = 3600

	bridgePath = "/sso/logout/bridge"
)

// Handler serves the login endpoint (both flow phases), the logout endpoint,
// and the logout bridge.
type Handler struct {
	cfg      Config
	provider idp.Provider
	resolver *Resolver
	notifier *AdminNotifier
	bridge   *LogoutBridge
	state    sessionstate.Store
	accounts account.Store
	auth     AuthContext
	flash    Flasher
	audit    AuditLog
	cookies  *cookie.Manager
	log      *slog.Logger
}

// HandlerDeps wires the handler's collaborators. All fields are required
// except Bridge, which may be nil when no provider logout endpoint is
// configured.
type HandlerDeps struct {
	Config   Config
	Provider idp.Provider
	Resolver *Resolver
	Notifier *AdminNotifier
	Bridge   *LogoutBridge
	State    sessionstate.Store
	Accounts account.Store
	Auth     AuthContext
	Flash    Flasher
	Audit    AuditLog
	Cookies  *cookie.Manager
	Log      *slog.Logger
}

func NewHandler(deps HandlerDeps) *Handler {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		cfg:      deps.Config,
		provider: deps.Provider,
		resolver: deps.Resolver,
		notifier: deps.Notifier,
		bridge:   deps.Bridge,
		state:    deps.State,
		accounts: deps.Accounts,
		auth:     deps.Auth,
		flash:    deps.Flash,
		audit:    deps.Audit,
		cookies:  deps.Cookies,
		log:      log,
	}
}

// Router returns the routes to mount under the SSO path prefix.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
	r.Get("/logout/bridge", h.handleLogoutBridge)
	return r
}

// handleLogin serves both phases of the login flow. A request without a code
// parameter starts the flow; a request with one is the provider callback.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Enabled {
		http.NotFound(w, r)
		return
	}

	if len(r.Cookies()) == 0 {
		h.fail(w, r, flowErrf(KindCookiesRejected, "request arrived without any cookies"))
		return
	}

	if err := h.cfg.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	sid := h.ensureSessionID(w, r)

	if r.URL.Query().Get("code") == "" {
		h.beginLogin(w, r, sid)
		return
	}
	h.completeLogin(w, r, sid)
}

// beginLogin records who initiated the flow, mints fresh state (and verifier
// when PKCE is on), and sends the browser to the provider.
func (h *Handler) beginLogin(w http.ResponseWriter, r *http.Request, sid string) {
	ctx := r.Context()

	initiator := anonymousUser
	if id, ok := h.auth.CurrentUserID(r); ok {
		initiator = id.String()
	}

	authURL, state, verifier, err := h.provider.AuthorizationURL()
	if err != nil {
		h.failToStart(w, r, fmt.Errorf("build authorization url: %w", err))
		return
	}

	if err := h.state.Put(ctx, sid, sessionKeyInitiator, initiator); err != nil {
		h.failToStart(w, r, fmt.Errorf("store initiating user: %w", err))
		return
	}
	if err := h.state.Put(ctx, sid, sessionKeyState, state); err != nil {
		h.failToStart(w, r, fmt.Errorf("store oauth2 state: %w", err))
		return
	}
	if verifier != "" {
		if err := h.state.Put(ctx, sid, sessionKeyPKCE, verifier); err != nil {
			h.failToStart(w, r, fmt.Errorf("store pkce verifier: %w", err))
			return
		}
	} else if err := h.state.Forget(ctx, sid, sessionKeyPKCE); err != nil {
		h.failToStart(w, r, fmt.Errorf("clear stale pkce verifier: %w", err))
		return
	}

	if h.cfg.Debug {
		h.log.Debug("redirecting to identity provider",
			logger.Component("sso"),
			logger.SessionID(sid),
			slog.String("initiator", initiator),
			slog.String("state", logger.Mask(state)),
			slog.Bool("pkce", verifier != ""),
		)
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// completeLogin runs the ordered callback pipeline. The per-attempt session
// keys are discarded on every exit path, success or not, so a callback URL
// is never replayable.
func (h *Handler) completeLogin(w http.ResponseWriter, r *http.Request, sid string) {
	ctx := r.Context()

	defer func() {
		if err := h.state.Forget(ctx, sid, sessionKeyState, sessionKeyPKCE, sessionKeyInitiator); err != nil {
			h.log.Error("failed to clear login flow state",
				logger.Component("sso"),
				logger.SessionID(sid),
				logger.Error(err),
			)
		}
	}()

	// An already-authenticated session has nothing to process: skip the
	// pipeline entirely and go home. The deferred cleanup still discards the
	// attempt, so a replayed callback URL gets the same silent redirect.
	if _, ok := h.auth.CurrentUserID(r); ok {
		http.Redirect(w, r, h.cfg.HomeURL, http.StatusFound)
		return
	}

	initiator, err := h.state.Get(ctx, sid, sessionKeyInitiator)
	if err != nil {
		h.fail(w, r, flowErrf(KindStateValidation, "callback without a pending login attempt"))
		return
	}

	// User-switch guard: the flow was started by an authenticated user, but
	// the callback arrived from an anonymous session. This runs before
	// anything touches the network.
	if initiator != anonymousUser {
		h.fail(w, r, flowErrf(KindSecurity,
			"login initiated by %q but callback presented anonymously", initiator))
		return
	}

	returnedState := r.URL.Query().Get("state")
	storedState, err := h.state.Get(ctx, sid, sessionKeyState)
	if err != nil || returnedState == "" ||
		subtle.ConstantTimeCompare([]byte(storedState), []byte(returnedState)) != 1 {
		h.fail(w, r, flowErrf(KindStateValidation, "state parameter mismatch"))
		return
	}

	if provErr := r.URL.Query().Get("error"); provErr != "" {
		h.fail(w, r, flowErrf(KindTokenExchange, "provider returned error %q", provErr))
		return
	}

	verifier, err := h.state.Get(ctx, sid, sessionKeyPKCE)
	if err != nil {
		verifier = ""
	}

	code := r.URL.Query().Get("code")
	if h.cfg.Debug {
		h.log.Debug("processing provider callback",
			logger.Component("sso"),
			logger.SessionID(sid),
			slog.String("code", logger.Mask(code)),
			slog.Bool("pkce", verifier != ""),
		)
	}

	accessToken, err := h.provider.Exchange(ctx, code, verifier)
	if err != nil {
		if h.cfg.Debug {
			// The most common cause is a redirect URI mismatch between this
			// service and the provider's client registration.
			h.log.Debug("token exchange failed",
				logger.Component("sso"),
				slog.String("code", logger.Mask(code)),
				slog.String("redirect_url", h.cfg.RedirectURL),
			)
		}
		h.fail(w, r, flowErr(KindTokenExchange, err))
		return
	}

	claims, err := h.provider.ResourceOwner(ctx, accessToken)
	if err != nil {
		h.fail(w, r, flowErr(KindUserData, err))
		return
	}
	if claims.ExternalID == "" || claims.Email == "" || claims.Username == "" {
		h.fail(w, r, flowErrf(KindUserData, "incomplete resource owner profile"))
		return
	}

	acc, created, err := h.resolver.Resolve(ctx, claims, h.cfg.AllowCreation)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if h.cfg.SyncEmail && !created && acc.Email != claims.Email {
		h.syncEmail(r, acc, claims.Email)
	}

	if err := h.auth.Login(w, r, acc.ID); err != nil {
		h.fail(w, r, &FlowError{
			Kind:    KindLogin,
			Message: "Unable to establish your session. Please try again.",
			Err:     err,
		})
		return
	}

	if err := h.accounts.SetPref(ctx, acc.ID, account.PrefLastActive,
		strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		h.log.Error("failed to record last activity",
			logger.Component("sso"),
			logger.AccountID(acc.ID),
			logger.Error(err),
		)
	}

	h.audit.Authentication(ctx, fmt.Sprintf("user %s signed in via single sign-on", acc.UserName))
	h.log.Info("login completed",
		logger.Component("sso"),
		logger.AccountID(acc.ID),
		logger.ExternalID(claims.ExternalID),
		slog.Bool("created", created),
	)

	h.flashAccountStatus(w, r, acc, claims.ExternalID)
	http.Redirect(w, r, h.cfg.HomeURL, http.StatusFound)
}

// flashAccountStatus warns a signed-in user whose account is still pending
// verification or approval, and makes sure administrators hear about pending
// approvals.
func (h *Handler) flashAccountStatus(w http.ResponseWriter, r *http.Request, acc *account.Account, externalID string) {
	ctx := r.Context()

	verified, err := h.accounts.Pref(ctx, acc.ID, account.PrefEmailVerified)
	if err == nil && verified != "1" {
		h.flash.Add(w, FlashWarning,
			"Your email address has not been verified yet. Some features are unavailable until it is.")
		return
	}

	approved, err := h.accounts.Pref(ctx, acc.ID, account.PrefApproved)
	if err == nil && approved != "1" {
		h.flash.Add(w, FlashWarning,
			"Your account is awaiting administrator approval. Some features are unavailable until it is approved.")
		if h.notifier != nil {
			h.notifier.NotifyPendingApproval(ctx, acc, NotifyMeta{
				ExternalID: externalID,
				ClientIP:   clientip.GetIP(r),
				UserAgent:  r.UserAgent(),
				When:       time.Now(),
			})
		}
	}
}

func (h *Handler) syncEmail(r *http.Request, acc *account.Account, newEmail string) {
	err := h.accounts.UpdateEmail(r.Context(), acc.ID, newEmail)
	switch {
	case errors.Is(err, account.ErrEmailTaken):
		h.log.Warn("email sync skipped, address already in use",
			logger.Component("sso"),
			logger.AccountID(acc.ID),
		)
	case err != nil:
		h.log.Error("email sync failed",
			logger.Component("sso"),
			logger.AccountID(acc.ID),
			logger.Error(err),
		)
	default:
		acc.Email = newEmail
		h.log.Info("email synchronized from identity provider",
			logger.Component("sso"),
			logger.AccountID(acc.ID),
		)
	}
}

// handleLogout tears down the local session and, when a provider logout
// endpoint is configured, hands the browser to the bridge.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if id, ok := h.auth.CurrentUserID(r); ok {
		h.audit.Authentication(ctx, fmt.Sprintf("user %s signed out", id))
	}
	if err := h.auth.Logout(w, r); err != nil {
		h.log.Error("failed to destroy host session",
			logger.Component("sso"),
			logger.Error(err),
		)
	}

	if h.bridge == nil || h.cfg.IdPLogoutEndpoint == "" {
		http.Redirect(w, r, h.cfg.HomeURL, http.StatusFound)
		return
	}

	bridgeURL, err := h.bridge.Begin(ctx, bridgePath)
	if err != nil {
		h.log.Error("failed to start logout bridge",
			logger.Component("sso"),
			logger.Error(err),
		)
		http.Redirect(w, r, h.cfg.HomeURL, http.StatusFound)
		return
	}
	http.Redirect(w, r, bridgeURL, http.StatusFound)
}

// handleLogoutBridge validates the single-use token and forwards the browser
// to the provider's logout URL. Invalid requests are silently sent home so
// the endpoint tells a probing client nothing.
func (h *Handler) handleLogoutBridge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cid := q.Get("sid")
	token := q.Get("token")

	if h.bridge == nil || cid == "" {
		http.Redirect(w, r, h.cfg.HomeURL, http.StatusFound)
		return
	}

	logoutURL, ok := h.bridge.Complete(r.Context(), cid, token, h.cfg.IdPHomeURL)
	if !ok {
		http.Redirect(w, r, h.cfg.HomeURL, http.StatusFound)
		return
	}
	http.Redirect(w, r, logoutURL, http.StatusFound)
}

// ensureSessionID reads the signed browser id cookie, minting one when
// absent or tampered with.
func (h *Handler) ensureSessionID(w http.ResponseWriter, r *http.Request) string {
	if sid, err := h.cookies.GetSigned(r, sidCookieName); err == nil && sid != "" {
		return sid
	}
	sid := uuid.NewString()
	h.cookies.SetSigned(w, sidCookieName, sid, sidCookieTTL)
	return sid
}

// failToStart maps any phase-one error to a single generic notice; the
// details only go to the log.
func (h *Handler) failToStart(w http.ResponseWriter, r *http.Request, err error) {
	h.fail(w, r, &FlowError{
		Kind:    KindUnexpected,
		Message: "Failed to start the login process. Please try again.",
		Err:     err,
	})
}

// fail terminates the flow: it logs at a severity matching the error kind,
// records security-sensitive kinds in the audit trail, flashes the
// non-leaking user message, and sends the browser home.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	fe := classify(err)

	attrs := []any{
		logger.Component("sso"),
		logger.Event(string(fe.Kind)),
		logger.Error(fe),
	}
	if fe.Kind.SecuritySensitive() {
		h.log.Warn("login flow rejected", attrs...)
	} else {
		h.log.Error("login flow failed", attrs...)
	}
	// Rejected cookies go to the audit trail alongside the security kinds:
	// both describe a browser that cannot complete a legitimate login.
	if fe.Kind.SecuritySensitive() || fe.Kind == KindCookiesRejected {
		h.audit.Error(r.Context(), fe.Error())
	}

	h.flash.Add(w, FlashDanger, fe.UserMessage())

	http.Redirect(w, r, h.cfg.HomeURL, http.StatusFound)
}
