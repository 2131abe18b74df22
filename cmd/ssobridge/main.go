package main

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/ssobridge/internal/account"
	"github.com/dmitrymomot/ssobridge/internal/hostsession"
	"github.com/dmitrymomot/ssobridge/internal/idp"
	"github.com/dmitrymomot/ssobridge/internal/sso"
	"github.com/dmitrymomot/ssobridge/pkg/config"
	"github.com/dmitrymomot/ssobridge/pkg/cookie"
	"github.com/dmitrymomot/ssobridge/pkg/email"
	"github.com/dmitrymomot/ssobridge/pkg/httpserver"
	"github.com/dmitrymomot/ssobridge/pkg/logger"
	"github.com/dmitrymomot/ssobridge/pkg/pg"
	"github.com/dmitrymomot/ssobridge/pkg/redis"
	"github.com/dmitrymomot/ssobridge/pkg/sessionstate"
)

type appConfig struct {
	Env           string `env:"APP_ENV" envDefault:"dev"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	CookieSecret  string `env:"COOKIE_SECRET,required"`
	SecureCookies bool   `env:"SECURE_COOKIES" envDefault:"false"`
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("fatal", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var appCfg appConfig
	config.MustLoad(&appCfg)
	var ssoCfg sso.Config
	config.MustLoad(&ssoCfg)
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)
	var redisCfg redis.Config
	config.MustLoad(&redisCfg)
	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(appCfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if ssoCfg.Debug {
		level = slog.LevelDebug
	}
	log := logger.New(
		logger.WithLevel(level),
		logger.WithFormat(logger.FormatJSON),
		logger.WithMasking(),
		logger.WithAttr(slog.String("app", "ssobridge")),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, account.Migrations()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	rdb, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()

	cookies, err := cookie.New(appCfg.CookieSecret, appCfg.SecureCookies)
	if err != nil {
		return fmt.Errorf("init cookie manager: %w", err)
	}

	var mailer email.EmailSender
	if appCfg.Env == "production" {
		var emailCfg email.Config
		config.MustLoad(&emailCfg)
		mailer, err = email.NewPostmarkClient(emailCfg)
		if err != nil {
			return fmt.Errorf("init mailer: %w", err)
		}
	} else {
		mailer = email.NewDevSender(log)
	}

	accounts := account.NewPostgresStore(pool)
	auth := hostsession.NewCookieAuth(cookies)
	flash := hostsession.NewCookieFlash(cookies, log)
	audit := hostsession.NewSlogAudit(log)
	messenger := hostsession.NewPGMessenger(pool)

	provider := idp.NewWordPressProvider(idp.WordPressConfig{
		ClientID:         ssoCfg.ClientID,
		ClientSecret:     ssoCfg.ClientSecret,
		AuthorizeURL:     ssoCfg.AuthorizeURL,
		TokenURL:         ssoCfg.TokenURL,
		ResourceOwnerURL: ssoCfg.ResourceOwnerURL,
		RedirectURL:      ssoCfg.RedirectURL,
		PKCEMethod:       ssoCfg.PKCEMethod,
	})
	idpEnv := idp.NewHTTPEnvironment(ssoCfg.IdPLogoutEndpoint, ssoCfg.IdPHomeURL)

	loginState := sessionstate.NewRedisStore(rdb, "ssologin", 15*time.Minute)
	logoutState := sessionstate.NewRedisStore(rdb, "ssologout", 2*time.Minute)

	handler := sso.NewHandler(sso.HandlerDeps{
		Config:   ssoCfg,
		Provider: provider,
		Resolver: sso.NewResolver(accounts, log),
		Notifier: sso.NewAdminNotifier(accounts, messenger, mailer, log),
		Bridge:   sso.NewLogoutBridge(logoutState, idpEnv, ssoCfg.LogoutTokenTTL, log),
		State:    loginState,
		Accounts: accounts,
		Auth:     auth,
		Flash:    flash,
		Audit:    audit,
		Cookies:  cookies,
		Log:      log,
	})

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", httpserver.HealthCheckHandler())
	r.Mount("/sso", handler.Router())
	r.Get("/", homePage(ssoCfg, auth, flash, accounts))

	return httpserver.New(httpCfg, log).Run(ctx, r)
}

// homePage is a minimal host page. Unauthenticated visitors are sent straight
// into the login flow unless a notice is pending, so a failed attempt shows
// its message instead of bouncing back to the provider.
func homePage(cfg sso.Config, auth *hostsession.CookieAuth, flash *hostsession.CookieFlash, accounts account.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notice, hasNotice := flash.Pop(w, r)
		id, authed := auth.CurrentUserID(r)

		if !authed && cfg.Enabled && !hasNotice && r.URL.Query().Get("login") != "0" {
			http.Redirect(w, r, "/sso/login", http.StatusFound)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<!doctype html><title>ssobridge</title>")
		if hasNotice {
			fmt.Fprintf(w, `<p class=%q>%s</p>`, html.EscapeString(notice.Level), html.EscapeString(notice.Message))
		}
		if authed {
			name := id.String()
			if acc, err := accounts.ByID(r.Context(), id); err == nil {
				name = acc.UserName
			}
			fmt.Fprintf(w, `<p>Signed in as %s.</p><p><a href="/sso/logout">Sign out</a></p>`, html.EscapeString(name))
			return
		}
		fmt.Fprint(w, `<p>Not signed in.</p><p><a href="/sso/login">Sign in</a></p>`)
	}
}
