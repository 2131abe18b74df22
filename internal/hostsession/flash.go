package hostsession

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/ssobridge/internal/sso"
	"github.com/dmitrymomot/ssobridge/pkg/cookie"
	"github.com/dmitrymomot/ssobridge/pkg/logger"
)

const flashKey = "notice"

// Notice is the payload a flash cookie carries to the next page view.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// CookieFlash stores one-shot notices in signed flash cookies.
type CookieFlash struct {
	cookies *cookie.Manager
	log     *slog.Logger
}

func NewCookieFlash(cookies *cookie.Manager, log *slog.Logger) *CookieFlash {
	if log == nil {
		log = slog.Default()
	}
	return &CookieFlash{cookies: cookies, log: log}
}

func (f *CookieFlash) Add(w http.ResponseWriter, level sso.FlashLevel, message string) {
	if err := f.cookies.SetFlash(w, flashKey, Notice{Level: string(level), Message: message}); err != nil {
		f.log.Error("failed to set flash notice",
			logger.Component("hostsession"),
			logger.Error(err),
		)
	}
}

// Pop returns the pending notice, if any, removing it.
func (f *CookieFlash) Pop(w http.ResponseWriter, r *http.Request) (Notice, bool) {
	var n Notice
	if err := f.cookies.PopFlash(w, r, flashKey, &n); err != nil {
		return Notice{}, false
	}
	return n, true
}

var _ sso.Flasher = (*CookieFlash)(nil)
