package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	minSecretLength = 32
	flashPrefix     = "__flash_"
)

var (
	ErrNoSecret         = errors.New("cookie: signing secret is required")
	ErrSecretTooShort   = errors.New("cookie: signing secret too short")
	ErrCookieNotFound   = errors.New("cookie: not found")
	ErrInvalidFormat    = errors.New("cookie: invalid signed value format")
	ErrInvalidSignature = errors.New("cookie: invalid signature")
)

// Manager signs and verifies cookie values with HMAC-SHA256.
type Manager struct {
	secret string
	secure bool
}

// New creates a cookie manager. The secret must be at least 32 characters.
// Set secure for TLS-only deployments.
func New(secret string, secure bool) (*Manager, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("%w: have %d chars, need at least %d", ErrSecretTooShort, len(secret), minSecretLength)
	}
	return &Manager{secret: secret, secure: secure}, nil
}

// SetSigned writes a signed cookie.
func (m *Manager) SetSigned(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    m.sign(value),
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetSigned reads and verifies a signed cookie.
func (m *Manager) GetSigned(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}
	return m.verify(cookie.Value)
}

// Delete expires a cookie immediately.
func (m *Manager) Delete(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetFlash stores a one-shot value under key.
func (m *Manager) SetFlash(w http.ResponseWriter, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal flash: %w", err)
	}
	m.SetSigned(w, flashPrefix+key, string(data), 0)
	return nil
}

// PopFlash reads a flash value into dest and deletes the cookie. Flash
// cookies are removed on read so a notice is shown at most once.
func (m *Manager) PopFlash(w http.ResponseWriter, r *http.Request, key string, dest any) error {
	name := flashPrefix + key

	data, err := m.GetSigned(r, name)
	if err != nil {
		return err
	}

	m.Delete(w, name)

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("unmarshal flash: %w", err)
	}
	return nil
}

func (m *Manager) sign(value string) string {
	mac := hmac.New(sha256.New, []byte(m.secret))
	mac.Write([]byte(value))
	signature := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	return base64.URLEncoding.EncodeToString([]byte(value)) + "|" + signature
}

func (m *Manager) verify(signed string) (string, error) {
	parts := strings.SplitN(signed, "|", 2)
	if len(parts) != 2 {
		return "", ErrInvalidFormat
	}

	value, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidFormat
	}

	mac := hmac.New(sha256.New, []byte(m.secret))
	mac.Write(value)
	expected := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(expected)) != 1 {
		return "", ErrInvalidSignature
	}
	return string(value), nil
}
