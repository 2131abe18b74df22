package sso

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/ssobridge/internal/idp"
	"github.com/dmitrymomot/ssobridge/pkg/email"
)

// MockProvider is a mock implementation of idp.Provider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) AuthorizationURL() (string, string, string, error) {
	args := m.Called()
	return args.String(0), args.String(1), args.String(2), args.Error(3)
}

func (m *MockProvider) Exchange(ctx context.Context, code, verifier string) (string, error) {
	args := m.Called(ctx, code, verifier)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) ResourceOwner(ctx context.Context, accessToken string) (idp.Claims, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(idp.Claims), args.Error(1)
}

// MockAuthContext is a mock implementation of AuthContext.
type MockAuthContext struct {
	mock.Mock
}

func (m *MockAuthContext) CurrentUserID(r *http.Request) (uuid.UUID, bool) {
	args := m.Called(r)
	return args.Get(0).(uuid.UUID), args.Bool(1)
}

func (m *MockAuthContext) Login(w http.ResponseWriter, r *http.Request, accountID uuid.UUID) error {
	args := m.Called(w, r, accountID)
	return args.Error(0)
}

func (m *MockAuthContext) Logout(w http.ResponseWriter, r *http.Request) error {
	args := m.Called(w, r)
	return args.Error(0)
}

// MockFlasher is a mock implementation of Flasher.
type MockFlasher struct {
	mock.Mock
}

func (m *MockFlasher) Add(w http.ResponseWriter, level FlashLevel, message string) {
	m.Called(w, level, message)
}

// MockMessenger is a mock implementation of Messenger.
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) DeliverMessage(ctx context.Context, from, to uuid.UUID, subject, body string) error {
	args := m.Called(ctx, from, to, subject, body)
	return args.Error(0)
}

// MockEmailSender is a mock implementation of email.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// MockAuditLog is a mock implementation of AuditLog.
type MockAuditLog struct {
	mock.Mock
}

func (m *MockAuditLog) Authentication(ctx context.Context, msg string) {
	m.Called(ctx, msg)
}

func (m *MockAuditLog) Error(ctx context.Context, msg string) {
	m.Called(ctx, msg)
}

// MockEnvironment is a mock implementation of idp.Environment.
type MockEnvironment struct {
	mock.Mock
}

func (m *MockEnvironment) LogoutURL(ctx context.Context, redirectTo string) (string, error) {
	args := m.Called(ctx, redirectTo)
	return args.String(0), args.Error(1)
}

func (m *MockEnvironment) HomeURL() string {
	args := m.Called()
	return args.String(0)
}
