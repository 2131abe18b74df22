package hostsession

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/ssobridge/internal/sso"
	"github.com/dmitrymomot/ssobridge/pkg/logger"
)

// SlogAudit writes the authentication audit trail through the structured
// logger under a dedicated component so it can be filtered downstream.
type SlogAudit struct {
	log *slog.Logger
}

func NewSlogAudit(log *slog.Logger) *SlogAudit {
	if log == nil {
		log = slog.Default()
	}
	return &SlogAudit{log: log}
}

func (a *SlogAudit) Authentication(ctx context.Context, msg string) {
	a.log.InfoContext(ctx, msg, logger.Component("audit"), logger.Event("authentication"))
}

func (a *SlogAudit) Error(ctx context.Context, msg string) {
	a.log.WarnContext(ctx, msg, logger.Component("audit"), logger.Event("error"))
}

var _ sso.AuditLog = (*SlogAudit)(nil)
