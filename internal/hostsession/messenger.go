package hostsession

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/ssobridge/internal/sso"
)

// PGMessenger delivers internal messages into the host's inbox table. The
// sender id is not a foreign key: system messages may outlive the account
// that triggered them.
type PGMessenger struct {
	pool *pgxpool.Pool
}

func NewPGMessenger(pool *pgxpool.Pool) *PGMessenger {
	return &PGMessenger{pool: pool}
}

func (m *PGMessenger) DeliverMessage(ctx context.Context, from, to uuid.UUID, subject, body string) error {
	_, err := m.pool.Exec(ctx,
		`INSERT INTO host_messages (id, sender_id, recipient_id, subject, body)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), from, to, subject, body,
	)
	if err != nil {
		return fmt.Errorf("deliver message: %w", err)
	}
	return nil
}

var _ sso.Messenger = (*PGMessenger)(nil)
