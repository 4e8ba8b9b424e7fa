package repo

import (
	"context"
	"embed"
	"time"

	"github.com/cicconee/cbledger/internal/platform/db/postgres"
	"github.com/cicconee/cbledger/internal/platform/logging"
	"github.com/cicconee/cbledger/internal/shared/ledger"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrations embed.FS

func Migrate(dsn string, log *logging.Logger) error {
	return postgres.Migrate(dsn, migrations, "migrations", "notifier_schema_migrations", log)
}

type Notification struct {
	IdempotencyToken string
	AccountID        int64
	Amount           decimal.Decimal
	Status           string
	EventType        string
	TraceID          string
	Partition        int
	Offset           int64
	ReceivedAt       time.Time
}

type Repo struct {
	db postgres.DBTX
}

func New(db postgres.DBTX) *Repo {
	return &Repo{db: db}
}

// Record stores n unless a notification with the same idempotency token was already stored.
// It reports whether this call inserted the row.
func (r *Repo) Record(ctx context.Context, n Notification) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO notifier.withdrawal_notifications
			(idempotency_token, account_id, amount, status, event_type, trace_id,
			 kafka_partition, kafka_offset, received_at)
		VALUES
			($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (idempotency_token) DO NOTHING
	`,
		n.IdempotencyToken,
		n.AccountID,
		n.Amount.StringFixed(ledger.AmountScale),
		n.Status,
		n.EventType,
		n.TraceID,
		n.Partition,
		n.Offset,
		n.ReceivedAt,
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}
