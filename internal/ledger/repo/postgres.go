package repo

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/cicconee/cbledger/internal/platform/db/postgres"
	"github.com/cicconee/cbledger/internal/platform/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsTable = "ledger_schema_migrations"

// MigratePostgres brings the ledger schema up to date.
func MigratePostgres(dsn string, log *logging.Logger) error {
	return postgres.Migrate(dsn, migrations, "migrations", migrationsTable, log)
}

type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (r *Postgres) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Postgres) ReadBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRow(ctx, `
		SELECT balance::text
		FROM ledger.accounts
		WHERE id = $1
	`, accountID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, err
	}

	return decimal.NewFromString(raw)
}

// ConditionalUpdate swaps the balance only if it still equals p.Expected. Under READ COMMITTED a
// concurrent writer holding the row lock makes this statement wait and then re-check the predicate
// against the committed row, so a stale expectation yields zero rows instead of a lost update.
func (r *Postgres) ConditionalUpdate(ctx context.Context, p ConditionalUpdateParams) (UpdateResult, error) {
	var result UpdateResult

	err := postgres.WithTx(ctx, r.db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, "ledger/conditional_update",
		func(ctx context.Context, tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, `
				UPDATE ledger.accounts
				SET balance = $3::numeric,
				    updated_at = $4
				WHERE id = $1 AND balance = $2::numeric
			`, p.AccountID, fixed(p.Expected), fixed(p.New), p.Now)
			if err != nil {
				return fmt.Errorf("update balance: %w", err)
			}

			if tag.RowsAffected() == 0 {
				var exists bool
				if err := tx.QueryRow(ctx, `
					SELECT EXISTS (SELECT 1 FROM ledger.accounts WHERE id = $1)
				`, p.AccountID).Scan(&exists); err != nil {
					return fmt.Errorf("probe account: %w", err)
				}

				result = UpdateConflict
				if !exists {
					result = UpdateNotFound
				}
				return nil
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO ledger.withdrawals
					(idempotency_token, account_id, amount, balance_before, balance_after, created_at)
				VALUES
					($1, $2, $3::numeric, $4::numeric, $5::numeric, $6)
			`, p.Token, p.AccountID, fixed(p.Amount), fixed(p.Expected), fixed(p.New), p.Now)
			if err != nil {
				return fmt.Errorf("insert withdrawal journal: %w", err)
			}

			result = UpdateCommitted
			return nil
		})
	if err != nil {
		if postgres.IsCheckViolation(err) {
			return 0, ErrNegativeBalance
		}
		return 0, err
	}

	return result, nil
}

func (r *Postgres) FindDebit(ctx context.Context, token string) (Debit, error) {
	var (
		d                     Debit
		amount, before, after      string
	)
	err := r.db.QueryRow(ctx, `
		SELECT idempotency_token, account_id, amount::text, balance_before::text, balance_after::text, created_at
		FROM ledger.withdrawals
		WHERE idempotency_token = $1
	`, token).Scan(&d.Token, &d.AccountID, &amount, &before, &after, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Debit{}, ErrDebitNotFound
		}
		return Debit{}, err
	}

	return d.withAmounts(amount, before, after)
}

func (r *Postgres) CreateAccount(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO ledger.accounts (id, balance, created_at, updated_at)
		VALUES ($1, $2::numeric, $3, $3)
	`, accountID, fixed(balance), now)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err):
			return ErrAccountExists
		case postgres.IsCheckViolation(err):
			return ErrNegativeBalance
		}
		return err
	}
	return nil
}

func (r *Postgres) GetAccount(ctx context.Context, accountID int64) (Account, error) {
	var (
		a   Account
		raw string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, balance::text, updated_at
		FROM ledger.accounts
		WHERE id = $1
	`, accountID).Scan(&a.ID, &raw, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}

	a.Balance, err = decimal.NewFromString(raw)
	return a, err
}
