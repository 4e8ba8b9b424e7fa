package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLite keeps balances as fixed two-decimal text, so equality in the CAS predicate is exact.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema. SQLite allows a single
// writer, so the pool is capped at one connection.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}

	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id          INTEGER PRIMARY KEY,
			balance     TEXT NOT NULL CHECK (CAST(balance AS REAL) >= 0),
			updated_at  TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS withdrawals (
			idempotency_token  TEXT PRIMARY KEY,
			account_id         INTEGER NOT NULL REFERENCES accounts (id),
			amount             TEXT NOT NULL,
			balance_before     TEXT NOT NULL,
			balance_after      TEXT NOT NULL,
			created_at         TEXT NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLite) ReadBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, err
	}

	return decimal.NewFromString(raw)
}

func (s *SQLite) ConditionalUpdate(ctx context.Context, p ConditionalUpdateParams) (UpdateResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := p.Now.UTC().Format(time.RFC3339Nano)

	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = ?, updated_at = ?
		WHERE id = ? AND balance = ?
	`, fixed(p.New), now, p.AccountID, fixed(p.Expected))
	if err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if affected == 0 {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM accounts WHERE id = ?`, p.AccountID).Scan(&n); err != nil {
			return 0, fmt.Errorf("probe account: %w", err)
		}
		if n == 0 {
			return UpdateNotFound, nil
		}
		return UpdateConflict, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO withdrawals
			(idempotency_token, account_id, amount, balance_before, balance_after, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?)
	`, p.Token, p.AccountID, fixed(p.Amount), fixed(p.Expected), fixed(p.New), now); err != nil {
		return 0, fmt.Errorf("insert withdrawal journal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outcome unknown: %w", err)
	}

	return UpdateCommitted, nil
}

func (s *SQLite) FindDebit(ctx context.Context, token string) (Debit, error) {
	var (
		d                            Debit
		amount, before, after, rawTS string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT idempotency_token, account_id, amount, balance_before, balance_after, created_at
		FROM withdrawals
		WHERE idempotency_token = ?
	`, token).Scan(&d.Token, &d.AccountID, &amount, &before, &after, &rawTS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Debit{}, ErrDebitNotFound
		}
		return Debit{}, err
	}

	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, rawTS); err != nil {
		return Debit{}, err
	}

	return d.withAmounts(amount, before, after)
}

func (s *SQLite) CreateAccount(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, balance, updated_at) VALUES (?, ?, ?)
	`, accountID, fixed(balance), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "UNIQUE constraint failed"):
			return ErrAccountExists
		case strings.Contains(err.Error(), "CHECK constraint failed"):
			return ErrNegativeBalance
		}
		return err
	}
	return nil
}

func (s *SQLite) GetAccount(ctx context.Context, accountID int64) (Account, error) {
	var (
		a          Account
		raw, rawTS string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, balance, updated_at FROM accounts WHERE id = ?
	`, accountID).Scan(&a.ID, &raw, &rawTS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}

	if a.Balance, err = decimal.NewFromString(raw); err != nil {
		return Account{}, err
	}
	if a.UpdatedAt, err = time.Parse(time.RFC3339Nano, rawTS); err != nil {
		return Account{}, err
	}

	return a, nil
}
