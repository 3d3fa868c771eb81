package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lblaseygg/minty/internal/domain/models"
	"github.com/lblaseygg/minty/internal/ledger"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists users, orders and positions in a single SQLite file.
// The connection pool is pinned to one connection so every transaction is a
// real single-writer transaction; _txlock=immediate makes BEGIN take the
// write lock up front instead of failing mid-transaction.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			username   TEXT    NOT NULL UNIQUE,
			balance    REAL    NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE TABLE IF NOT EXISTS orders (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users(id),
			symbol     TEXT    NOT NULL,
			side       TEXT    NOT NULL,
			qty        REAL    NOT NULL,
			price      REAL    NOT NULL,
			status     TEXT    NOT NULL,
			ts         INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_orders_user_ts ON orders(user_id, ts DESC);

		CREATE TABLE IF NOT EXISTS positions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users(id),
			symbol     TEXT    NOT NULL,
			quantity   REAL    NOT NULL,
			avg_price  REAL    NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			UNIQUE(user_id, symbol)
		);
	`)
	return err
}

// WithinTx implements ledger.Store.
func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&sqliteTx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) User(id int64) (*models.User, error) {
	var u models.User
	var created int64
	err := t.tx.QueryRow(`SELECT id, username, balance, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.Balance, &created)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(created, 0)
	return &u, nil
}

func (t *sqliteTx) Position(userID int64, symbol string) (*models.Position, bool, error) {
	var p models.Position
	var created, updated int64
	err := t.tx.QueryRow(
		`SELECT id, user_id, symbol, quantity, avg_price, created_at, updated_at
		 FROM positions WHERE user_id = ? AND symbol = ?`, userID, symbol).
		Scan(&p.ID, &p.UserID, &p.Symbol, &p.Quantity, &p.AvgPrice, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	p.CreatedAt = time.Unix(created, 0)
	p.UpdatedAt = time.Unix(updated, 0)
	return &p, true, nil
}

func (t *sqliteTx) SetBalance(userID int64, balance float64) error {
	_, err := t.tx.Exec(`UPDATE users SET balance = ? WHERE id = ?`, balance, userID)
	return err
}

func (t *sqliteTx) UpsertPosition(p *models.Position) error {
	_, err := t.tx.Exec(`
		INSERT INTO positions (user_id, symbol, quantity, avg_price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, symbol) DO UPDATE SET
			quantity   = excluded.quantity,
			avg_price  = excluded.avg_price,
			updated_at = strftime('%s', 'now')`,
		p.UserID, p.Symbol, p.Quantity, p.AvgPrice)
	return err
}

func (t *sqliteTx) DeletePosition(userID int64, symbol string) error {
	_, err := t.tx.Exec(`DELETE FROM positions WHERE user_id = ? AND symbol = ?`, userID, symbol)
	return err
}

func (t *sqliteTx) InsertOrder(o *models.Order) (int64, error) {
	res, err := t.tx.Exec(
		`INSERT INTO orders (user_id, symbol, side, qty, price, status, ts) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.UserID, o.Symbol, string(o.Side), o.Qty, o.Price, o.Status, o.Timestamp.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetOrCreateUser returns the user with the given name, seeding a fresh
// paper-trading account with the default starting balance on first sight.
func (s *SQLiteStore) GetOrCreateUser(ctx context.Context, username string) (*models.User, error) {
	u, err := s.userByName(ctx, username)
	if err == nil {
		return u, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (username, balance) VALUES (?, ?) ON CONFLICT(username) DO NOTHING`,
		username, models.DefaultStartingBalance)
	if err != nil {
		return nil, err
	}
	return s.userByName(ctx, username)
}

func (s *SQLiteStore) userByName(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, balance, created_at FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.Balance, &created)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(created, 0)
	return &u, nil
}

func (s *SQLiteStore) UserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, balance, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.Balance, &created)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(created, 0)
	return &u, nil
}

// Orders returns the user's order history, newest first.
func (s *SQLiteStore) Orders(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, symbol, side, qty, price, status, ts
		 FROM orders WHERE user_id = ? ORDER BY ts DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		var side string
		var ts int64
		if err := rows.Scan(&o.ID, &o.UserID, &o.Symbol, &side, &o.Qty, &o.Price, &o.Status, &ts); err != nil {
			return nil, err
		}
		o.Side = models.Side(side)
		o.Timestamp = time.Unix(ts, 0)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Positions returns every open position the user holds.
func (s *SQLiteStore) Positions(ctx context.Context, userID int64) ([]models.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, symbol, quantity, avg_price, created_at, updated_at
		 FROM positions WHERE user_id = ? ORDER BY symbol`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []models.Position
	for rows.Next() {
		var p models.Position
		var created, updated int64
		if err := rows.Scan(&p.ID, &p.UserID, &p.Symbol, &p.Quantity, &p.AvgPrice, &created, &updated); err != nil {
			return nil, err
		}
		p.CreatedAt = time.Unix(created, 0)
		p.UpdatedAt = time.Unix(updated, 0)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
