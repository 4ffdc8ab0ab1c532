// Package storage implements the SQLite persistence layer. Amounts are
// stored as integer cents so SQL SUMs stay exact; the domain uses
// decimal values and the conversion happens at this boundary.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"casinoboys/internal/core"
	"casinoboys/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := applySchema(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// applySchema brings the database up to the latest embedded migration.
// It opens its own connection because the migrate driver takes locks the
// repository's pool should never see.
func applySchema(dbPath string) error {
	src, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open schema connection: %w", err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("wrap sqlite connection: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// centsOf converts a decimal amount to integer cents, rounding half away
// from zero past two decimal places.
func centsOf(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func decOf(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func parseDay(s string) time.Time {
	d, err := core.ParseDate(s)
	if err != nil {
		return time.Time{}
	}
	return d
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	dateKey := core.DateKey(t.TransactionDate)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, session_id, game, amount_cents, notes, transaction_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.SessionID, string(t.Game), centsOf(t.Amount), t.Notes,
		dateKey, fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	if err := rebuildDayTx(ctx, tx, t.UserID, dateKey); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"session_id", t.SessionID,
		"game", t.Game,
		"amount_cents", centsOf(t.Amount),
		"date", dateKey)
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, session_id, game, amount_cents, notes, transaction_date, created_at, updated_at
		FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID, dateKey string
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, transaction_date FROM transactions WHERE id = ?`, id).
		Scan(&userID, &dateKey)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := rebuildDayTx(ctx, tx, userID, dateKey); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID, "date", dateKey)
	return nil
}

const transactionColumns = `id, user_id, session_id, game, amount_cents, notes, transaction_date, created_at, updated_at`

func (r *SQLiteRepository) ListTransactionsByUser(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE user_id = ?
		ORDER BY transaction_date DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions by user: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *SQLiteRepository) ListTransactionsBySession(ctx context.Context, sessionID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE session_id = ?
		ORDER BY transaction_date DESC, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list transactions by session: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                            core.Transaction
		game, date, created, updated string
		cents                        int64
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.SessionID, &game, &cents, &t.Notes, &date, &created, &updated); err != nil {
		return core.Transaction{}, err
	}
	t.Game = core.GameType(game)
	t.Amount = decOf(cents)
	t.TransactionDate = parseDay(date)
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// rebuildDayTx recomputes one (user, day) rollup row from the raw
// transactions, inside the caller's SQL transaction so readers never see a
// stale balance after a write commits.
func rebuildDayTx(ctx context.Context, tx *sql.Tx, userID, dateKey string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM daily_balances WHERE user_id = ? AND transaction_date = ?`,
		userID, dateKey); err != nil {
		return fmt.Errorf("clear daily balance: %w", err)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO daily_balances (user_id, transaction_date, daily_total_cents, transaction_count)
		SELECT user_id, transaction_date, SUM(amount_cents), COUNT(*)
		FROM transactions
		WHERE user_id = ? AND transaction_date = ?
		GROUP BY user_id, transaction_date`,
		userID, dateKey)
	if err != nil {
		return fmt.Errorf("rebuild daily balance: %w", err)
	}
	return nil
}

// RebuildUserDay rebuilds one rollup row outside a write path; the worker
// calls it when an event arrives.
func (r *SQLiteRepository) RebuildUserDay(ctx context.Context, userID, dateKey string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := rebuildDayTx(ctx, tx, userID, dateKey); err != nil {
		return err
	}
	return tx.Commit()
}

// RebuildAllDailyBalances re-derives every rollup row from the raw
// transactions, fanning the per-user work out across a bounded group.
func (r *SQLiteRepository) RebuildAllDailyBalances(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM transactions`)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan user id: %w", err)
		}
		users = append(users, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate users: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, userID := range users {
		g.Go(func() error {
			return r.rebuildUserBalances(ctx, userID)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Daily balances rebuilt", "users", len(users))
	return nil
}

func (r *SQLiteRepository) rebuildUserBalances(ctx context.Context, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM daily_balances WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear user balances: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO daily_balances (user_id, transaction_date, daily_total_cents, transaction_count)
		SELECT user_id, transaction_date, SUM(amount_cents), COUNT(*)
		FROM transactions
		WHERE user_id = ?
		GROUP BY user_id, transaction_date`, userID); err != nil {
		return fmt.Errorf("rebuild user balances: %w", err)
	}
	return tx.Commit()
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, location, session_date, created_by, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Location, core.DateKey(s.Date), s.CreatedBy,
		boolToInt(s.IsActive), fmtTime(s.CreatedAt), fmtTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	slog.InfoContext(ctx, "Session created", "id", s.ID, "name", s.Name)
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (core.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, location, session_date, created_by, is_active, created_at, updated_at
		FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, store.ErrNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListSessions(ctx context.Context) ([]core.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, location, session_date, created_by, is_active, created_at, updated_at
		FROM sessions ORDER BY session_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []core.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func scanSession(row rowScanner) (core.Session, error) {
	var (
		s                      core.Session
		date, created, updated string
		active                 int
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Location, &date, &s.CreatedBy, &active, &created, &updated); err != nil {
		return core.Session{}, err
	}
	s.Date = parseDay(date)
	s.IsActive = active != 0
	s.CreatedAt = parseTime(created)
	s.UpdatedAt = parseTime(updated)
	return s, nil
}

func (r *SQLiteRepository) ListSessionSummaries(ctx context.Context) ([]core.SessionSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, name, location, session_date, is_active, player_count, total_transactions, total_amount_cents
		FROM session_summaries ORDER BY session_date DESC, session_id`)
	if err != nil {
		return nil, fmt.Errorf("list session summaries: %w", err)
	}
	defer rows.Close()

	var out []core.SessionSummary
	for rows.Next() {
		var (
			s      core.SessionSummary
			date   string
			active int
			cents  int64
		)
		if err := rows.Scan(&s.SessionID, &s.Name, &s.Location, &date, &active,
			&s.PlayerCount, &s.TotalTransactions, &cents); err != nil {
			return nil, fmt.Errorf("scan session summary: %w", err)
		}
		s.Date = parseDay(date)
		s.IsActive = active != 0
		s.TotalAmount = decOf(cents)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session summaries: %w", err)
	}

	for i := range out {
		players, err := r.ListSessionPlayers(ctx, out[i].SessionID)
		if err != nil {
			return nil, err
		}
		out[i].Players = players
	}
	return out, nil
}

func (r *SQLiteRepository) ListSessionPlayers(ctx context.Context, sessionID string) ([]core.SessionPlayer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.user_id, COALESCE(p.full_name, ''), COALESCE(p.email, ''), SUM(t.amount_cents)
		FROM transactions t
		LEFT JOIN profiles p ON p.id = t.user_id
		WHERE t.session_id = ?
		GROUP BY t.user_id
		ORDER BY t.user_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session players: %w", err)
	}
	defer rows.Close()

	var out []core.SessionPlayer
	for rows.Next() {
		var (
			p     core.SessionPlayer
			cents int64
		)
		if err := rows.Scan(&p.UserID, &p.FullName, &p.Email, &cents); err != nil {
			return nil, fmt.Errorf("scan session player: %w", err)
		}
		p.Total = decOf(cents)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session players: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, period_type, amount_cents, start_date, end_date, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, string(b.PeriodType), centsOf(b.Amount),
		core.DateKey(b.StartDate), core.DateKey(b.EndDate),
		boolToInt(b.IsActive), fmtTime(b.CreatedAt), fmtTime(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget created",
		"id", b.ID, "user_id", b.UserID, "period", b.PeriodType, "amount_cents", centsOf(b.Amount))
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListBudgetsByUser(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, period_type, amount_cents, start_date, end_date, is_active, created_at, updated_at
		FROM budgets WHERE user_id = ?
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var (
			b                                    core.Budget
			period, start, end, created, updated string
			cents                                int64
			active                               int
		)
		if err := rows.Scan(&b.ID, &b.UserID, &period, &cents, &start, &end, &active, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.PeriodType = core.PeriodType(period)
		b.Amount = decOf(cents)
		b.StartDate = parseDay(start)
		b.EndDate = parseDay(end)
		b.IsActive = active != 0
		b.CreatedAt = parseTime(created)
		b.UpdatedAt = parseTime(updated)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateProfile(ctx context.Context, p core.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, full_name, avatar_url, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Email, p.FullName, p.AvatarURL, p.PasswordHash,
		fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, id string) (core.Profile, error) {
	return r.getProfile(ctx, `WHERE id = ?`, id)
}

func (r *SQLiteRepository) GetProfileByEmail(ctx context.Context, email string) (core.Profile, error) {
	return r.getProfile(ctx, `WHERE email = ? COLLATE NOCASE`, email)
}

func (r *SQLiteRepository) getProfile(ctx context.Context, where string, arg any) (core.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, avatar_url, password_hash, created_at, updated_at
		FROM profiles `+where, arg)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, store.ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) UpdateProfile(ctx context.Context, p core.Profile) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET email = ?, full_name = ?, avatar_url = ?, password_hash = ?, updated_at = ?
		WHERE id = ?`,
		p.Email, p.FullName, p.AvatarURL, p.PasswordHash, fmtTime(time.Now()), p.ID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListProfiles(ctx context.Context) ([]core.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, full_name, avatar_url, password_hash, created_at, updated_at
		FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []core.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

func scanProfile(row rowScanner) (core.Profile, error) {
	var (
		p                core.Profile
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.PasswordHash, &created, &updated); err != nil {
		return core.Profile{}, err
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

func (r *SQLiteRepository) ListDailyBalances(ctx context.Context, userID string) ([]core.DailyBalance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, transaction_date, daily_total_cents, transaction_count
		FROM daily_balances WHERE user_id = ?
		ORDER BY transaction_date`, userID)
	if err != nil {
		return nil, fmt.Errorf("list daily balances: %w", err)
	}
	defer rows.Close()
	return collectBalances(rows)
}

func (r *SQLiteRepository) ListDailyBalancesInRange(ctx context.Context, userID, startKey, endKey string) ([]core.DailyBalance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, transaction_date, daily_total_cents, transaction_count
		FROM daily_balances
		WHERE user_id = ? AND transaction_date >= ? AND transaction_date <= ?
		ORDER BY transaction_date`, userID, startKey, endKey)
	if err != nil {
		return nil, fmt.Errorf("list daily balances in range: %w", err)
	}
	defer rows.Close()
	return collectBalances(rows)
}

func collectBalances(rows *sql.Rows) ([]core.DailyBalance, error) {
	var out []core.DailyBalance
	for rows.Next() {
		var (
			b     core.DailyBalance
			date  string
			cents int64
		)
		if err := rows.Scan(&b.UserID, &date, &cents, &b.TransactionCount); err != nil {
			return nil, fmt.Errorf("scan daily balance: %w", err)
		}
		b.Date = parseDay(date)
		b.DailyTotal = decOf(cents)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily balances: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
