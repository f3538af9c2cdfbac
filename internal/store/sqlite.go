package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/feed"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists collections in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	bus feed.Bus
}

// NewSQLiteStore opens (and migrates) the database at dbPath. Change events
// for every successful mutation go out on bus; pass nil to disable the feed.
func NewSQLiteStore(dbPath string, bus feed.Bus) (*SQLiteStore, error) {
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

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, bus: bus}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) publish(ctx context.Context, table string, op feed.Op, ownerID, recordID string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, feed.NewEvent(table, op, ownerID, recordID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"table", table, "op", string(op), "error", err)
	}
}

func parseStoredAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored amount %q: %w", s, err)
	}
	return d, nil
}

func parseStoredTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// scanJoinedCategory turns a LEFT JOIN result into a category, applying the
// Uncategorized sentinel when the join produced no row.
func scanJoinedCategory(id, name, color sql.NullString) core.Category {
	if !id.Valid || !name.Valid {
		return core.Uncategorized()
	}
	return core.Category{ID: id.String, Name: name.String, Color: color.String}
}

const expenseColumns = `e.id, e.owner_id, e.amount, e.description, e.date, COALESCE(e.category_id, ''), e.created_at, c.id, c.name, c.color`

func scanExpense(row interface{ Scan(...any) error }) (core.Expense, error) {
	var (
		e                      core.Expense
		amount, date, created  string
		catID, catName, catCol sql.NullString
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &amount, &e.Description, &date, &e.CategoryID, &created, &catID, &catName, &catCol); err != nil {
		return core.Expense{}, err
	}
	var err error
	if e.Amount, err = parseStoredAmount(amount); err != nil {
		return core.Expense{}, err
	}
	if e.Date, err = core.ParseDate(date); err != nil {
		return core.Expense{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	e.CreatedAt = parseStoredTime(created)
	e.Category = scanJoinedCategory(catID, catName, catCol)
	return e, nil
}

func (s *SQLiteStore) ListExpenses(ctx context.Context, ownerID string) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses e
		LEFT JOIN categories c ON c.id = e.category_id AND c.owner_id = e.owner_id
		WHERE e.owner_id = ?
		ORDER BY e.date DESC, e.created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) getExpense(ctx context.Context, ownerID, id string) (core.Expense, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses e
		LEFT JOIN categories c ON c.id = e.category_id AND c.owner_id = e.owner_id
		WHERE e.id = ? AND e.owner_id = ?`, id, ownerID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()

	var categoryID any
	if e.CategoryID != "" {
		categoryID = e.CategoryID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, owner_id, amount, description, date, category_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Amount.String(), e.Description, e.Date.String(),
		categoryID, e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	inserted, err := s.getExpense(ctx, e.OwnerID, e.ID)
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", inserted.ID,
		"description", inserted.Description,
		"amount", inserted.Amount.String())

	s.publish(ctx, feed.TableExpenses, feed.OpInsert, e.OwnerID, e.ID)
	return inserted, nil
}

func (s *SQLiteStore) UpdateExpense(ctx context.Context, ownerID, id string, e core.Expense) (core.Expense, error) {
	e.OwnerID = ownerID
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	var categoryID any
	if e.CategoryID != "" {
		categoryID = e.CategoryID
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses SET amount = ?, description = ?, date = ?, category_id = ?
		WHERE id = ? AND owner_id = ?`,
		e.Amount.String(), e.Description, e.Date.String(), categoryID, id, ownerID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Expense{}, ErrNotFound
	}

	updated, err := s.getExpense(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, err
	}

	s.publish(ctx, feed.TableExpenses, feed.OpUpdate, ownerID, id)
	return updated, nil
}

func (s *SQLiteStore) DeleteExpense(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.publish(ctx, feed.TableExpenses, feed.OpDelete, ownerID, id)
	return nil
}

const paymentColumns = `p.id, p.owner_id, p.title, p.amount, p.due_date, p.is_paid, p.is_recurring, COALESCE(p.category_id, ''), p.created_at, p.updated_at, c.id, c.name, c.color`

func scanPayment(row interface{ Scan(...any) error }) (core.Payment, error) {
	var (
		p                              core.Payment
		amount, due, created, updated  string
		catID, catName, catCol         sql.NullString
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &amount, &due, &p.IsPaid, &p.IsRecurring, &p.CategoryID, &created, &updated, &catID, &catName, &catCol); err != nil {
		return core.Payment{}, err
	}
	var err error
	if p.Amount, err = parseStoredAmount(amount); err != nil {
		return core.Payment{}, err
	}
	if p.DueDate, err = core.ParseDate(due); err != nil {
		return core.Payment{}, fmt.Errorf("parse stored due date %q: %w", due, err)
	}
	p.CreatedAt = parseStoredTime(created)
	p.UpdatedAt = parseStoredTime(updated)
	p.Category = scanJoinedCategory(catID, catName, catCol)
	return p, nil
}

func (s *SQLiteStore) ListPayments(ctx context.Context, ownerID string) ([]core.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments p
		LEFT JOIN categories c ON c.id = p.category_id AND c.owner_id = p.owner_id
		WHERE p.owner_id = ?
		ORDER BY p.due_date ASC, p.created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	out := make([]core.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) getPayment(ctx context.Context, ownerID, id string) (core.Payment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments p
		LEFT JOIN categories c ON c.id = p.category_id AND c.owner_id = p.owner_id
		WHERE p.id = ? AND p.owner_id = ?`, id, ownerID)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, ErrNotFound
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) InsertPayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	p.ID = uuid.NewString()
	now := time.Now().UTC()

	var categoryID any
	if p.CategoryID != "" {
		categoryID = p.CategoryID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, owner_id, title, amount, due_date, is_paid, is_recurring, category_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Title, p.Amount.String(), p.DueDate.String(),
		p.IsPaid, p.IsRecurring, categoryID,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return core.Payment{}, fmt.Errorf("insert payment: %w", err)
	}

	inserted, err := s.getPayment(ctx, p.OwnerID, p.ID)
	if err != nil {
		return core.Payment{}, err
	}

	s.publish(ctx, feed.TablePayments, feed.OpInsert, p.OwnerID, p.ID)
	return inserted, nil
}

func (s *SQLiteStore) UpdatePayment(ctx context.Context, ownerID, id string, p core.Payment) (core.Payment, error) {
	p.OwnerID = ownerID
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}

	var categoryID any
	if p.CategoryID != "" {
		categoryID = p.CategoryID
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET title = ?, amount = ?, due_date = ?, is_paid = ?, is_recurring = ?, category_id = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		p.Title, p.Amount.String(), p.DueDate.String(), p.IsPaid, p.IsRecurring,
		categoryID, time.Now().UTC().Format(time.RFC3339), id, ownerID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("update payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Payment{}, ErrNotFound
	}

	updated, err := s.getPayment(ctx, ownerID, id)
	if err != nil {
		return core.Payment{}, err
	}

	s.publish(ctx, feed.TablePayments, feed.OpUpdate, ownerID, id)
	return updated, nil
}

func (s *SQLiteStore) DeletePayment(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM payments WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.publish(ctx, feed.TablePayments, feed.OpDelete, ownerID, id)
	return nil
}

func (s *SQLiteStore) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, color FROM categories
		WHERE owner_id = ? ORDER BY name ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertCategory(ctx context.Context, ownerID string, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, owner_id, name, color) VALUES (?, ?, ?, ?)`,
		c.ID, ownerID, c.Name, c.Color)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}

	s.publish(ctx, feed.TableCategories, feed.OpInsert, ownerID, c.ID)
	return c, nil
}

func (s *SQLiteStore) UpdateCategory(ctx context.Context, ownerID, id string, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ? WHERE id = ? AND owner_id = ?`,
		c.Name, c.Color, id, ownerID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Category{}, ErrNotFound
	}
	c.ID = id

	s.publish(ctx, feed.TableCategories, feed.OpUpdate, ownerID, id)
	return c, nil
}

func (s *SQLiteStore) DeleteCategory(ctx context.Context, ownerID, id string) error {
	var refs int
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM expenses WHERE owner_id = ? AND category_id = ?)
		     + (SELECT COUNT(*) FROM payments WHERE owner_id = ? AND category_id = ?)`,
		ownerID, id, ownerID, id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("count category references: %w", err)
	}
	if refs > 0 {
		return ErrCategoryInUse
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.publish(ctx, feed.TableCategories, feed.OpDelete, ownerID, id)
	return nil
}

func (s *SQLiteStore) GetSettings(ctx context.Context, ownerID string) (core.Settings, error) {
	var (
		budget   string
		currency string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT monthly_budget, currency FROM settings WHERE owner_id = ?`, ownerID).
		Scan(&budget, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		// Lazy creation with defaults on first access.
		created := core.DefaultSettings(ownerID)
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO settings (owner_id, monthly_budget, currency) VALUES (?, ?, ?)`,
			ownerID, created.MonthlyBudget.String(), created.Currency)
		if err != nil {
			return core.Settings{}, fmt.Errorf("create default settings: %w", err)
		}
		s.publish(ctx, feed.TableSettings, feed.OpInsert, ownerID, ownerID)
		return created, nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}

	b, err := parseStoredAmount(budget)
	if err != nil {
		return core.Settings{}, err
	}
	return core.Settings{OwnerID: ownerID, MonthlyBudget: b, Currency: currency}, nil
}

func (s *SQLiteStore) PutSettings(ctx context.Context, settings core.Settings) (core.Settings, error) {
	if err := settings.Validate(); err != nil {
		return core.Settings{}, err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (owner_id, monthly_budget, currency) VALUES (?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET monthly_budget = excluded.monthly_budget, currency = excluded.currency`,
		settings.OwnerID, settings.MonthlyBudget.String(), settings.Currency)
	if err != nil {
		return core.Settings{}, fmt.Errorf("put settings: %w", err)
	}

	s.publish(ctx, feed.TableSettings, feed.OpUpdate, settings.OwnerID, settings.OwnerID)
	return settings, nil
}

var _ Store = (*SQLiteStore)(nil)
