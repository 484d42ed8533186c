package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"taskboard/models"
)

const taskColumns = "id, user_id, title, detail, priority, status, created_at, start_date, due_date"

// Store persists users and tasks in SQLite or Postgres.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

func NewStore(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d}
}

// DB exposes the handle for migrations and health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) q(query string) string {
	return rebind(s.dialect, query)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func dateValue(d *time.Time) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: models.FormatDate(d), Valid: true}
}

func ownerValue(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// CreateUser inserts u and sets its ID. A taken email yields models.ErrDuplicateEmail
// straight from the unique constraint.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx,
		s.q("INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?) RETURNING id"),
		u.Email, u.PasswordHash, toMillis(u.CreatedAt),
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	var created int64
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT id, email, password_hash, created_at FROM users WHERE email = ?"), email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if err == sql.ErrNoRows {
		return models.User{}, models.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("select user by email: %w", err)
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}

// CountUsersByEmail reports how many accounts use email.
func (s *Store) CountUsersByEmail(ctx context.Context, email string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM users WHERE email = ?"), email).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CreateTask inserts t and sets its ID.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	err := s.db.QueryRowContext(ctx,
		s.q(`INSERT INTO tasks (user_id, title, detail, priority, status, created_at, start_date, due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		ownerValue(t.OwnerID), t.Title, t.Detail, string(t.Priority), string(t.Status),
		toMillis(t.CreatedAt), dateValue(t.StartDate), dateValue(t.DueDate),
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, s.q("SELECT "+taskColumns+" FROM tasks WHERE id = ?"), id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return models.Task{}, models.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("select task %d: %w", id, err)
	}
	return t, nil
}

// ListTasks returns the tasks matching f, newest first.
func (s *Store) ListTasks(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks"
	var where []string
	var args []interface{}

	if f.OwnerID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *f.OwnerID)
	}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Priority != nil {
		where = append(where, "priority = ?")
		args = append(args, string(*f.Priority))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask loads task id inside a transaction, hands it to mutate and writes
// the editable fields back. If mutate fails nothing is written.
func (s *Store) UpdateTask(ctx context.Context, id int64, mutate func(*models.Task) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update task: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	t, err := s.lockTask(ctx, tx, id)
	if err != nil {
		return err
	}
	if err = mutate(&t); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		s.q(`UPDATE tasks SET title = ?, detail = ?, priority = ?, status = ?, start_date = ?, due_date = ?
		WHERE id = ?`),
		t.Title, t.Detail, string(t.Priority), string(t.Status), dateValue(t.StartDate), dateValue(t.DueDate), id,
	)
	if err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update task %d: %w", id, err)
	}
	return nil
}

// DeleteTask removes task id if check accepts it, within one transaction.
func (s *Store) DeleteTask(ctx context.Context, id int64, check func(models.Task) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete task: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	t, err := s.lockTask(ctx, tx, id)
	if err != nil {
		return err
	}
	if check != nil {
		if err = check(t); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx, s.q("DELETE FROM tasks WHERE id = ?"), id); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete task %d: %w", id, err)
	}
	return nil
}

func (s *Store) lockTask(ctx context.Context, tx *sql.Tx, id int64) (models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE id = ?"
	if s.dialect == Postgres {
		query += " FOR UPDATE"
	}
	t, err := scanTask(tx.QueryRowContext(ctx, s.q(query), id))
	if err == sql.ErrNoRows {
		return models.Task{}, models.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("select task %d: %w", id, err)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t          models.Task
		owner      sql.NullInt64
		priority   string
		status     string
		created    int64
		start, due sql.NullString
	)
	if err := row.Scan(&t.ID, &owner, &t.Title, &t.Detail, &priority, &status, &created, &start, &due); err != nil {
		return models.Task{}, err
	}
	if owner.Valid {
		id := owner.Int64
		t.OwnerID = &id
	}
	t.Priority = models.Priority(priority)
	t.Status = models.Status(status)
	t.CreatedAt = fromMillis(created)

	var err error
	if start.Valid {
		if t.StartDate, err = models.ParseDate("start_date", start.String); err != nil {
			return models.Task{}, fmt.Errorf("task %d: %w", t.ID, err)
		}
	}
	if due.Valid {
		if t.DueDate, err = models.ParseDate("due_date", due.String); err != nil {
			return models.Task{}, fmt.Errorf("task %d: %w", t.ID, err)
		}
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}
