// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// It is the embedded alternative to the Mongo backend: everything lives in
// a single file, which makes it handy for local development, demos, and
// integration tests. Users keep their Mongo-style 24-hex ids so data can be
// exported from one backend and loaded into the other unchanged.
//
// Importing go-sqlite3 registers the "sqlite3" driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aanand-mishra/alumni-match-api/internal/config"
	"github.com/aanand-mishra/alumni-match-api/internal/storage"
	"github.com/aanand-mishra/alumni-match-api/internal/types"

	"github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// userColumns is shared by every SELECT so scanUser's order never drifts.
const userColumns = `id, first_name, last_name, email, role, college_code,
	approval_status, resume, skills, interests`

// New opens the SQLite database at cfg.Path and creates the users table
// if it does not already exist.
func New(cfg config.SQLite) (*SQLite, error) {
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// CREATE TABLE IF NOT EXISTS is idempotent; it runs on every startup.
	//
	// resume is nullable: NULL means "no résumé", the same as a missing or
	// null profile.resume in Mongo. skills and interests hold JSON arrays.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			first_name      TEXT NOT NULL DEFAULT '',
			last_name       TEXT NOT NULL DEFAULT '',
			email           TEXT NOT NULL DEFAULT '',
			role            TEXT NOT NULL,
			college_code    TEXT NOT NULL DEFAULT '',
			approval_status TEXT NOT NULL DEFAULT 'pending',
			resume          TEXT,
			skills          TEXT NOT NULL DEFAULT '[]',
			interests       TEXT NOT NULL DEFAULT '[]'
		);
		CREATE INDEX IF NOT EXISTS idx_users_role ON users (role, approval_status);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Insert stores a user and returns its id. A user without an id gets a
// freshly generated ObjectID.
func (s *SQLite) Insert(ctx context.Context, user types.User) (string, error) {
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	id, err := normalizeID(user.ID)
	if err != nil {
		return "", fmt.Errorf("Insert: %w", err)
	}
	user.ID = id

	skills, err := json.Marshal(types.NonNil(user.Profile.Skills))
	if err != nil {
		return "", fmt.Errorf("Insert: marshal skills: %w", err)
	}
	interests, err := json.Marshal(types.NonNil(user.Profile.Interests))
	if err != nil {
		return "", fmt.Errorf("Insert: marshal interests: %w", err)
	}

	approval := user.ApprovalStatus
	if approval == "" {
		approval = "pending"
	}

	stmt, err := s.Db.PrepareContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("Insert: prepare: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		user.ID, user.FirstName, user.LastName, user.Email, user.Role,
		user.CollegeCode, approval, user.Profile.Resume, string(skills), string(interests),
	)
	if err != nil {
		return "", fmt.Errorf("Insert: exec: %w", err)
	}

	return user.ID, nil
}

// Seed inserts every user in the JSON array read from r and reports how
// many were added. Users whose id is already present are skipped.
func (s *SQLite) Seed(ctx context.Context, r io.Reader) (int, error) {
	var users []types.User
	if err := json.NewDecoder(r).Decode(&users); err != nil {
		return 0, fmt.Errorf("Seed: decode: %w", err)
	}

	added := 0
	for _, u := range users {
		_, err := s.Insert(ctx, u)
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("Seed: user %q: %w", u.ID, err)
		}
		added++
	}
	return added, nil
}

// SeedFile is Seed over the file at path.
func (s *SQLite) SeedFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("SeedFile: %w", err)
	}
	defer f.Close()

	return s.Seed(ctx, f)
}

func (s *SQLite) StudentsWithResume(ctx context.Context) ([]types.User, error) {
	users, err := s.query(ctx,
		"SELECT "+userColumns+" FROM users WHERE role = ? AND resume IS NOT NULL",
		types.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("StudentsWithResume: %w", err)
	}
	return users, nil
}

func (s *SQLite) StudentWithResume(ctx context.Context, id string) (types.User, error) {
	id, err := normalizeID(id)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.queryOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? AND role = ? AND resume IS NOT NULL LIMIT 1",
		id, types.RoleStudent)
	if err != nil {
		return types.User{}, fmt.Errorf("StudentWithResume: %w", err)
	}
	return user, nil
}

func (s *SQLite) Student(ctx context.Context, id string) (types.User, error) {
	id, err := normalizeID(id)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.queryOne(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? AND role = ? LIMIT 1",
		id, types.RoleStudent)
	if err != nil {
		return types.User{}, fmt.Errorf("Student: %w", err)
	}
	return user, nil
}

func (s *SQLite) ApprovedAlumni(ctx context.Context) ([]types.User, error) {
	users, err := s.query(ctx,
		"SELECT "+userColumns+" FROM users WHERE role = ? AND approval_status = ?",
		types.RoleAlumni, types.ApprovalApproved)
	if err != nil {
		return nil, fmt.Errorf("ApprovedAlumni: %w", err)
	}
	return users, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.Db.Close()
}

// normalizeID validates id and folds it to lower case, the form ObjectID.Hex
// produces, so lookups match regardless of the caller's hex case.
func normalizeID(id string) (string, error) {
	if err := storage.ValidateID(id); err != nil {
		return "", err
	}
	return strings.ToLower(id), nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var (
		user              types.User
		resume            sql.NullString
		skills, interests string
	)

	// Scan reads columns in the order listed in userColumns.
	if err := row.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Role,
		&user.CollegeCode, &user.ApprovalStatus, &resume, &skills, &interests,
	); err != nil {
		return types.User{}, err
	}

	if resume.Valid {
		user.Profile.Resume = &resume.String
	}
	if err := json.Unmarshal([]byte(skills), &user.Profile.Skills); err != nil {
		return types.User{}, fmt.Errorf("decode skills: %w", err)
	}
	if err := json.Unmarshal([]byte(interests), &user.Profile.Interests); err != nil {
		return types.User{}, fmt.Errorf("decode interests: %w", err)
	}
	user.Profile.Skills = types.NonNil(user.Profile.Skills)
	user.Profile.Interests = types.NonNil(user.Profile.Interests)

	return user, nil
}

func (s *SQLite) query(ctx context.Context, query string, args ...any) ([]types.User, error) {
	rows, err := s.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	// Returning [] instead of null in JSON is better API behaviour.
	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return users, nil
}

func (s *SQLite) queryOne(ctx context.Context, query string, args ...any) (types.User, error) {
	user, err := scanUser(s.Db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, storage.ErrNotFound
	}
	if err != nil {
		return types.User{}, fmt.Errorf("scan: %w", err)
	}
	return user, nil
}
