package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNoSession = errors.New("no session found")

// UserSession is the authenticated identity attached to a request.
type UserSession struct {
	SessionId string
	UserId    uuid.UUID
	UserEmail string
	ExpiresAt time.Time
}

// Store persists users and their login sessions in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	user_email TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
`

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session store schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (store *Store) Close() error {
	return store.db.Close()
}

// UpsertUser finds the user with the given email, creating them on first
// login, and returns their id.
func (store *Store) UpsertUser(ctx context.Context, email, name string) (uuid.UUID, error) {
	var idStr string
	err := store.db.QueryRowContext(ctx,
		"SELECT id FROM users WHERE email = ?", email).Scan(&idStr)
	if err == nil {
		return uuid.Parse(idStr)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return uuid.UUID{}, err
	}

	id := uuid.New()
	_, err = store.db.ExecContext(ctx,
		"INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)",
		id.String(), email, name, time.Now().Unix())
	if err != nil {
		return uuid.UUID{}, err
	}
	return id, nil
}

const sessionLifetime = 24 * time.Hour

func (store *Store) CreateSession(ctx context.Context, userId uuid.UUID, email string) (*UserSession, error) {
	session := &UserSession{
		SessionId: uuid.NewString(),
		UserId:    userId,
		UserEmail: email,
		ExpiresAt: time.Now().Add(sessionLifetime),
	}

	_, err := store.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, user_email, expires_at) VALUES (?, ?, ?, ?)",
		session.SessionId, userId.String(), email, session.ExpiresAt.Unix())
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (store *Store) GetSession(ctx context.Context, sessionId string) (*UserSession, error) {
	var userIdStr string
	var email string
	var expiresAt int64
	err := store.db.QueryRowContext(ctx,
		"SELECT user_id, user_email, expires_at FROM sessions WHERE id = ?",
		sessionId).Scan(&userIdStr, &email, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	session := &UserSession{
		SessionId: sessionId,
		UserEmail: email,
		ExpiresAt: time.Unix(expiresAt, 0),
	}
	session.UserId, err = uuid.Parse(userIdStr)
	if err != nil {
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		_ = store.DeleteSession(ctx, sessionId)
		return nil, ErrNoSession
	}
	return session, nil
}

func (store *Store) DeleteSession(ctx context.Context, sessionId string) error {
	_, err := store.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionId)
	return err
}
