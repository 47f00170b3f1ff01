package web

import (
	"context"
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

const sessionKeyFlash = "flash"

// Flash is a one-shot message shown on the next page load.
type Flash struct {
	Kind    string // "success" or "error"
	Message string
}

func init() {
	gob.Register(Flash{})
}

// SessionManager wraps scs.SessionManager with the flash helpers the desk
// pages use.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager stores sessions in the circulation database.
func NewSessionManager(sqlDB *sql.DB, lifetime time.Duration, secure bool) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	sm.Cookie.Name = "librarydesk_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secure
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

func (sm *SessionManager) AddFlash(ctx context.Context, kind, message string) {
	flashes, _ := sm.Get(ctx, sessionKeyFlash).([]Flash)
	sm.Put(ctx, sessionKeyFlash, append(flashes, Flash{Kind: kind, Message: message}))
}

// PopFlashes returns and clears the pending messages.
func (sm *SessionManager) PopFlashes(ctx context.Context) []Flash {
	flashes, _ := sm.Pop(ctx, sessionKeyFlash).([]Flash)
	return flashes
}
