// Package auth issues and validates opaque session tokens against the local
// sessions table, and verifies operator passwords.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"sync"
	"time"

	"cremeria/config"
	"cremeria/store"
)

var (
	ErrBadCredentials  = errors.New("invalid username or password")
	ErrUserInactive    = errors.New("user account is disabled")
	ErrTooManyAttempts = errors.New("too many failed login attempts")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionInvalid  = errors.New("invalid session token")
)

// Manager owns session issuance, validation and reaping.
type Manager struct {
	db          *store.DB
	salt        string
	timeout     time.Duration
	maxAttempts int
	now         func() time.Time

	mu       sync.Mutex
	attempts map[string]int

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewManager(db *store.DB, cfg *config.AuthConfig, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = 12 * time.Hour
	}
	maxAttempts := cfg.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Manager{
		db:          db,
		salt:        cfg.PasswordSalt,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		now:         now,
		attempts:    make(map[string]int),
		stopChan:    make(chan struct{}),
	}
}

// Login verifies credentials and issues a fresh 256-bit token valid for the
// configured session timeout (12 h by default).
func (m *Manager) Login(username, password string) (string, *store.User, error) {
	m.mu.Lock()
	locked := m.attempts[username] >= m.maxAttempts
	m.mu.Unlock()
	if locked {
		return "", nil, ErrTooManyAttempts
	}

	user, err := m.db.GetUser(username)
	if err != nil {
		m.recordFailure(username)
		return "", nil, ErrBadCredentials
	}
	if !CheckPassword(password, user.PasswordHash, m.salt) {
		m.recordFailure(username)
		return "", nil, ErrBadCredentials
	}
	if !user.Active {
		return "", nil, ErrUserInactive
	}

	m.mu.Lock()
	delete(m.attempts, username)
	m.mu.Unlock()

	token, err := newToken()
	if err != nil {
		return "", nil, err
	}
	now := m.now()
	sess := &store.Session{
		Token:     token,
		Username:  username,
		IssuedAt:  now.Format(store.TimeLayout),
		ExpiresAt: now.Add(m.timeout).Format(store.TimeLayout),
	}
	if err := m.db.CreateSession(sess); err != nil {
		return "", nil, err
	}
	m.db.TouchLastLogin(username, sess.IssuedAt)
	return token, user, nil
}

// Validate resolves a token to its user. Expired tokens are reaped lazily.
func (m *Manager) Validate(token string) (*store.User, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}
	sess, err := m.db.GetSession(token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if sess.ExpiresAt <= m.now().Format(store.TimeLayout) {
		m.db.DeleteSession(token)
		return nil, ErrSessionExpired
	}
	user, err := m.db.GetUser(sess.Username)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	if !user.Active {
		return nil, ErrUserInactive
	}
	return user, nil
}

// Logout deletes the token row.
func (m *Manager) Logout(token string) error {
	return m.db.DeleteSession(token)
}

// ReapExpired removes every expired session eagerly.
func (m *Manager) ReapExpired() (int64, error) {
	return m.db.DeleteExpiredSessions(m.now().Format(store.TimeLayout))
}

func (m *Manager) recordFailure(username string) {
	m.mu.Lock()
	m.attempts[username]++
	m.mu.Unlock()
}

// ResetAttempts clears the failure counter, for admin unlock.
func (m *Manager) ResetAttempts(username string) {
	m.mu.Lock()
	delete(m.attempts, username)
	m.mu.Unlock()
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// StartSweep runs the periodic expired-session reaper.
func (m *Manager) StartSweep(interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopChan:
				return
			case <-ticker.C:
				if n, err := m.ReapExpired(); err != nil {
					log.Printf("session sweep: %v", err)
				} else if n > 0 {
					log.Printf("session sweep: reaped %d expired sessions", n)
				}
			}
		}
	}()
}

// StopSweep halts the reaper.
func (m *Manager) StopSweep() {
	select {
	case <-m.stopChan:
	default:
		close(m.stopChan)
	}
	m.wg.Wait()
}
