package store

// Session is an opaque login token row.
type Session struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
}

func (db *DB) CreateSession(s *Session) error {
	_, err := db.Exec(db.Q(`INSERT INTO sessions (token, username, issued_at, expires_at) VALUES (?, ?, ?, ?)`),
		s.Token, s.Username, s.IssuedAt, s.ExpiresAt)
	return err
}

func (db *DB) GetSession(token string) (*Session, error) {
	s := &Session{}
	err := db.QueryRow(db.Q(`SELECT token, username, issued_at, expires_at FROM sessions WHERE token = ?`), token).
		Scan(&s.Token, &s.Username, &s.IssuedAt, &s.ExpiresAt)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func (db *DB) DeleteSession(token string) error {
	_, err := db.Exec(db.Q(`DELETE FROM sessions WHERE token = ?`), token)
	return err
}

// DeleteExpiredSessions reaps every session past the cutoff timestamp.
func (db *DB) DeleteExpiredSessions(cutoff string) (int64, error) {
	res, err := db.Exec(db.Q(`DELETE FROM sessions WHERE expires_at < ?`), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
