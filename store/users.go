package store

import (
	"database/sql"
	"time"
)

// Operator roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleClerk   = "clerk"
)

// User is a shop operator account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	FullName     string     `json:"full_name"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

func (db *DB) GetUser(username string) (*User, error) {
	u := &User{}
	var active int
	var createdAt any
	var lastLogin sql.NullString
	err := db.QueryRow(db.Q(`
		SELECT id, username, password_hash, role, full_name, active, created_at, last_login
		FROM users WHERE username = ?`), username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName, &active, &createdAt, &lastLogin)
	if err != nil {
		return nil, notFound(err)
	}
	u.Active = active != 0
	u.CreatedAt = parseTime(createdAt)
	if lastLogin.Valid {
		t := parseTime(lastLogin.String)
		u.LastLogin = &t
	}
	return u, nil
}

func (db *DB) ListUsers() ([]User, error) {
	rows, err := db.Query(`
		SELECT id, username, password_hash, role, full_name, active, created_at, last_login
		FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		var active int
		var createdAt any
		var lastLogin sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName, &active, &createdAt, &lastLogin); err != nil {
			return nil, err
		}
		u.Active = active != 0
		u.CreatedAt = parseTime(createdAt)
		if lastLogin.Valid {
			t := parseTime(lastLogin.String)
			u.LastLogin = &t
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *DB) CreateUser(username, passwordHash, role, fullName string) (int64, error) {
	if role == "" {
		role = RoleClerk
	}
	if db.driver == "postgres" {
		var id int64
		err := db.QueryRow(db.Q(`
			INSERT INTO users (username, password_hash, role, full_name) VALUES (?, ?, ?, ?) RETURNING id`),
			username, passwordHash, role, fullName).Scan(&id)
		return id, err
	}
	res, err := db.Exec(`INSERT INTO users (username, password_hash, role, full_name) VALUES (?, ?, ?, ?)`,
		username, passwordHash, role, fullName)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (db *DB) SetUserActive(username string, active bool) error {
	n := 0
	if active {
		n = 1
	}
	return execAffecting(db, `UPDATE users SET active = ? WHERE username = ?`, n, username)
}

func (db *DB) UpdateUserPassword(username, passwordHash string) error {
	return execAffecting(db, `UPDATE users SET password_hash = ? WHERE username = ?`, passwordHash, username)
}

func (db *DB) TouchLastLogin(username, at string) error {
	_, err := db.Exec(db.Q(`UPDATE users SET last_login = ? WHERE username = ?`), at, username)
	return err
}
