package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"arogya/internal/auth"
)

// UserRepository implements auth.Repository.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) LoadAll() ([]auth.User, error) {
	rows, err := r.db.sql.Query(`SELECT username, password, health_score, created FROM users ORDER BY created, username`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []auth.User{}
	for rows.Next() {
		var u auth.User
		if err := rows.Scan(&u.Username, &u.Password, &u.HealthScore, &u.Created); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, auth.Normalize(u))
	}
	return users, rows.Err()
}

func (r *UserRepository) Get(username string) (auth.User, bool, error) {
	u, err := getUser(context.Background(), r.db.sql, r.db.rebind(`SELECT username, password, health_score, created FROM users WHERE username = ?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, false, nil
	}
	if err != nil {
		return auth.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return u, true, nil
}

func (r *UserRepository) Create(user auth.User) error {
	user = auth.Normalize(user)
	return r.db.withTx(context.Background(), func(tx *sql.Tx) error {
		res, err := tx.Exec(r.db.rebind(`INSERT INTO users (username, password, health_score, created) VALUES (?, ?, ?, ?) ON CONFLICT (username) DO NOTHING`),
			user.Username, user.Password, user.HealthScore, user.Created)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		if n == 0 {
			return auth.ErrUserExists
		}
		return nil
	})
}

func (r *UserRepository) Update(username string, fn func(*auth.User) error) error {
	ctx := context.Background()
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		q := r.db.rebind(`SELECT username, password, health_score, created FROM users WHERE username = ?` + r.db.forUpdate())
		u, err := getUser(ctx, tx, q, username)
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if err := fn(&u); err != nil {
			return err
		}
		u = auth.Normalize(u)
		_, err = tx.Exec(r.db.rebind(`UPDATE users SET password = ?, health_score = ?, created = ? WHERE username = ?`),
			u.Password, u.HealthScore, u.Created, username)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getUser(ctx context.Context, q queryer, query, username string) (auth.User, error) {
	var u auth.User
	err := q.QueryRowContext(ctx, query, username).Scan(&u.Username, &u.Password, &u.HealthScore, &u.Created)
	if err != nil {
		return auth.User{}, err
	}
	return auth.Normalize(u), nil
}
