package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, username, email, contact, address, hashed_password, registered_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.Contact,
		&i.Address,
		&i.HashedPassword,
		&i.RegisteredAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (username, email, contact, address, hashed_password)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

type CreateUserParams struct {
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	Contact        pgtype.Text `json:"contact"`
	Address        pgtype.Text `json:"address"`
	HashedPassword string      `json:"hashed_password"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.Username,
		arg.Email,
		arg.Contact,
		arg.Address,
		arg.HashedPassword,
	)
	return scanUser(row)
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const listUsers = `-- name: ListUsers :many
SELECT ` + userColumns + ` FROM users
WHERE $1::text = ''
   OR username ILIKE '%' || $1 || '%'
   OR email ILIKE '%' || $1 || '%'
   OR id::text = $1
ORDER BY registered_at DESC, id DESC`

// ListUsers returns customers, newest first. An empty search returns all.
func (q *Queries) ListUsers(ctx context.Context, search string) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateUser = `-- name: UpdateUser :one
UPDATE users
SET username = $2, email = $3, contact = $4, address = $5, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type UpdateUserParams struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Contact  pgtype.Text `json:"contact"`
	Address  pgtype.Text `json:"address"`
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, updateUser,
		arg.ID,
		arg.Username,
		arg.Email,
		arg.Contact,
		arg.Address,
	)
	return scanUser(row)
}

const updateUserPassword = `-- name: UpdateUserPassword :one
UPDATE users SET hashed_password = $2, updated_at = now()
WHERE id = $1
RETURNING id`

type UpdateUserPasswordParams struct {
	ID             int64  `json:"id"`
	HashedPassword string `json:"hashed_password"`
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) (int64, error) {
	row := q.db.QueryRow(ctx, updateUserPassword, arg.ID, arg.HashedPassword)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const countUsers = `-- name: CountUsers :one
SELECT count(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countUsers)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countUsersRegisteredBetween = `-- name: CountUsersRegisteredBetween :one
SELECT count(*) FROM users
WHERE registered_at >= $1 AND registered_at < $2`

type CountUsersRegisteredBetweenParams struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (q *Queries) CountUsersRegisteredBetween(ctx context.Context, arg CountUsersRegisteredBetweenParams) (int64, error) {
	row := q.db.QueryRow(ctx, countUsersRegisteredBetween, arg.StartDate, arg.EndDate)
	var count int64
	err := row.Scan(&count)
	return count, err
}
