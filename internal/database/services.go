package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const serviceColumns = `id, name, description, price, status, created_at, updated_at`

func scanService(row interface{ Scan(...any) error }) (Service, error) {
	var i Service
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listServices = `-- name: ListServices :many
SELECT ` + serviceColumns + ` FROM services
ORDER BY name, id`

func (q *Queries) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := q.db.Query(ctx, listServices)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Service{}
	for rows.Next() {
		i, err := scanService(rows)
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

const getService = `-- name: GetService :one
SELECT ` + serviceColumns + ` FROM services WHERE id = $1`

func (q *Queries) GetService(ctx context.Context, id int64) (Service, error) {
	return scanService(q.db.QueryRow(ctx, getService, id))
}

const createService = `-- name: CreateService :one
INSERT INTO services (name, description, price, status)
VALUES ($1, $2, $3, $4)
RETURNING ` + serviceColumns

type CreateServiceParams struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Status      string         `json:"status"`
}

func (q *Queries) CreateService(ctx context.Context, arg CreateServiceParams) (Service, error) {
	return scanService(q.db.QueryRow(ctx, createService, arg.Name, arg.Description, arg.Price, arg.Status))
}

const updateService = `-- name: UpdateService :one
UPDATE services
SET name = $2, description = $3, price = $4, status = $5, updated_at = now()
WHERE id = $1
RETURNING ` + serviceColumns

type UpdateServiceParams struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Status      string         `json:"status"`
}

func (q *Queries) UpdateService(ctx context.Context, arg UpdateServiceParams) (Service, error) {
	return scanService(q.db.QueryRow(ctx, updateService, arg.ID, arg.Name, arg.Description, arg.Price, arg.Status))
}

const deleteService = `-- name: DeleteService :one
DELETE FROM services WHERE id = $1
RETURNING id`

func (q *Queries) DeleteService(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, deleteService, id)
	var deleted int64
	err := row.Scan(&deleted)
	return deleted, err
}
