package database

import "context"

const staffColumns = `id, admin_id, name, email, role, created_at`

func scanStaff(row interface{ Scan(...any) error }) (Staff, error) {
	var i Staff
	err := row.Scan(
		&i.ID,
		&i.AdminID,
		&i.Name,
		&i.Email,
		&i.Role,
		&i.CreatedAt,
	)
	return i, err
}

const listStaff = `-- name: ListStaff :many
SELECT ` + staffColumns + ` FROM staff
WHERE $1::text = ''
   OR name ILIKE '%' || $1 || '%'
   OR email ILIKE '%' || $1 || '%'
   OR role ILIKE '%' || $1 || '%'
ORDER BY name, id`

func (q *Queries) ListStaff(ctx context.Context, search string) ([]Staff, error) {
	rows, err := q.db.Query(ctx, listStaff, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Staff{}
	for rows.Next() {
		i, err := scanStaff(rows)
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

const createStaff = `-- name: CreateStaff :one
INSERT INTO staff (admin_id, name, email, role)
VALUES ($1, $2, $3, $4)
RETURNING ` + staffColumns

type CreateStaffParams struct {
	AdminID int64  `json:"admin_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

func (q *Queries) CreateStaff(ctx context.Context, arg CreateStaffParams) (Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, createStaff, arg.AdminID, arg.Name, arg.Email, arg.Role))
}

const updateStaff = `-- name: UpdateStaff :one
UPDATE staff SET name = $2, email = $3, role = $4
WHERE id = $1
RETURNING ` + staffColumns

type UpdateStaffParams struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (q *Queries) UpdateStaff(ctx context.Context, arg UpdateStaffParams) (Staff, error) {
	return scanStaff(q.db.QueryRow(ctx, updateStaff, arg.ID, arg.Name, arg.Email, arg.Role))
}

const deleteStaff = `-- name: DeleteStaff :one
DELETE FROM staff WHERE id = $1
RETURNING id`

func (q *Queries) DeleteStaff(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, deleteStaff, id)
	var deleted int64
	err := row.Scan(&deleted)
	return deleted, err
}
