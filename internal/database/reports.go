package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const createReport = `-- name: CreateReport :one
INSERT INTO reports (admin_id, order_id, amount)
VALUES ($1, $2, $3)
RETURNING id, admin_id, order_id, amount, created_at`

type CreateReportParams struct {
	AdminID int64          `json:"admin_id"`
	OrderID int64          `json:"order_id"`
	Amount  pgtype.Numeric `json:"amount"`
}

func (q *Queries) CreateReport(ctx context.Context, arg CreateReportParams) (Report, error) {
	row := q.db.QueryRow(ctx, createReport, arg.AdminID, arg.OrderID, arg.Amount)
	var i Report
	err := row.Scan(
		&i.ID,
		&i.AdminID,
		&i.OrderID,
		&i.Amount,
		&i.CreatedAt,
	)
	return i, err
}

const listReports = `-- name: ListReports :many
SELECT r.id, r.admin_id, r.order_id, r.amount, r.created_at,
       a.name AS admin_name, o.order_date, o.status, o.user_id, u.username, s.name AS service_name
FROM reports r
JOIN admins a ON a.id = r.admin_id
JOIN orders o ON o.id = r.order_id
JOIN users u ON u.id = o.user_id
JOIN services s ON s.id = o.service_id
WHERE ($1::bigint IS NULL OR r.admin_id = $1)
ORDER BY r.created_at DESC, r.id DESC`

type ListReportsRow struct {
	ID          int64          `json:"id"`
	AdminID     int64          `json:"admin_id"`
	OrderID     int64          `json:"order_id"`
	Amount      pgtype.Numeric `json:"amount"`
	CreatedAt   time.Time      `json:"created_at"`
	AdminName   string         `json:"admin_name"`
	OrderDate   time.Time      `json:"order_date"`
	Status      string         `json:"status"`
	UserID      int64          `json:"user_id"`
	Username    string         `json:"username"`
	ServiceName string         `json:"service_name"`
}

func (q *Queries) ListReports(ctx context.Context, adminID pgtype.Int8) ([]ListReportsRow, error) {
	rows, err := q.db.Query(ctx, listReports, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListReportsRow{}
	for rows.Next() {
		var i ListReportsRow
		if err := rows.Scan(
			&i.ID,
			&i.AdminID,
			&i.OrderID,
			&i.Amount,
			&i.CreatedAt,
			&i.AdminName,
			&i.OrderDate,
			&i.Status,
			&i.UserID,
			&i.Username,
			&i.ServiceName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
