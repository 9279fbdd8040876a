package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// OrderDetail is an order joined with its customer's username and the
// service name.
type OrderDetail struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"user_id"`
	ServiceID   int64          `json:"service_id"`
	AdminID     pgtype.Int8    `json:"admin_id"`
	Items       string         `json:"items"`
	WeightKg    pgtype.Numeric `json:"weight_kg"`
	Amount      pgtype.Numeric `json:"amount"`
	OrderDate   time.Time      `json:"order_date"`
	Status      string         `json:"status"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Username    string         `json:"username"`
	ServiceName string         `json:"service_name"`
}

const orderDetailSelect = `SELECT o.id, o.user_id, o.service_id, o.admin_id, o.items, o.weight_kg,
       o.amount, o.order_date, o.status, o.updated_at, u.username, s.name
FROM o
JOIN users u ON u.id = o.user_id
JOIN services s ON s.id = o.service_id`

func scanOrderDetail(row interface{ Scan(...any) error }) (OrderDetail, error) {
	var i OrderDetail
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ServiceID,
		&i.AdminID,
		&i.Items,
		&i.WeightKg,
		&i.Amount,
		&i.OrderDate,
		&i.Status,
		&i.UpdatedAt,
		&i.Username,
		&i.ServiceName,
	)
	return i, err
}

func (q *Queries) queryOrderDetails(ctx context.Context, sql string, args ...interface{}) ([]OrderDetail, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderDetail{}
	for rows.Next() {
		i, err := scanOrderDetail(rows)
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

const createOrder = `-- name: CreateOrder :one
WITH o AS (
    INSERT INTO orders (user_id, service_id, admin_id, items, weight_kg, amount, status)
    VALUES ($1, $2, $3, $4, $5, $6, 'Pending')
    RETURNING *
)
` + orderDetailSelect

type CreateOrderParams struct {
	UserID    int64          `json:"user_id"`
	ServiceID int64          `json:"service_id"`
	AdminID   pgtype.Int8    `json:"admin_id"`
	Items     string         `json:"items"`
	WeightKg  pgtype.Numeric `json:"weight_kg"`
	Amount    pgtype.Numeric `json:"amount"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (OrderDetail, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.ServiceID,
		arg.AdminID,
		arg.Items,
		arg.WeightKg,
		arg.Amount,
	)
	return scanOrderDetail(row)
}

const getOrder = `-- name: GetOrder :one
WITH o AS (SELECT * FROM orders WHERE id = $1)
` + orderDetailSelect

func (q *Queries) GetOrder(ctx context.Context, id int64) (OrderDetail, error) {
	return scanOrderDetail(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
WITH o AS (SELECT * FROM orders WHERE id = $1 FOR UPDATE)
` + orderDetailSelect

// GetOrderForUpdate locks the order row for the rest of the transaction.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id int64) (OrderDetail, error) {
	return scanOrderDetail(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrders = `-- name: ListOrders :many
WITH o AS (
    SELECT * FROM orders
    WHERE ($1::bigint IS NULL OR user_id = $1)
      AND ($2::text IS NULL OR status = $2)
)
` + orderDetailSelect + `
ORDER BY o.order_date ASC, o.id ASC`

type ListOrdersParams struct {
	UserID pgtype.Int8 `json:"user_id"`
	Status pgtype.Text `json:"status"`
}

// ListOrders returns orders in FIFO order, optionally filtered by customer
// and status.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]OrderDetail, error) {
	return q.queryOrderDetails(ctx, listOrders, arg.UserID, arg.Status)
}

const listCompletedOrdersBetween = `-- name: ListCompletedOrdersBetween :many
WITH o AS (
    SELECT * FROM orders
    WHERE status = 'Completed'
      AND ($1::timestamptz IS NULL OR order_date >= $1)
      AND ($2::timestamptz IS NULL OR order_date < $2)
)
` + orderDetailSelect + `
ORDER BY o.order_date ASC, o.id ASC`

type ListCompletedOrdersBetweenParams struct {
	StartDate pgtype.Timestamptz `json:"start_date"`
	EndDate   pgtype.Timestamptz `json:"end_date"`
}

// ListCompletedOrdersBetween returns Completed orders whose order date falls in
// [StartDate, EndDate). A null bound is open.
func (q *Queries) ListCompletedOrdersBetween(ctx context.Context, arg ListCompletedOrdersBetweenParams) ([]OrderDetail, error) {
	return q.queryOrderDetails(ctx, listCompletedOrdersBetween, arg.StartDate, arg.EndDate)
}

const updateOrder = `-- name: UpdateOrder :one
WITH o AS (
    UPDATE orders
    SET service_id = $2, items = $3, weight_kg = $4, amount = $5, updated_at = now()
    WHERE id = $1 AND status NOT IN ('Completed', 'Cancelled')
    RETURNING *
)
` + orderDetailSelect

type UpdateOrderParams struct {
	ID        int64          `json:"id"`
	ServiceID int64          `json:"service_id"`
	Items     string         `json:"items"`
	WeightKg  pgtype.Numeric `json:"weight_kg"`
	Amount    pgtype.Numeric `json:"amount"`
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (OrderDetail, error) {
	row := q.db.QueryRow(ctx, updateOrder,
		arg.ID,
		arg.ServiceID,
		arg.Items,
		arg.WeightKg,
		arg.Amount,
	)
	return scanOrderDetail(row)
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
WITH o AS (
    UPDATE orders SET status = $2, updated_at = now()
    WHERE id = $1 AND status = $3
    RETURNING *
)
` + orderDetailSelect

type UpdateOrderStatusParams struct {
	ID       int64  `json:"id"`
	Status   string `json:"status"`
	Status_2 string `json:"status_2"`
}

// UpdateOrderStatus moves an order to Status only if it is still in Status_2.
// Returns pgx.ErrNoRows when the status changed concurrently.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (OrderDetail, error) {
	return scanOrderDetail(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.Status_2))
}

const deleteOrder = `-- name: DeleteOrder :one
DELETE FROM orders
WHERE id = $1 AND status NOT IN ('Completed', 'Cancelled')
RETURNING id`

func (q *Queries) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, deleteOrder, id)
	var deleted int64
	err := row.Scan(&deleted)
	return deleted, err
}
