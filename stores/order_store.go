package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThalefangN/get-more-bw-87-sub000/db"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("order status does not allow this change")
	ErrDeliveryTaken     = errors.New("delivery already accepted by another courier")
)

const orderColumns = `id, store_id, customer_id, items, total_amount, address, status,
	courier_assigned, payment_method, accepted_by, "createdAt", "updatedAt"`

func scanOrder(scanner interface{ Scan(dest ...any) error }, o *models.Order) error {
	var items []byte
	if err := scanner.Scan(&o.ID, &o.StoreID, &o.CustomerID, &items, &o.TotalAmount, &o.Address,
		&o.Status, &o.CourierAssigned, &o.PaymentMethod, &o.AcceptedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return err
	}
	return json.Unmarshal(items, &o.Items)
}

func collectOrders(rows pgx.Rows) ([]models.Order, error) {
	defer rows.Close()
	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CreateOrder inserts a checkout order exactly once; the id is the client token.
func CreateOrder(ctx context.Context, o *models.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	err = db.Pool.QueryRow(ctx,
		`INSERT INTO orders (id, store_id, customer_id, items, total_amount, address, status, courier_assigned, payment_method)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING "createdAt", "updatedAt"`,
		o.ID, o.StoreID, o.CustomerID, items, o.TotalAmount, o.Address, o.Status, o.CourierAssigned, o.PaymentMethod,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	publishOrderChange(ctx, ChangeInsert, o)
	return nil
}

func GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := scanOrder(db.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id), &o)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func ListOrdersByCustomer(ctx context.Context, customerID string, limit int) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id=$1 ORDER BY "createdAt" DESC LIMIT $2`,
		customerID, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// ListOrdersByStore filters by status unless status is empty.
func ListOrdersByStore(ctx context.Context, storeID string, status models.OrderStatus) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE store_id=$1 AND ($2 = '' OR status=$2)
		 ORDER BY "createdAt" DESC`,
		storeID, string(status))
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

// ListCourierDeliveries returns open deliveries assigned to the courier and the
// ones it has accepted.
func ListCourierDeliveries(ctx context.Context, courierID string) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE (courier_assigned=$1 AND status IN ('approved','delivering')) OR accepted_by=$1
		 ORDER BY "updatedAt" DESC`,
		courierID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY "createdAt" DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func CountOrdersByStatus(ctx context.Context) (map[models.OrderStatus]int, error) {
	rows, err := db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[models.OrderStatus]int{}
	for rows.Next() {
		var status models.OrderStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// UpdateStoreOrderStatus moves a store's order from one status to the next.
// The update is conditional on the current status so concurrent edits cannot
// skip a step.
func UpdateStoreOrderStatus(ctx context.Context, storeID, orderID string, to models.OrderStatus) (*models.Order, error) {
	current, err := GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.StoreID != storeID {
		return nil, ErrOrderNotFound
	}
	if !current.Status.CanTransitionTo(to) {
		return nil, ErrInvalidTransition
	}

	var o models.Order
	err = scanOrder(db.Pool.QueryRow(ctx,
		`UPDATE orders SET status=$1, "updatedAt"=NOW()
		 WHERE id=$2 AND store_id=$3 AND status=$4
		 RETURNING `+orderColumns,
		to, orderID, storeID, current.Status), &o)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}
	publishOrderChange(ctx, ChangeUpdate, &o)
	return &o, nil
}

// AcceptDelivery is a compare-and-set: only an approved order nobody has
// accepted yet can be taken, so at most one courier ever wins.
func AcceptDelivery(ctx context.Context, orderID, courierID string) (*models.Order, error) {
	var o models.Order
	err := scanOrder(db.Pool.QueryRow(ctx,
		`UPDATE orders SET status='delivering', accepted_by=$2, "updatedAt"=NOW()
		 WHERE id=$1 AND status='approved' AND accepted_by IS NULL
		 RETURNING `+orderColumns,
		orderID, courierID), &o)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := GetOrder(ctx, orderID); errors.Is(getErr, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, ErrDeliveryTaken
	}
	if err != nil {
		return nil, err
	}
	publishOrderChange(ctx, ChangeUpdate, &o)
	return &o, nil
}

// CompleteDelivery can only be done by the courier that accepted the order.
func CompleteDelivery(ctx context.Context, orderID, courierID string) (*models.Order, error) {
	var o models.Order
	err := scanOrder(db.Pool.QueryRow(ctx,
		`UPDATE orders SET status='completed', "updatedAt"=NOW()
		 WHERE id=$1 AND status='delivering' AND accepted_by=$2
		 RETURNING `+orderColumns,
		orderID, courierID), &o)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}
	publishOrderChange(ctx, ChangeUpdate, &o)
	return &o, nil
}

func publishOrderChange(ctx context.Context, op ChangeOp, o *models.Order) {
	err := PublishChange(ctx, Change{
		Table: "orders",
		Op:    op,
		RowID: o.ID,
		Filter: map[string]string{
			"store_id":         o.StoreID,
			"customer_id":      o.CustomerID,
			"courier_assigned": o.CourierAssigned,
		},
	})
	if err != nil {
		utils.Logger.Warn("Failed to publish order change", zap.String("orderId", o.ID), zap.Error(err))
	}
}

// PgOrderWriter is the checkout OrderWriter backed by Postgres.
type PgOrderWriter struct{}

func (PgOrderWriter) CreateOrder(ctx context.Context, o *models.Order) error {
	return CreateOrder(ctx, o)
}
