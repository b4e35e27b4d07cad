package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThalefangN/get-more-bw-87-sub000/db"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var (
	ErrCourierNotFound      = errors.New("courier not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

const courierColumns = `id, user_id, name, phone, vehicle, is_active, "notificationToken", "createdAt"`

func scanCourier(scanner interface{ Scan(dest ...any) error }, c *models.Courier) error {
	return scanner.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Vehicle, &c.IsActive, &c.NotificationToken, &c.CreatedAt)
}

func ListActiveCouriers(ctx context.Context) ([]models.Courier, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+courierColumns+` FROM couriers WHERE is_active=TRUE ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	couriers := []models.Courier{}
	for rows.Next() {
		var c models.Courier
		if err := scanCourier(rows, &c); err != nil {
			return nil, err
		}
		couriers = append(couriers, c)
	}
	return couriers, rows.Err()
}

func GetCourier(ctx context.Context, id string) (*models.Courier, error) {
	var c models.Courier
	err := scanCourier(db.Pool.QueryRow(ctx, `SELECT `+courierColumns+` FROM couriers WHERE id=$1`, id), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCourierNotFound
	}
	return &c, err
}

func GetCourierByUser(ctx context.Context, userID string) (*models.Courier, error) {
	var c models.Courier
	err := scanCourier(db.Pool.QueryRow(ctx, `SELECT `+courierColumns+` FROM couriers WHERE user_id=$1`, userID), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCourierNotFound
	}
	return &c, err
}

func SetCourierActive(ctx context.Context, id string, active bool) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE couriers SET is_active=$1 WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCourierNotFound
	}
	PublishChange(ctx, Change{Table: "couriers", Op: ChangeUpdate, RowID: id})
	return nil
}

func CountActiveCouriers(ctx context.Context) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM couriers WHERE is_active=TRUE`).Scan(&n)
	return n, err
}

// ══════════════════════════════════════════
// COURIER INBOX
// ══════════════════════════════════════════

func CreateNotification(ctx context.Context, n *models.Notification) error {
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO notifications (courier_id, order_id, title, message)
		 VALUES ($1, $2, $3, $4) RETURNING id, is_read, "createdAt"`,
		n.CourierID, n.OrderID, n.Title, n.Message,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	PublishChange(ctx, Change{
		Table:  "notifications",
		Op:     ChangeInsert,
		RowID:  n.ID,
		Filter: map[string]string{"courier_id": n.CourierID},
	})
	return nil
}

func ListNotifications(ctx context.Context, courierID string) ([]models.Notification, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, courier_id, order_id, title, message, is_read, "createdAt"
		 FROM notifications WHERE courier_id=$1 ORDER BY "createdAt" DESC LIMIT 100`, courierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.CourierID, &n.OrderID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func MarkNotificationRead(ctx context.Context, courierID, id string) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE notifications SET is_read=TRUE WHERE id=$1 AND courier_id=$2`, id, courierID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// PgCourierNotifier writes the inbox row for a newly placed order and pushes it
// to the courier's device when a token is registered. Push failures are logged
// only; the inbox row is the notification.
type PgCourierNotifier struct{}

func (PgCourierNotifier) NotifyCourier(ctx context.Context, courierID string, o *models.Order) error {
	n := &models.Notification{
		CourierID: courierID,
		OrderID:   o.ID,
		Title:     "New delivery",
		Message:   fmt.Sprintf("New order of P%.2f to deliver to %s", o.TotalAmount, o.Address),
	}
	if err := CreateNotification(ctx, n); err != nil {
		return err
	}

	courier, err := GetCourier(ctx, courierID)
	if err != nil || courier.NotificationToken == nil {
		return nil
	}
	token := *courier.NotificationToken
	utils.SafeGo(func() {
		err := utils.SendPushNotification(context.Background(), token, n.Title, n.Message, utils.FCMData{
			"type":    "new_delivery",
			"orderId": o.ID,
		})
		if err != nil {
			utils.Logger.Warn("Courier push failed", zap.String("courierId", courierID), zap.Error(err))
		}
	})
	return nil
}

// PgCourierDirectory lists the couriers checkout may assign.
type PgCourierDirectory struct{}

func (PgCourierDirectory) ActiveCouriers(ctx context.Context) ([]models.Courier, error) {
	return ListActiveCouriers(ctx)
}
