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
	ErrStoreNotFound   = errors.New("store not found")
	ErrProductNotFound = errors.New("product not found")
)

func GetStore(ctx context.Context, id string) (*models.Store, error) {
	var s models.Store
	err := db.Pool.QueryRow(ctx,
		`SELECT id, owner_id, name, address, "createdAt" FROM stores WHERE id=$1`, id).
		Scan(&s.ID, &s.OwnerID, &s.Name, &s.Address, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStoreNotFound
	}
	return &s, err
}

func ListProducts(ctx context.Context, storeID string) ([]models.Product, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, store_id, name, price, stock, image_url, "createdAt"
		 FROM products WHERE store_id=$1 ORDER BY name ASC`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.StoreID, &p.Name, &p.Price, &p.Stock, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := db.Pool.QueryRow(ctx,
		`SELECT id, store_id, name, price, stock, image_url, "createdAt" FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.StoreID, &p.Name, &p.Price, &p.Stock, &p.ImageURL, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return &p, err
}

func CreateProduct(ctx context.Context, p *models.Product) error {
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO products (store_id, name, price, stock, image_url)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, "createdAt"`,
		p.StoreID, p.Name, p.Price, p.Stock, p.ImageURL,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	err = PublishChange(ctx, Change{
		Table:  "products",
		Op:     ChangeInsert,
		RowID:  p.ID,
		Filter: map[string]string{"store_id": p.StoreID},
	})
	if err != nil {
		utils.Logger.Warn("Failed to publish product change", zap.String("productId", p.ID), zap.Error(err))
	}
	return nil
}

// ListDrivers reads the cab roster in display order.
func ListDrivers(ctx context.Context) ([]models.Driver, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, car, cab_type, rating, phone, image, lat, lng FROM drivers ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drivers := []models.Driver{}
	for rows.Next() {
		var d models.Driver
		if err := rows.Scan(&d.ID, &d.Name, &d.Car, &d.CabType, &d.Rating, &d.Phone, &d.Image,
			&d.Location.Lat, &d.Location.Lng); err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}

// PgDriverRoster serves the booking roster from the drivers table.
type PgDriverRoster struct{}

func (PgDriverRoster) Drivers(ctx context.Context) ([]models.Driver, error) {
	return ListDrivers(ctx)
}
