package stores

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/ThalefangN/get-more-bw-87-sub000/db"
	"github.com/ThalefangN/get-more-bw-87-sub000/models"
)

const (
	CartKeyPrefix = "cart:"
	cartTTL       = 7 * 24 * time.Hour
)

var (
	ErrMixedStores     = errors.New("cart already holds items from another store")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrNotInCart       = errors.New("product not in cart")
)

func GetCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	fields, err := db.RedisClient.HGetAll(ctx, CartKeyPrefix+userID).Result()
	if err != nil {
		return nil, err
	}

	items := make([]models.CartItem, 0, len(fields))
	for _, raw := range fields {
		var item models.CartItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

// AddToCart merges quantities for a product already in the cart. A cart only
// ever holds products from one store.
func AddToCart(ctx context.Context, userID string, item models.CartItem) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	items, err := GetCart(ctx, userID)
	if err != nil {
		return err
	}
	for _, existing := range items {
		if existing.StoreID != item.StoreID {
			return ErrMixedStores
		}
		if existing.ProductID == item.ProductID {
			item.Quantity += existing.Quantity
		}
	}
	return putCartItem(ctx, userID, item)
}

// SetCartQuantity overwrites a line's quantity; zero or less removes it.
func SetCartQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return RemoveFromCart(ctx, userID, productID)
	}
	raw, err := db.RedisClient.HGet(ctx, CartKeyPrefix+userID, productID).Result()
	if err != nil {
		return ErrNotInCart
	}
	var item models.CartItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return err
	}
	item.Quantity = quantity
	return putCartItem(ctx, userID, item)
}

func RemoveFromCart(ctx context.Context, userID, productID string) error {
	n, err := db.RedisClient.HDel(ctx, CartKeyPrefix+userID, productID).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotInCart
	}
	return nil
}

func ClearCart(ctx context.Context, userID string) error {
	return db.RedisClient.Del(ctx, CartKeyPrefix+userID).Err()
}

func putCartItem(ctx context.Context, userID string, item models.CartItem) error {
	val, err := json.Marshal(item)
	if err != nil {
		return err
	}
	key := CartKeyPrefix + userID
	if err := db.RedisClient.HSet(ctx, key, item.ProductID, val).Err(); err != nil {
		return err
	}
	return db.RedisClient.Expire(ctx, key, cartTTL).Err()
}

// RedisCart exposes the cart functions to checkout.
type RedisCart struct{}

func (RedisCart) Items(ctx context.Context, userID string) ([]models.CartItem, error) {
	return GetCart(ctx, userID)
}

func (RedisCart) Clear(ctx context.Context, userID string) error {
	return ClearCart(ctx, userID)
}
