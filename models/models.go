package models

import "time"

// Coordinate is a WGS84 point. Lng before Lat only on the directions wire format.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point falls inside WGS84 ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

type CabType string

const (
	CabStandard CabType = "standard"
	CabComfort  CabType = "comfort"
	CabPremium  CabType = "premium"
	CabSUV      CabType = "suv"
)

type Driver struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Car      string     `json:"car"`
	CabType  CabType    `json:"cabType"`
	Rating   float64    `json:"rating"`
	Phone    string     `json:"phone"`
	Image    string     `json:"image"`
	Location Coordinate `json:"location"`
}

type Courier struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Name              string    `json:"name"`
	Phone             string    `json:"phone"`
	Vehicle           string    `json:"vehicle"`
	IsActive          bool      `json:"isActive"`
	NotificationToken *string   `json:"notificationToken,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

type Store struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

type Product struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"storeId"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

type CartItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	StoreID     string  `json:"storeId"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderApproved   OrderStatus = "approved"
	OrderDeclined   OrderStatus = "declined"
	OrderDelivering OrderStatus = "delivering"
	OrderCompleted  OrderStatus = "completed"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderApproved, OrderDeclined},
	OrderApproved:   {OrderDelivering},
	OrderDelivering: {OrderCompleted},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderApproved, OrderDeclined, OrderDelivering, OrderCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderDeclined || s == OrderCompleted
}

type OrderItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

type Order struct {
	ID              string      `json:"id"`
	StoreID         string      `json:"store_id"`
	CustomerID      string      `json:"customer_id"`
	Items           []OrderItem `json:"items"`
	TotalAmount     float64     `json:"total_amount"`
	Address         string      `json:"address"`
	Status          OrderStatus `json:"status"`
	CourierAssigned string      `json:"courier_assigned"`
	PaymentMethod   string      `json:"payment_method"`
	AcceptedBy      *string     `json:"accepted_by,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

type Notification struct {
	ID        string    `json:"id"`
	CourierID string    `json:"courierId"`
	OrderID   string    `json:"orderId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a short user-facing message pushed over the realtime channel.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

type APILog struct {
	ID              string      `json:"id"`
	Provider        string      `json:"provider"`
	Endpoint        string      `json:"endpoint"`
	RequestID       *string     `json:"requestId"`
	RequestPayload  interface{} `json:"requestPayload"`
	ResponsePayload interface{} `json:"responsePayload"`
	StatusCode      int         `json:"statusCode"`
	DurationMs      int         `json:"durationMs"`
	CreatedAt       time.Time   `json:"createdAt"`
}
