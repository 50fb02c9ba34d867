package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusPacked    OrderStatus = "packed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodGateway PaymentMethod = "gateway"
	PaymentMethodCOD     PaymentMethod = "cod"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// RegionTier picks the shipping rate: in-region destinations ship cheaper
// than the rest of the country.
type RegionTier string

const (
	RegionInRegion      RegionTier = "in_region"
	RegionRestOfCountry RegionTier = "rest_of_country"
)

type Address struct {
	Name    string     `json:"name"`
	Line1   string     `json:"line1"`
	Line2   string     `json:"line2,omitempty"`
	City    string     `json:"city"`
	State   string     `json:"state"`
	Pincode string     `json:"pincode"`
	Region  RegionTier `json:"region"`
}

// OrderItem is an immutable snapshot taken at checkout time; later product
// edits never change it.
type OrderItem struct {
	ProductID      string `json:"product_id"`
	TitleSnapshot  string `json:"title"`
	SKUSnapshot    string `json:"sku"`
	UnitPricePaisa int64  `json:"unit_price_paisa"`
	Quantity       int    `json:"quantity"`
	LineTotalPaisa int64  `json:"line_total_paisa"`
}

type Shipment struct {
	Carrier     string     `json:"carrier"`
	TrackingNo  string     `json:"tracking_no"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// Order is created exactly once per successful checkout. Status, payment
// refs and the shipment are the only fields that change afterwards.
type Order struct {
	ID               string        `json:"id"`
	CustomerID       string        `json:"customer_id,omitempty"`
	Email            string        `json:"email"`
	Phone            string        `json:"phone"`
	ShippingAddress  Address       `json:"shipping_address"`
	Items            []OrderItem   `json:"items"`
	Totals           Totals        `json:"totals"`
	CouponCode       string        `json:"coupon_code,omitempty"`
	Status           OrderStatus   `json:"status"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	GatewayOrderRef  string        `json:"gateway_order_ref,omitempty"`
	GatewayPaymentID string        `json:"gateway_payment_id,omitempty"`
	Shipment         *Shipment     `json:"shipment,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}
