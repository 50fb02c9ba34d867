package domain

import "time"

// OrderEventKind mirrors the lifecycle status that produced the event, plus
// the initial "placed" event emitted by checkout.
type OrderEventKind string

const (
	EventOrderPlaced    OrderEventKind = "order.placed"
	EventOrderPaid      OrderEventKind = "order.paid"
	EventOrderPacked    OrderEventKind = "order.packed"
	EventOrderShipped   OrderEventKind = "order.shipped"
	EventOrderDelivered OrderEventKind = "order.delivered"
	EventOrderCancelled OrderEventKind = "order.cancelled"
	EventOrderRefunded  OrderEventKind = "order.refunded"
)

type OrderEvent struct {
	Kind       OrderEventKind `json:"kind"`
	OrderID    string         `json:"order_id"`
	Email      string         `json:"email"`
	TotalPaisa int64          `json:"total_paisa"`
	ItemCount  int            `json:"item_count"`
	TrackingNo string         `json:"tracking_no,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
