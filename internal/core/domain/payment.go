package domain

import "time"

type PaymentID string

// Payment records a verified subscription payment so it can be refunded later.
type Payment struct {
	ID             PaymentID `json:"_id" bson:"_id"`
	UserID         UserID    `json:"user" bson:"user"`
	SubscriptionID string    `json:"subscriptionId" bson:"subscription_id"`
	PaymentRef     string    `json:"paymentRef" bson:"payment_ref"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
}

// GatewaySubscription is the payment gateway's view of a subscription.
type GatewaySubscription struct {
	ID           string
	Status       string
	ClientSecret string
	PaymentRef   string
	CustomerID   string
}

// GatewayEvent is a verified webhook notification about a subscription.
type GatewayEvent struct {
	Type           string
	SubscriptionID string
	Status         string
}
