package models

import "time"

// NotificationChannel is the delivery medium for a notification.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
	ChannelPush  NotificationChannel = "push"
)

// Valid reports whether the channel is one of the known channels.
func (c NotificationChannel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS || c == ChannelPush
}

// NotificationStatus tracks a task through its single delivery attempt.
type NotificationStatus string

const (
	NotificationQueued    NotificationStatus = "queued"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationFailed    NotificationStatus = "failed"
)

// NotificationTask is one best-effort delivery. Delivery is attempted at
// most once; a failed task stays failed and is only visible through the
// status query.
type NotificationTask struct {
	ID            string              `json:"id"`
	Target        string              `json:"target"`
	Channel       NotificationChannel `json:"channel"`
	Payload       string              `json:"payload"`
	Status        NotificationStatus  `json:"status"`
	CorrelationID string              `json:"correlation_id,omitempty"`
	FailureReason string              `json:"failure_reason,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	DeliveredAt   *time.Time          `json:"delivered_at,omitempty"`
}
