package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationChannel selects the delivery medium.
type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "in_app"
	ChannelEmail NotificationChannel = "email"
)

// NotificationType represents what triggered a notification.
type NotificationType string

const (
	NotificationNewTask             NotificationType = "new_task"
	NotificationAssignmentAccepted  NotificationType = "assignment_accepted"
	NotificationAssignmentRejected  NotificationType = "assignment_rejected"
	NotificationAssignmentScheduled NotificationType = "assignment_scheduled"
	NotificationAssignmentCompleted NotificationType = "assignment_completed"
	NotificationReceiptConfirmed    NotificationType = "receipt_confirmed"
	NotificationFeedbackReceived    NotificationType = "feedback_received"
	NotificationBadgeUnlocked       NotificationType = "badge_unlocked"
)

// NotificationStatus tracks an outbox record's delivery.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationFailed    NotificationStatus = "failed"
)

// Notification is an outbox record written in the same transaction as the
// state change that produced it and delivered later by the outbox worker.
type Notification struct {
	ID          string
	Recipient   EntityRef
	Channel     NotificationChannel
	Type        NotificationType
	Title       string
	Message     string
	ReferenceID string
	Status      NotificationStatus
	Attempts    int
	LastError   *string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// NewNotification creates a pending notification with a fresh ID.
func NewNotification(
	recipient EntityRef,
	channel NotificationChannel,
	typ NotificationType,
	title, message, referenceID string,
	now time.Time,
) *Notification {
	return &Notification{
		ID:          uuid.NewString(),
		Recipient:   recipient,
		Channel:     channel,
		Type:        typ,
		Title:       title,
		Message:     message,
		ReferenceID: referenceID,
		Status:      NotificationPending,
		CreatedAt:   now,
	}
}

// Clone returns a deep copy of the notification.
func (n *Notification) Clone() *Notification {
	c := *n
	if n.LastError != nil {
		e := *n.LastError
		c.LastError = &e
	}
	if n.DeliveredAt != nil {
		t := *n.DeliveredAt
		c.DeliveredAt = &t
	}
	return &c
}
