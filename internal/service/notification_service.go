package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/realtime"
	"github.com/aditya/rideshare/internal/repository"
	"github.com/aditya/rideshare/pkg/logger"
)

const defaultNotificationLimit = 50

var statusMessages = map[string]string{
	models.RideStatusAccepted:   "Your ride has been accepted by a driver",
	models.RideStatusInProgress: "Your ride has started",
	models.RideStatusCompleted:  "Your ride has been completed",
	models.RideStatusCancelled:  "Your ride has been cancelled",
}

// Notifier persists per-user notifications and pushes ride updates to
// realtime subscribers. Delivery failures are logged, never returned.
type Notifier interface {
	RideRequested(ctx context.Context, req *models.RideRequest, driverIDs []string)
	RideStatusChanged(ctx context.Context, ride *models.Ride)
	PaymentCompleted(ctx context.Context, payment *models.Payment)
	List(ctx context.Context, actor models.Actor, limit int) (*models.NotificationListResponse, error)
	MarkRead(ctx context.Context, actor models.Actor, ids []string) (int64, error)
}

type notifier struct {
	repo   repository.NotificationRepository
	broker realtime.Broker
	log    *logger.Logger
	now    func() time.Time
}

func NewNotifier(repo repository.NotificationRepository, broker realtime.Broker, log *logger.Logger) Notifier {
	return &notifier{
		repo:   repo,
		broker: broker,
		log:    log,
		now:    time.Now,
	}
}

// RideRequested offers a new request to each driver on their driver topic.
func (n *notifier) RideRequested(ctx context.Context, req *models.RideRequest, driverIDs []string) {
	frame := map[string]interface{}{
		"type":                "ride_request",
		"request_id":          req.ID,
		"pickup_latitude":     req.PickupLatitude,
		"pickup_longitude":    req.PickupLongitude,
		"pickup_address":      req.PickupAddress,
		"destination_address": req.DestinationAddress,
		"ride_type":           req.RideType,
		"estimated_fare":      req.EstimatedFare,
		"expires_at":          req.ExpiresAt.UTC().Format(time.RFC3339),
		"timestamp":           n.now().UTC().Format(time.RFC3339),
	}
	for _, id := range driverIDs {
		n.publish(ctx, realtime.DriverTopic(id), frame)
	}
}

func (n *notifier) RideStatusChanged(ctx context.Context, ride *models.Ride) {
	now := n.now()
	timestamp := now.UTC().Format(time.RFC3339)

	n.publish(ctx, realtime.RideTopic(ride.ID), map[string]interface{}{
		"type":      "status_update",
		"ride_id":   ride.ID,
		"status":    ride.Status,
		"timestamp": timestamp,
	})

	if ride.Status == models.RideStatusCancelled && ride.DriverID != nil {
		frame := map[string]interface{}{
			"type":      "ride_cancelled",
			"ride_id":   ride.ID,
			"timestamp": timestamp,
		}
		if ride.CancellationReason != nil {
			frame["reason"] = *ride.CancellationReason
		}
		n.publish(ctx, realtime.DriverTopic(*ride.DriverID), frame)
	}

	message, ok := statusMessages[ride.Status]
	if !ok {
		return
	}

	data, _ := json.Marshal(map[string]string{"ride_id": ride.ID, "status": ride.Status})

	recipients := []string{ride.RiderID}
	if ride.DriverID != nil {
		recipients = append(recipients, *ride.DriverID)
	}

	for _, userID := range recipients {
		n.deliver(ctx, &models.Notification{
			UserID:    userID,
			Type:      models.NotificationRideUpdate,
			Title:     "Ride Update",
			Message:   message,
			Data:      data,
			CreatedAt: now,
		})
	}
}

func (n *notifier) PaymentCompleted(ctx context.Context, payment *models.Payment) {
	data, _ := json.Marshal(map[string]string{
		"ride_id":    payment.RideID,
		"payment_id": payment.ID,
		"amount":     payment.Amount.StringFixed(2),
		"method":     payment.Method,
	})

	n.deliver(ctx, &models.Notification{
		UserID:    payment.RiderID,
		Type:      models.NotificationPayment,
		Title:     "Payment Received",
		Message:   "Your payment of " + payment.Amount.StringFixed(2) + " " + payment.Currency + " was successful",
		Data:      data,
		CreatedAt: n.now(),
	})
}

func (n *notifier) List(ctx context.Context, actor models.Actor, limit int) (*models.NotificationListResponse, error) {
	if limit <= 0 || limit > defaultNotificationLimit {
		limit = defaultNotificationLimit
	}

	items, err := n.repo.ListByUser(ctx, actor.UserID, limit)
	if err != nil {
		return nil, err
	}
	unread, err := n.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	if items == nil {
		items = []*models.Notification{}
	}
	return &models.NotificationListResponse{Notifications: items, UnreadCount: unread}, nil
}

func (n *notifier) MarkRead(ctx context.Context, actor models.Actor, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return n.repo.MarkRead(ctx, actor.UserID, ids)
}

func (n *notifier) deliver(ctx context.Context, notification *models.Notification) {
	log := n.log.WithFields(map[string]interface{}{
		"user_id": notification.UserID,
		"type":    notification.Type,
	})

	if err := n.repo.Create(ctx, notification); err != nil {
		log.WithError(err).Error("failed to store notification")
		return
	}

	n.publish(ctx, realtime.UserTopic(notification.UserID), map[string]interface{}{
		"type":         "notification",
		"notification": notification,
	})
}

func (n *notifier) publish(ctx context.Context, topic string, frame map[string]interface{}) {
	payload, err := json.Marshal(frame)
	if err != nil {
		n.log.WithError(err).Error("failed to encode realtime frame")
		return
	}
	if err := n.broker.Publish(ctx, topic, realtime.Message{Payload: payload}); err != nil {
		n.log.WithError(err).WithField("topic", topic).Warn("failed to publish realtime frame")
	}
}
