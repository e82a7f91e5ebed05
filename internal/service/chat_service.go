package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/realtime"
	"github.com/aditya/rideshare/internal/repository"
	"github.com/aditya/rideshare/pkg/logger"
)

const defaultChatHistoryLimit = 100

// ChatService stores the messages a ride's rider and driver exchange and
// pushes each one to the ride topic.
type ChatService interface {
	Send(ctx context.Context, actor models.Actor, rideID, text string) (*models.ChatMessage, error)
	History(ctx context.Context, actor models.Actor, rideID string, limit int) (*models.ChatHistoryResponse, error)
}

type chatService struct {
	rideRepo repository.RideRepository
	chatRepo repository.ChatRepository
	broker   realtime.Broker
	log      *logger.Logger
	now      func() time.Time
}

func NewChatService(rideRepo repository.RideRepository, chatRepo repository.ChatRepository, broker realtime.Broker, log *logger.Logger) ChatService {
	return &chatService{
		rideRepo: rideRepo,
		chatRepo: chatRepo,
		broker:   broker,
		log:      log,
		now:      time.Now,
	}
}

// Send is limited to the rider and the assigned driver. The published frame
// carries the origin from ctx so the sending connection is skipped.
func (s *chatService) Send(ctx context.Context, actor models.Actor, rideID, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.InvalidInput("message is required")
	}
	if utf8.RuneCountInString(text) > models.MaxChatMessageLength {
		return nil, apperrors.InvalidInput("message is too long")
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, apperrors.NotFound("ride")
	}

	var role models.Role
	switch {
	case ride.RiderID == actor.UserID:
		role = models.RoleRider
	case ride.IsAssignedTo(actor.UserID):
		role = models.RoleDriver
	default:
		return nil, apperrors.Forbidden("only the rider and the driver can chat on this ride")
	}

	msg := &models.ChatMessage{
		RideID:     ride.ID,
		SenderID:   actor.UserID,
		SenderRole: role,
		Message:    text,
		CreatedAt:  s.now(),
	}
	if err := s.chatRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type":       "message",
		"message_id": msg.ID,
		"ride_id":    msg.RideID,
		"sender_id":  msg.SenderID,
		"sender":     msg.SenderRole,
		"message":    msg.Message,
		"timestamp":  msg.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err == nil {
		err = s.broker.Publish(ctx, realtime.RideTopic(ride.ID), realtime.Message{Origin: realtime.OriginFrom(ctx), Payload: payload})
	}
	if err != nil {
		s.log.WithError(err).WithField("ride_id", ride.ID).Warn("failed to publish chat message")
	}

	return msg, nil
}

func (s *chatService) History(ctx context.Context, actor models.Actor, rideID string, limit int) (*models.ChatHistoryResponse, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride == nil {
		return nil, apperrors.NotFound("ride")
	}
	if !actor.CanView(ride) {
		return nil, apperrors.Forbidden("you are not a participant of this ride")
	}

	if limit <= 0 || limit > defaultChatHistoryLimit {
		limit = defaultChatHistoryLimit
	}
	messages, err := s.chatRepo.ListByRide(ctx, ride.ID, limit)
	if err != nil {
		return nil, err
	}

	return &models.ChatHistoryResponse{RideID: ride.ID, Messages: messages, TotalMessages: len(messages)}, nil
}
