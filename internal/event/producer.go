package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/auth-service/internal/domain"
	pkgkafka "github.com/utafrali/auth-service/pkg/kafka"
)

// Kafka topics for auth domain events.
var (
	TopicUserRegistered = pkgkafka.Topic("user", "registered")
	TopicUserLoggedIn   = pkgkafka.Topic("user", "logged_in")
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from the auth service.
const SourceAuthService = "auth-service"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserLoggedInData is the payload for a user.logged_in event.
type UserLoggedInData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Producer publishes auth domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the auth service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user domain.PublicUser) error {
	data := UserRegisteredData{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// PublishUserLoggedIn publishes a user.logged_in event.
func (p *Producer) PublishUserLoggedIn(ctx context.Context, user domain.PublicUser) error {
	data := UserLoggedInData{
		ID:    user.ID,
		Email: user.Email,
	}

	event, err := pkgkafka.NewEvent(TopicUserLoggedIn, user.ID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.logged_in event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserLoggedIn, event); err != nil {
		return fmt.Errorf("publish user.logged_in event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.logged_in event",
		slog.String("user_id", user.ID),
	)

	return nil
}
