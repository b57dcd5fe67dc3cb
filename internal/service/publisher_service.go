package service

import (
	"context"
	"encoding/json"

	"nous-core/internal/constant"
	"nous-core/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	RequestCleanup(ctx context.Context, sessionID string) error
}

type publisherService struct {
	publisher message.Publisher
	topicName string
}

func NewPublisherService(publisher message.Publisher) IPublisherService {
	return &publisherService{
		publisher: publisher,
		topicName: constant.ArtifactCleanupTopic,
	}
}

// RequestCleanup queues removal of every artifact a session left behind.
func (ps *publisherService) RequestCleanup(ctx context.Context, sessionID string) error {
	payload, err := json.Marshal(dto.CleanupArtifactsMessage{SessionID: sessionID})
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return ps.publisher.Publish(ps.topicName, msg)
}
