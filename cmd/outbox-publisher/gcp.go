package main

import (
	"context"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/supplyhub/marketplace-backend/pkg/outbox/registry"
)

// gcpTopic adapts an ordered Pub/Sub publisher to topicPublisher.
type gcpTopic struct {
	publisher *gcppubsub.Publisher
}

func newGCPTopic(p *gcppubsub.Publisher) topicPublisher {
	if p == nil {
		return nil
	}
	return gcpTopic{publisher: p}
}

// Publish blocks until the server acknowledges the message. A failed publish
// pauses its ordering key, so the key is resumed for the next retry.
func (t gcpTopic) Publish(ctx context.Context, msg *gcppubsub.Message) (string, error) {
	id, err := t.publisher.Publish(ctx, msg).Get(ctx)
	if err == nil {
		return id, nil
	}
	if msg.OrderingKey != "" {
		t.publisher.ResumePublish(msg.OrderingKey)
	}
	return "", classifyPublishError(err)
}

// classifyPublishError marks rejections that a resend of the same message
// cannot fix, such as an oversized payload.
func classifyPublishError(err error) error {
	if status.Code(err) == codes.InvalidArgument {
		return registry.Permanent(err)
	}
	return err
}
