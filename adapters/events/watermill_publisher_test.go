package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingPublisher records published messages per topic.
type capturingPublisher struct {
	messages map[string][]*message.Message
	err      error
}

func (p *capturingPublisher) Publish(topic string, msgs ...*message.Message) error {
	if p.err != nil {
		return p.err
	}
	if p.messages == nil {
		p.messages = make(map[string][]*message.Message)
	}
	p.messages[topic] = append(p.messages[topic], msgs...)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func TestPublishAssertionIssued(t *testing.T) {
	capture := &capturingPublisher{}
	pub := NewWatermillPublisher(capture)

	err := pub.PublishAssertionIssued(context.Background(), "https://user.example/", "https://rp.example/cb", "h1")
	require.NoError(t, err)

	msgs := capture.messages[AssertionTopic]
	require.Len(t, msgs, 1)

	var event AssertionEvent
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &event))
	assert.Equal(t, "https://user.example/", event.Identity)
	assert.Equal(t, "https://rp.example/cb", event.ReturnTo)
	assert.Equal(t, "h1", event.Handle)
}

func TestPublishHandleInvalidated(t *testing.T) {
	capture := &capturingPublisher{}
	pub := NewWatermillPublisher(capture)

	err := pub.PublishHandleInvalidated(context.Background(), "stale")
	require.NoError(t, err)

	msgs := capture.messages[InvalidationTopic]
	require.Len(t, msgs, 1)

	var event InvalidationEvent
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &event))
	assert.Equal(t, "stale", event.Handle)
}

func TestPublishError(t *testing.T) {
	capture := &capturingPublisher{err: errors.New("broker down")}
	pub := NewWatermillPublisher(capture)

	err := pub.PublishHandleInvalidated(context.Background(), "h")
	assert.Error(t, err)
}
