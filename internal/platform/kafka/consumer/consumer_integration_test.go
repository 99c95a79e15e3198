//go:build integration

package consumer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"suiverify/internal/platform/kafka"
	"suiverify/internal/platform/kafka/consumer"
	"suiverify/internal/platform/kafka/producer"
	"suiverify/pkg/testutil/containers"
)

type ConsumerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestConsumerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ConsumerIntegrationSuite))
}

func (s *ConsumerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	prod, err := producer.New(kafka.ProducerConfig{
		Brokers:         kafka.SplitBrokers(s.kafka.Brokers),
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ConsumerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

type testHandler struct {
	mu       sync.Mutex
	messages []*consumer.Message
	errFunc  func(*consumer.Message) error
}

func (h *testHandler) Handle(_ context.Context, msg *consumer.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.errFunc != nil {
		if err := h.errFunc(msg); err != nil {
			return err
		}
	}
	h.messages = append(h.messages, msg)
	return nil
}

func (h *testHandler) Messages() []*consumer.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*consumer.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (s *ConsumerIntegrationSuite) newConsumer(group, topic string, h consumer.Handler) *consumer.Consumer {
	cons, err := consumer.New(kafka.ConsumerConfig{
		Brokers:         kafka.SplitBrokers(s.kafka.Brokers),
		GroupID:         group,
		Topics:          []string{topic},
		ResetToEarliest: true,
	}, h, nil, consumer.WithRetryBackoff(50*time.Millisecond))
	s.Require().NoError(err)
	return cons
}

func (s *ConsumerIntegrationSuite) stop(cons *consumer.Consumer) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(cons.Stop(ctx))
}

func (s *ConsumerIntegrationSuite) TestReceivesMessagesWithHeaders() {
	ctx := context.Background()
	topic := "test-consumer-receives"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	for i := range 3 {
		s.Require().NoError(s.producer.Produce(ctx, &producer.Message{
			Topic:   topic,
			Key:     []byte(fmt.Sprintf("session-%d", i)),
			Value:   []byte(`{}`),
			Headers: map[string]string{"event_type": "verification_result"},
		}))
	}

	handler := &testHandler{}
	cons := s.newConsumer("test-consumer-receives-group", topic, handler)
	cons.Start(ctx)

	s.Eventually(func() bool { return len(handler.Messages()) >= 3 }, 15*time.Second, 100*time.Millisecond)
	s.stop(cons)

	msgs := handler.Messages()
	s.Equal("session-0", string(msgs[0].Key))
	s.Equal("verification_result", msgs[0].Headers["event_type"])
}

// A retryable failure is redelivered within the same consumer.
func (s *ConsumerIntegrationSuite) TestRetryableFailureIsRedelivered() {
	ctx := context.Background()
	topic := "test-consumer-redeliver"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))
	s.Require().NoError(s.producer.Produce(ctx, &producer.Message{Topic: topic, Key: []byte("k"), Value: []byte("v")}))

	var attempts atomic.Int32
	handler := &testHandler{errFunc: func(*consumer.Message) error {
		if attempts.Add(1) == 1 {
			return errors.New("store unavailable")
		}
		return nil
	}}
	cons := s.newConsumer("test-consumer-redeliver-group", topic, handler)
	cons.Start(ctx)

	s.Eventually(func() bool { return len(handler.Messages()) == 1 }, 15*time.Second, 100*time.Millisecond)
	s.stop(cons)
	s.GreaterOrEqual(attempts.Load(), int32(2))
}

// A skipped message is committed, so a new member of the group does not see it.
func (s *ConsumerIntegrationSuite) TestSkippedMessageIsCommitted() {
	ctx := context.Background()
	topic := "test-consumer-skip"
	group := "test-consumer-skip-group-" + time.Now().Format("20060102150405")
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))
	s.Require().NoError(s.producer.Produce(ctx, &producer.Message{Topic: topic, Key: []byte("poison"), Value: []byte("{")}))

	var seen atomic.Int32
	first := &testHandler{errFunc: func(*consumer.Message) error {
		seen.Add(1)
		return fmt.Errorf("decode result: %w", consumer.ErrSkip)
	}}
	cons1 := s.newConsumer(group, topic, first)
	cons1.Start(ctx)
	s.Eventually(func() bool { return seen.Load() == 1 }, 15*time.Second, 100*time.Millisecond)
	s.stop(cons1)

	s.Require().NoError(s.producer.Produce(ctx, &producer.Message{Topic: topic, Key: []byte("good"), Value: []byte("{}")}))

	second := &testHandler{}
	cons2 := s.newConsumer(group, topic, second)
	cons2.Start(ctx)
	s.Eventually(func() bool { return len(second.Messages()) >= 1 }, 15*time.Second, 100*time.Millisecond)
	s.stop(cons2)

	s.Equal("good", string(second.Messages()[0].Key))
}

func (s *ConsumerIntegrationSuite) TestHealth() {
	cons := s.newConsumer("test-health-group", "test-health", &testHandler{})
	s.NoError(cons.Health(context.Background()))
	s.stop(cons)
	s.Error(cons.Health(context.Background()))
}
