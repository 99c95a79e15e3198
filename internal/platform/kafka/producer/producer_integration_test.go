//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"suiverify/internal/platform/kafka"
	"suiverify/internal/platform/kafka/producer"
	"suiverify/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
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

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

// A verification request keyed by session id is consumable with its headers.
func (s *ProducerIntegrationSuite) TestProduceDeliversRequestWithHeaders() {
	ctx := context.Background()
	topic := "test-verification-requests"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	err := s.producer.Produce(ctx, &producer.Message{
		Topic: topic,
		Key:   []byte("session-1"),
		Value: []byte(`{"evidence_hash":"abc"}`),
		Headers: map[string]string{
			"aggregate_type": "kyc_session",
			"event_type":     "verification_requested",
		},
	})
	s.Require().NoError(err)

	consumer, err := s.kafka.NewConsumer(ctx, "test-producer-headers", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	record := s.kafka.WaitForMessage(ctx, consumer, 5*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "session-1"
	})
	s.Require().NotNil(record, "message should be consumable")
	s.JSONEq(`{"evidence_hash":"abc"}`, string(record.Value))

	headers := make(map[string]string)
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal("kyc_session", headers["aggregate_type"])
	s.Equal("verification_requested", headers["event_type"])
}

func (s *ProducerIntegrationSuite) TestProduceAutoCreatesTopic() {
	ctx := context.Background()
	topic := "test-auto-create-" + time.Now().Format("20060102150405")

	s.Require().NoError(s.producer.Produce(ctx, &producer.Message{
		Topic: topic,
		Key:   []byte("auto-create-key"),
		Value: []byte("auto-create-value"),
	}))

	consumer, err := s.kafka.NewConsumer(ctx, "test-auto-create-consumer", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	record := s.kafka.WaitForMessage(ctx, consumer, 5*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "auto-create-key"
	})
	s.Require().NotNil(record)
}

func (s *ProducerIntegrationSuite) TestHealthAndClose() {
	ctx := context.Background()
	s.NoError(s.producer.Health(ctx))

	prod, err := producer.New(kafka.ProducerConfig{Brokers: kafka.SplitBrokers(s.kafka.Brokers)}, nil)
	s.Require().NoError(err)
	s.Require().NoError(prod.Close())

	s.ErrorIs(prod.Produce(ctx, &producer.Message{Topic: "x"}), producer.ErrClosed)
	s.ErrorIs(prod.Health(ctx), producer.ErrClosed)
}
