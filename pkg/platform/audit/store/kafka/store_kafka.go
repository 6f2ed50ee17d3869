// Package kafka publishes audit events to a Kafka topic. Compliance events
// are produced synchronously; downstream consumers own retention.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "vigil/pkg/platform/audit"
	dErrors "vigil/pkg/domain-errors"
)

// Store writes events to one topic, keyed by subject hash so a subject's
// trail stays in partition order.
type Store struct {
	client *kgo.Client
	topic  string
}

// New connects a producer. Brokers must be non-empty.
func New(brokers []string, topic string) (*Store, error) {
	if len(brokers) == 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "audit kafka: no brokers configured")
	}
	if topic == "" {
		return nil, dErrors.New(dErrors.CodeInternal, "audit kafka: topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ClientID("vigil-audit"),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "audit kafka: client setup failed")
	}
	return &Store{client: client, topic: topic}, nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit kafka: marshal event")
	}
	record := &kgo.Record{
		Key:   []byte(event.SubjectHash),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "audit kafka: produce failed")
	}
	return nil
}

func (s *Store) Close() {
	s.client.Close()
}
