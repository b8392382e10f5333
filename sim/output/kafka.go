package output

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
)

// RunIDHeader is the Kafka header carrying the run identifier.
const RunIDHeader = "run-id"

// NewSyncProducer connects a synchronous producer to brokers.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 100 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.Net.DialTimeout = 30 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	logrus.Infof("Kafka producer connected to brokers %v", brokers)
	return producer, nil
}

// KafkaSink publishes every event to a topic, keyed by person so that the
// events of one agent stay ordered within a partition.
type KafkaSink struct {
	mu       sync.Mutex
	producer sarama.SyncProducer
	topic    string
	runID    string
	sent     int64
	failed   int64
}

// NewKafkaSink publishes to topic, tagging every message with runID.
func NewKafkaSink(producer sarama.SyncProducer, topic, runID string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, runID: runID}
}

// HandleEvent sends e synchronously. Failed sends are counted, not retried.
func (s *KafkaSink) HandleEvent(e sim.Event) {
	value, err := json.Marshal(newEventRecord(e))
	if err != nil {
		logrus.Warnf("encoding event for Kafka: %v", err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(RunIDHeader), Value: []byte(s.runID)},
		},
	}
	if e.PersonID != "" {
		msg.Key = sarama.StringEncoder(e.PersonID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		s.failed++
		logrus.Debugf("Failed to send event to topic %s: %v", s.topic, err)
		return
	}
	s.sent++
}

// Sent returns the number of events acknowledged by the brokers.
func (s *KafkaSink) Sent() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// Failed returns the number of events that could not be delivered.
func (s *KafkaSink) Failed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Close closes the producer and warns about undelivered events.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed > 0 {
		logrus.Warnf("%d of %d events were not delivered to topic %s", s.failed, s.failed+s.sent, s.topic)
	}
	return wrapClose("kafka", s.producer.Close())
}
