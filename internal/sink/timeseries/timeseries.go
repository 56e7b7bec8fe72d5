// Package timeseries implements the optional time-series telemetry sink
// (§1 "when configured, a time-series sink"; §2 data flow). The core only
// owns the publish-side interface (cycle.Sink); the actual push client
// is an external collaborator in the spec's sense, but this adapter is
// grounded on the teacher's reporters.Kafka writer: a segmentio/kafka-go
// Writer with the same balanced partitioning and batching defaults,
// repurposed from shipping captured packets to shipping telemetry
// points.
package timeseries

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"icc.tech/hil-supervisor/internal/telemetry"
)

// Config names the Kafka topic the supervisor pushes telemetry to.
type Config struct {
	Brokers []string
	Topic   string
}

// Sink publishes one Kafka message per timestamp bucket, the same
// ts->[points] record internal/sink/logfile appends to disk.
type Sink struct {
	writer *kafka.Writer
	log    *logrus.Entry
}

// New creates a Sink. It does not dial until the first Publish;
// kafka.Writer establishes connections lazily per kafka-go's own
// contract.
func New(cfg Config) *Sink {
	return &Sink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 200 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		log: logrus.WithField("component", "timeseries-sink"),
	}
}

// Publish writes one Kafka message per timestamp bucket in snapshot.
// A push failure is logged and swallowed: telemetry publication is
// best-effort for every sink (§7 "Telemetry gathering is best-effort"),
// and the log file / HTTP consumer must not be held back by a slow or
// unreachable broker.
func (s *Sink) Publish(ctx context.Context, snapshot telemetry.Snapshot) error {
	times := snapshot.Times
	msgs := make([]kafka.Message, 0, len(times))
	for i, bucket := range snapshot.Buckets() {
		body, err := json.Marshal(bucket)
		if err != nil {
			s.log.WithError(err).Warn("failed to marshal telemetry record")
			continue
		}
		ts := times[i]
		msgs = append(msgs, kafka.Message{
			Key:   []byte(fmt.Sprintf("%d", ts)),
			Value: body,
			Time:  time.Unix(0, ts),
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		s.log.WithError(err).Warn("time-series publish failed")
	}
	return nil
}

// Close flushes and releases the underlying Kafka writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}
