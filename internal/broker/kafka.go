package appkafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/microblog/internal/models"
	"github.com/segmentio/kafka-go"
)

// KafkaWriter defines an interface for writing messages to Kafka.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, messages ...kafka.Message) error
	Close() error
}

// KafkaReader defines an interface for reading messages from Kafka.
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConfig holds configuration parameters for Kafka.
type KafkaConfig struct {
	Brokers      []string      // list of Kafka brokers
	Topic        string        // topic name
	Partition    int           // partition of the reader when GroupID is empty
	WriteTimeout time.Duration // write timeout duration
	ReadTimeout  time.Duration // max wait for a fetch batch
	GroupID      string        // consumer group ID
}

func (cfg *KafkaConfig) defaults() {
	if len(cfg.Brokers) == 0 {
		cfg.Brokers = []string{"localhost:9092"}
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
}

// RealKafkaWriter implements KafkaWriter on a kafka.Writer. Messages are
// keyed by task id so retries of one job land on the same partition.
type RealKafkaWriter struct {
	writer *kafka.Writer
}

// NewKafkaWriter creates a writer for cfg.Topic. Connections are opened
// lazily on the first write.
func NewKafkaWriter(cfg KafkaConfig) *RealKafkaWriter {
	cfg.defaults()
	return &RealKafkaWriter{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			WriteTimeout:           cfg.WriteTimeout,
			AllowAutoTopicCreation: true,
		},
	}
}

func (w *RealKafkaWriter) WriteMessages(ctx context.Context, messages ...kafka.Message) error {
	return w.writer.WriteMessages(ctx, messages...)
}

func (w *RealKafkaWriter) Close() error {
	return w.writer.Close()
}

// RealKafkaReader implements KafkaReader using kafka.Reader (consumer group).
type RealKafkaReader struct {
	reader *kafka.Reader
}

// NewKafkaReader creates a new Kafka consumer group reader.
func NewKafkaReader(cfg KafkaConfig) KafkaReader {
	cfg.defaults()

	rc := kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        cfg.ReadTimeout,
		CommitInterval: time.Second,
	}
	if cfg.GroupID == "" {
		rc.Partition = cfg.Partition
	}
	return &RealKafkaReader{reader: kafka.NewReader(rc)}
}

func (r *RealKafkaReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	return r.reader.ReadMessage(ctx)
}

func (r *RealKafkaReader) Close() error {
	return r.reader.Close()
}

// PublishJob writes job to the task queue.
func PublishJob(ctx context.Context, w KafkaWriter, job models.TaskJob) error {
	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(job.TaskID), Value: value}); err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// DecodeJob parses a task queue message.
func DecodeJob(msg kafka.Message) (models.TaskJob, error) {
	var job models.TaskJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return job, fmt.Errorf("decode job: %w", err)
	}
	if job.TaskID == "" || job.Name == "" || job.AccountID == 0 {
		return job, fmt.Errorf("decode job: incomplete payload")
	}
	return job, nil
}
