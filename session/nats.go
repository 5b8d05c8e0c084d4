package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the JetStream KV bucket checkpoints live in.
const DefaultBucket = "SEMFLOW_CHECKPOINTS"

// NATSStore persists checkpoints in a JetStream KV bucket, keyed by module.
type NATSStore struct {
	bucket jetstream.KeyValue
	logger *slog.Logger
}

// NATSStoreOption configures a NATSStore.
type NATSStoreOption func(*NATSStore)

// WithStoreLogger sets the store's logger.
func WithStoreLogger(logger *slog.Logger) NATSStoreOption {
	return func(s *NATSStore) {
		s.logger = logger
	}
}

// NewNATSStore connects the store to a KV bucket, creating the bucket when it
// does not exist yet.
func NewNATSStore(ctx context.Context, nc *nats.Conn, bucket string, opts ...NATSStoreOption) (*NATSStore, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "semflow workflow checkpoints",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("bind checkpoint bucket %s: %w", bucket, err)
	}

	s := &NATSStore{bucket: kv, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save writes the checkpoint to the bucket.
func (s *NATSStore) Save(ctx context.Context, cp Checkpoint) error {
	if cp.Module == "" {
		return fmt.Errorf("save checkpoint: module required")
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if _, err := s.bucket.Put(ctx, cp.Module, data); err != nil {
		return fmt.Errorf("put checkpoint %s: %w", cp.Module, err)
	}

	s.logger.Debug("checkpoint saved",
		"module", cp.Module,
		"step", cp.Step,
		"event", cp.Event)
	return nil
}

// Load reads the module's checkpoint from the bucket.
func (s *NATSStore) Load(ctx context.Context, module string) (*Checkpoint, error) {
	entry, err := s.bucket.Get(ctx, module)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("load checkpoint %s: %w", module, ErrNotFound)
		}
		return nil, fmt.Errorf("get checkpoint %s: %w", module, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(entry.Value(), &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint %s: %w", module, err)
	}
	return &cp, nil
}

// Delete removes the module's checkpoint from the bucket.
func (s *NATSStore) Delete(ctx context.Context, module string) error {
	if err := s.bucket.Delete(ctx, module); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("delete checkpoint %s: %w", module, err)
	}
	return nil
}
