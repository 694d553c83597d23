package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/stevemurr/persiston/codec"
)

// Config selects and configures an Adapter for Open.
type Config struct {
	// Backend is one of "file" (alias "json", the default), "sqlite",
	// "memory" or "s3".
	Backend string
	// Target is the file path, the SQLite database path or an s3://bucket/key
	// URL. It is ignored by the memory backend.
	Target string
	// Codec defaults to codec.Default.
	Codec codec.Codec
	// S3 configures the client of the s3 backend.
	S3 S3Config
}

// Open creates an Adapter based on the backend name.
//
// Supported backends:
//
//	"file"   - a single file at Target (default)
//	"sqlite" - a row of the SQLite database at Target
//	"memory" - in-memory (ephemeral, for testing)
//	"s3"     - the S3 object at Target
func Open(ctx context.Context, cfg Config) (Adapter, error) {
	opts := []Option{WithCodec(cfg.Codec)}
	switch cfg.Backend {
	case "file", "json", "":
		if cfg.Target == "" {
			return nil, errors.New("file backend needs a target path")
		}
		return NewFileAdapter(cfg.Target, opts...), nil
	case "sqlite":
		if cfg.Target == "" {
			return nil, errors.New("sqlite backend needs a target path")
		}
		return NewSqliteAdapter(cfg.Target, opts...)
	case "memory":
		return NewMemoryAdapter(opts...), nil
	case "s3":
		bucket, key, err := ParseS3URL(cfg.Target)
		if err != nil {
			return nil, err
		}
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return NewS3Adapter(client, bucket, key, opts...), nil
	default:
		return nil, fmt.Errorf("unknown adapter backend: %q (supported: file, sqlite, memory, s3)", cfg.Backend)
	}
}
