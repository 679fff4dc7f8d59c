package main

import (
	"context"
	"fmt"

	"github.com/clinicflow/clinicflow/internal/config"
	"github.com/clinicflow/clinicflow/internal/platform/blobstore"
	"github.com/clinicflow/clinicflow/internal/platform/events"
)

func newBlobStore(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	switch cfg.BlobBackend {
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "s3":
		client, err := blobstore.NewS3Client(ctx)
		if err != nil {
			return nil, err
		}
		return blobstore.NewS3Store(client, cfg.BlobS3Bucket, cfg.BlobS3Prefix), nil
	case "local", "":
		return blobstore.NewLocalStore(cfg.BlobLocalDir)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func newPublisher(ctx context.Context, cfg *config.Config) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case "kafka":
		return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)), nil
	case "sqs":
		client, err := events.NewSQSClient(ctx)
		if err != nil {
			return nil, err
		}
		return events.NewSQSPublisher(client, cfg.SQSQueueURL), nil
	case "none", "":
		return events.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.EventsBackend)
	}
}
