package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/x402labs/signalfeed/internal/domain"
)

// Archiver implements domain.BatchArchiver by writing each refresh batch as
// a JSON object to the configured bucket. Archived batches retain the full
// opinion content: the bucket is operator-private, not client-facing.
type Archiver struct {
	client *Client
	logger *slog.Logger
}

// NewArchiver creates an Archiver over the given S3 client.
func NewArchiver(client *Client, logger *slog.Logger) *Archiver {
	return &Archiver{
		client: client,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// archiveEnvelope is the stored batch shape.
type archiveEnvelope struct {
	BatchID    string          `json:"batch_id"`
	ArchivedAt time.Time       `json:"archived_at"`
	Count      int             `json:"count"`
	Signals    []domain.Signal `json:"signals"`
}

// ArchiveBatch uploads the batch under signals/YYYY/MM/DD/{batchID}.json.
func (a *Archiver) ArchiveBatch(ctx context.Context, batchID string, signals []domain.Signal) error {
	now := time.Now().UTC()
	key := fmt.Sprintf("signals/%s/%s.json", now.Format("2006/01/02"), batchID)

	payload, err := json.Marshal(archiveEnvelope{
		BatchID:    batchID,
		ArchivedAt: now,
		Count:      len(signals),
		Signals:    signals,
	})
	if err != nil {
		return fmt.Errorf("s3blob: marshal batch %s: %w", batchID, err)
	}

	_, err = a.client.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.client.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put batch %s: %w", batchID, err)
	}

	a.logger.InfoContext(ctx, "archived signal batch",
		slog.String("key", key),
		slog.Int("signals", len(signals)),
	)
	return nil
}
