package storage

import (
	"context"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// PlanArchive stores the raw generator output a plan was decoded from, so
// decoding warnings can be traced back to the exact payload.
type PlanArchive interface {
	// PutRawPlan uploads a raw plan payload under objectKey.
	PutRawPlan(ctx context.Context, objectKey string, payload []byte) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading an archived payload directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an archived payload.
	DeleteObject(ctx context.Context, objectKey string) error
}
