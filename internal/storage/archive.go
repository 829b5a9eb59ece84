// Package storage archives generation results to S3.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pageza/pantrychef/backend/config"
	"github.com/pageza/pantrychef/backend/internal/models"
)

// ObjectPutter is the subset of the S3 client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes each consulta as a JSON document.
type S3Archiver struct {
	client ObjectPutter
	bucket string
}

// NewS3Archiver creates an archiver from the storage configuration.
func NewS3Archiver(cfg *config.S3Config) *S3Archiver {
	return &S3Archiver{client: cfg.Client, bucket: cfg.BucketName}
}

// NewS3ArchiverWithClient creates an archiver on an arbitrary client.
func NewS3ArchiverWithClient(client ObjectPutter, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket}
}

// ObjectKey returns the key a consulta is archived under.
func ObjectKey(c *models.Consulta) string {
	return fmt.Sprintf("consultas/%s/%s.json", c.UserID, c.ID)
}

type archivedConsulta struct {
	ID         string                  `json:"id"`
	UserID     string                  `json:"user_id"`
	CreatedAt  string                  `json:"created_at"`
	Provenance string                  `json:"provenance"`
	Attempts   int                     `json:"attempts"`
	Stock      []float32               `json:"stock_fingerprint"`
	Recipes    []models.ConsultaRecipe `json:"recipes"`
}

// Archive implements service.ConsultaArchiver.
func (a *S3Archiver) Archive(ctx context.Context, c *models.Consulta) error {
	body, err := json.Marshal(archivedConsulta{
		ID:         c.ID.String(),
		UserID:     c.UserID.String(),
		CreatedAt:  c.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Provenance: c.Provenance,
		Attempts:   c.Attempts,
		Stock:      c.StockEmbedding.Slice(),
		Recipes:    c.Recipes,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal consulta: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(ObjectKey(c)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload consulta %s: %w", c.ID, err)
	}
	return nil
}
