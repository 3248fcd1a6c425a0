package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Archiver keeps an off-site copy of generated reports in a GCS bucket.
// Archival is best-effort: the local public file is the source of truth.
type Archiver struct {
	client     *storage.Client
	bucketName string
}

type ArchiveResult struct {
	ObjectName string `json:"object_name"`
	PublicURL  string `json:"public_url"`
	Size       int64  `json:"size"`
}

func NewArchiver(ctx context.Context, bucketName, credentialsPath string) (*Archiver, error) {
	var client *storage.Client
	var err error

	if credentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsPath))
	} else {
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &Archiver{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// ArchiveReport uploads one generated PDF under reports/<yyyy>/<mm>/.
func (a *Archiver) ArchiveReport(ctx context.Context, fileName string, buffer []byte) (*ArchiveResult, error) {
	objectName := reportObjectName(fileName)
	obj := a.client.Bucket(a.bucketName).Object(objectName)
	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/pdf"

	size, err := io.Copy(writer, bytes.NewReader(buffer))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to copy report to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close GCS writer: %w", err)
	}

	return &ArchiveResult{
		ObjectName: objectName,
		PublicURL:  fmt.Sprintf("https://storage.googleapis.com/%s/%s", a.bucketName, objectName),
		Size:       size,
	}, nil
}

// SignedURL returns a V4 signed download link for an archived report.
func (a *Archiver) SignedURL(objectName string, expiry time.Duration) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expiry),
	}

	return a.client.Bucket(a.bucketName).SignedURL(objectName, opts)
}

func (a *Archiver) Close() error {
	return a.client.Close()
}

func reportObjectName(fileName string) string {
	now := time.Now()
	return fmt.Sprintf("reports/%d/%02d/%s", now.Year(), int(now.Month()), fileName)
}
