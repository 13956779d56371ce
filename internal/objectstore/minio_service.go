package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// RecordingArchive stores captured audio blobs in a MinIO bucket, keyed by
// session, level and item so a clinician can pull any utterance back out.
type RecordingArchive struct {
	Client     *minio.Client
	BucketName string
}

// NewRecordingArchive connects to MinIO and ensures the recordings bucket
// exists.
func NewRecordingArchive(ctx context.Context, endpoint, accessKeyID, secretAccessKey, bucketName string, useSSL bool) (*RecordingArchive, error) {
	if endpoint == "" || accessKeyID == "" || secretAccessKey == "" || bucketName == "" {
		return nil, fmt.Errorf("minio endpoint, access key, secret key and bucket name must all be set")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if MinIO bucket '%s' exists: %w", bucketName, err)
	}
	if !exists {
		log.Printf("MinIO bucket '%s' does not exist. Attempting to create it.", bucketName)
		if err = client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create MinIO bucket '%s': %w", bucketName, err)
		}
	}

	log.Printf("Recording archive ready (bucket '%s').", bucketName)
	return &RecordingArchive{Client: client, BucketName: bucketName}, nil
}

// PutRecording uploads one captured utterance and returns its object key.
// The key embeds session, level and item; a UUID suffix keeps retests of the
// same item from clobbering each other.
func (a *RecordingArchive) PutRecording(ctx context.Context, sessionID string, level, item int, filename string, audio []byte) (string, error) {
	if a == nil || a.Client == nil {
		return "", fmt.Errorf("recording archive not initialized")
	}
	if a.BucketName == "" {
		return "", fmt.Errorf("recording archive bucket name not configured")
	}

	extension := filepath.Ext(filename)
	if extension == "" {
		extension = ".webm"
	}
	objectKey := fmt.Sprintf("%s/level-%d/item-%d-%s%s", sessionID, level, item, uuid.New().String(), extension)

	info, err := a.Client.PutObject(ctx, a.BucketName, objectKey, bytes.NewReader(audio), int64(len(audio)), minio.PutObjectOptions{
		ContentType: contentTypeForExtension(extension),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload recording to MinIO (bucket: %s, object: %s): %w", a.BucketName, objectKey, err)
	}

	log.Printf("Archived recording '%s' (%d bytes, ETag %s).", objectKey, info.Size, info.ETag)
	return objectKey, nil
}

// GetRecordingBytes retrieves an archived recording as a byte slice.
func (a *RecordingArchive) GetRecordingBytes(ctx context.Context, objectKey string) ([]byte, error) {
	if a == nil || a.Client == nil {
		return nil, fmt.Errorf("recording archive not initialized")
	}
	if a.BucketName == "" {
		return nil, fmt.Errorf("recording archive bucket name not configured")
	}

	object, err := a.Client.GetObject(ctx, a.BucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", objectKey, a.BucketName, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object '%s' data: %w", objectKey, err)
	}
	return data, nil
}

// DeleteRecording removes an archived recording.
func (a *RecordingArchive) DeleteRecording(ctx context.Context, objectKey string) error {
	if a == nil || a.Client == nil {
		return fmt.Errorf("recording archive not initialized")
	}
	if err := a.Client.RemoveObject(ctx, a.BucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object '%s' from MinIO bucket '%s': %w", objectKey, a.BucketName, err)
	}
	return nil
}

func contentTypeForExtension(ext string) string {
	switch ext {
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "audio/webm"
	}
}
