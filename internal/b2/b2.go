// Package b2 stores backup documents in a Backblaze B2 bucket.
package b2

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"
)

// Storage writes objects under a key prefix in one bucket.
type Storage struct {
	Client *b2.Client
	Bucket *b2.Bucket
	Prefix string
}

// Init authorizes against B2 and resolves the bucket.
func Init(ctx context.Context, keyID, appKey, bucketName, prefix string) (*Storage, error) {
	client, err := b2.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create b2 client")
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bucket")
	}
	return &Storage{Client: client, Bucket: bucket, Prefix: prefix}, nil
}

// Name identifies the target in logs and metrics.
func (s *Storage) Name() string { return "b2" }

// UploadBackup writes data as <prefix>/<filename> and returns the object URL.
func (s *Storage) UploadBackup(ctx context.Context, filename string, data []byte) (string, error) {
	obj := s.Bucket.Object(path.Join(s.Prefix, filename))
	w := obj.NewWriter(ctx)

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return "", errors.Wrap(err, "failed to write object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close writer")
	}
	return obj.URL(), nil
}

// FetchBackup reads a previously uploaded backup back.
func (s *Storage) FetchBackup(ctx context.Context, filename string) ([]byte, error) {
	r := s.Bucket.Object(path.Join(s.Prefix, filename)).NewReader(ctx)
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", filename)
	}
	return data, nil
}
