// Package gcs provides a record store backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

const contentType = "application/json"

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	Prefix string
}

// Store keeps one object per record under Prefix in Bucket.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ podcast.Store = (*Store)(nil)

// New creates a GCS-backed record store.
func New(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
	}, nil
}

// List returns record names directly under the prefix, in GCS lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	query := &storage.Query{Prefix: s.prefix, Delimiter: "/"}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, fmt.Errorf("select attrs: %w", err)
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		name := strings.TrimPrefix(attrs.Name, s.prefix)
		if name == "" || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Read downloads one record.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.ObjectName(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", podcast.ErrNotFound, name)
		}
		return nil, fmt.Errorf("open object %s: %w", name, err)
	}
	defer r.Close() //nolint:errcheck // read-only handle
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", name, err)
	}
	return data, nil
}

// Write uploads name unconditionally.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	return s.put(ctx, s.client.Bucket(s.bucket).Object(s.ObjectName(name)), name, data)
}

// Create uploads name with a does-not-exist precondition.
func (s *Store) Create(ctx context.Context, name string, data []byte) error {
	obj := s.client.Bucket(s.bucket).Object(s.ObjectName(name)).If(storage.Conditions{DoesNotExist: true})
	err := s.put(ctx, obj, name, data)
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("%w: %s", podcast.ErrExists, name)
	}
	return err
}

func (s *Store) put(ctx context.Context, obj *storage.ObjectHandle, name string, data []byte) error {
	if strings.TrimSpace(name) == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid record name %q", name)
	}
	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object %s: %w (close writer: %v)", name, err, closeErr)
		}
		return fmt.Errorf("write object %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", name, err)
	}
	return nil
}

// ObjectName maps a record name to its object key.
func (s *Store) ObjectName(name string) string {
	return s.prefix + name
}

// URI returns the gs:// location of a record.
func (s *Store) URI(name string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.ObjectName(name))
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return path.Clean(prefix) + "/"
}
