package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrObjectNotFound is returned when a stored file is missing.
var ErrObjectNotFound = errors.New("recording file not found")

// ObjectStore is the storage backend for recording files.
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (*ObjectInfo, error)
	Get(ctx context.Context, name string) ([]byte, *ObjectInfo, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// ObjectInfo is metadata about a stored object.
type ObjectInfo struct {
	Name        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// JetStreamStore implements ObjectStore on a NATS JetStream object bucket.
type JetStreamStore struct {
	conn   *nats.Conn
	store  jetstream.ObjectStore
	bucket string
}

// NewJetStreamStore connects to NATS and binds (or creates) the bucket.
func NewJetStreamStore(ctx context.Context, natsURL, bucket string) (*JetStreamStore, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := js.ObjectStore(ctx, bucket)
	if err != nil {
		store, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
			Bucket:      bucket,
			Description: "meeting recordings",
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create object store bucket: %w", err)
		}
	}

	return &JetStreamStore{conn: conn, store: store, bucket: bucket}, nil
}

// Put stores an object.
func (s *JetStreamStore) Put(ctx context.Context, name string, data []byte, contentType string) (*ObjectInfo, error) {
	meta := jetstream.ObjectMeta{
		Name:    name,
		Headers: nats.Header{"Content-Type": []string{contentType}},
	}
	info, err := s.store.Put(ctx, meta, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("object put failed: %w", err)
	}
	return &ObjectInfo{
		Name:        info.Name,
		Size:        int64(info.Size),
		ContentType: contentType,
		ModTime:     info.ModTime,
	}, nil
}

// Get retrieves an object and its metadata.
func (s *JetStreamStore) Get(ctx context.Context, name string) ([]byte, *ObjectInfo, error) {
	result, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("object get failed: %w", err)
	}
	defer result.Close()

	data, err := io.ReadAll(result)
	if err != nil {
		return nil, nil, fmt.Errorf("object read failed: %w", err)
	}

	info, err := result.Info()
	if err != nil {
		return nil, nil, fmt.Errorf("object info failed: %w", err)
	}

	contentType := "application/octet-stream"
	if info.Headers != nil {
		if ct := info.Headers.Get("Content-Type"); ct != "" {
			contentType = ct
		}
	}

	return data, &ObjectInfo{
		Name:        info.Name,
		Size:        int64(info.Size),
		ContentType: contentType,
		ModTime:     info.ModTime,
	}, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *JetStreamStore) Delete(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil
		}
		return fmt.Errorf("object delete failed: %w", err)
	}
	return nil
}

// Close closes the NATS connection.
func (s *JetStreamStore) Close() error {
	s.conn.Close()
	return nil
}

// DirStore implements ObjectStore on a local directory. It is the fallback
// when no NATS URL is configured and doubles as the test backend.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Put stores an object as a file.
func (s *DirStore) Put(_ context.Context, name string, data []byte, contentType string) (*ObjectInfo, error) {
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("file write failed: %w", err)
	}
	return &ObjectInfo{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		ModTime:     time.Now(),
	}, nil
}

// Get reads an object back.
func (s *DirStore) Get(_ context.Context, name string) ([]byte, *ObjectInfo, error) {
	path := filepath.Join(s.dir, filepath.Base(name))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("file read failed: %w", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("file stat failed: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return data, &ObjectInfo{
		Name:        name,
		Size:        stat.Size(),
		ContentType: contentType,
		ModTime:     stat.ModTime(),
	}, nil
}

// Delete removes an object file. Missing files are not an error.
func (s *DirStore) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("file delete failed: %w", err)
	}
	return nil
}

// Close is a no-op for directory storage.
func (s *DirStore) Close() error {
	return nil
}
