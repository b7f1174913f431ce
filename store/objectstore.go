package store

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/iterator"

	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
)

// ObjectStore persists subscribers as JSON objects, one per subscriber,
// either in a GCS bucket or (when localDir is set) a local directory.
// Suited to single-operator deployments that don't want a database.
type ObjectStore struct {
	client   *storage.Client
	bucket   string
	localDir string
	logger   *slog.Logger
}

// NewObjectStore opens a GCS-backed store. A non-empty localDir bypasses
// GCS entirely and keeps objects on the local filesystem instead.
func NewObjectStore(ctx context.Context, bucket, localDir string, logger *slog.Logger) (*ObjectStore, error) {
	s := &ObjectStore{bucket: bucket, localDir: localDir, logger: logger}
	if localDir != "" {
		if err := os.MkdirAll(localDir, 0o755); err != nil {
			return nil, fmt.Errorf("create local storage directory: %w", err)
		}
		return s, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	s.client = client
	return s, nil
}

// Close releases the GCS client, if any.
func (s *ObjectStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// subscriberKey generates a stable object name from an email address.
// Format: sub-{hash}.json where hash is SHA256 of email (first 16 chars).
func subscriberKey(email string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("sub-%x.json", h[:8])
}

// Save writes a subscriber, overwriting any previous object for the same
// email.
func (s *ObjectStore) Save(ctx context.Context, sub *Subscriber) error {
	key := subscriberKey(sub.Email)
	if sub.ID == "" {
		sub.ID = key
	}
	data, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal subscriber: %w", err)
	}

	if s.localDir != "" {
		path := filepath.Join(s.localDir, key)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write to local storage: %w", err)
		}
		s.logger.Info("subscriber saved to local storage", "path", path, "email", sub.Email)
		return nil
	}

	err = retry.Do(func() error {
		w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
		if _, err := w.Write(data); err != nil {
			w.Close()
			return fmt.Errorf("write to storage: %w", err)
		}
		return w.Close()
	}, retry.Attempts(3), retry.Delay(time.Second), retry.Context(ctx))
	if err != nil {
		return fmt.Errorf("save subscriber: %w", err)
	}
	s.logger.Info("subscriber saved", "key", key, "email", sub.Email)
	return nil
}

// Delete removes a subscriber's object. Missing objects are not an error.
func (s *ObjectStore) Delete(ctx context.Context, email string) error {
	key := subscriberKey(email)

	if s.localDir != "" {
		if err := os.Remove(filepath.Join(s.localDir, key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete from local storage: %w", err)
		}
		return nil
	}

	err := retry.Do(func() error {
		err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return err
	}, retry.Attempts(3), retry.Delay(time.Second), retry.Context(ctx))
	if err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	return nil
}

// GetByEmail loads one subscriber.
func (s *ObjectStore) GetByEmail(ctx context.Context, email string) (*Subscriber, error) {
	return s.load(ctx, subscriberKey(email))
}

func (s *ObjectStore) load(ctx context.Context, key string) (*Subscriber, error) {
	var data []byte

	if s.localDir != "" {
		var err error
		data, err = os.ReadFile(filepath.Join(s.localDir, key))
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("read from local storage: %w", err)
		}
	} else {
		err := retry.Do(func() error {
			r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
			if errors.Is(err, storage.ErrObjectNotExist) {
				return retry.Unrecoverable(err)
			}
			if err != nil {
				return err
			}
			defer r.Close()
			data, err = io.ReadAll(r)
			return err
		}, retry.Attempts(3), retry.Delay(time.Second), retry.Context(ctx))
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("read from storage: %w", err)
		}
	}

	var sub Subscriber
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("unmarshal subscriber: %w", err)
	}
	if sub.ID == "" {
		sub.ID = key
	}
	return &sub, nil
}

// List returns every stored subscriber. Objects that fail to load are
// logged and skipped so one corrupt record doesn't take out fan-out.
func (s *ObjectStore) List(ctx context.Context) ([]*Subscriber, error) {
	var subs []*Subscriber

	if s.localDir != "" {
		entries, err := os.ReadDir(s.localDir)
		if err != nil {
			return nil, fmt.Errorf("read local storage directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), "sub-") || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			sub, err := s.load(ctx, entry.Name())
			if err != nil {
				s.logger.Warn("failed to load subscriber", "file", entry.Name(), "error", err)
				continue
			}
			subs = append(subs, sub)
		}
		return subs, nil
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: "sub-"})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate storage: %w", err)
		}
		sub, err := s.load(ctx, attrs.Name)
		if err != nil {
			s.logger.Warn("failed to load subscriber", "key", attrs.Name, "error", err)
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// ListActive filters List down to deliverable subscribers.
func (s *ObjectStore) ListActive(ctx context.Context) ([]*Subscriber, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, sub := range all {
		if sub.Deliverable() {
			active = append(active, sub)
		}
	}
	return active, nil
}

// SetLastSeenStatus rewrites the subscriber's object with the new status.
func (s *ObjectStore) SetLastSeenStatus(ctx context.Context, id string, status watcher.Status) error {
	sub, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if sub.LastSeenStatus == status {
		return nil
	}
	sub.LastSeenStatus = status
	return s.Save(ctx, sub)
}
