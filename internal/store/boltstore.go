// internal/store/boltstore.go - BoltDB implementation of the Store contract
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	HostsBucket       = []byte("hosts")
	StatusBucket      = []byte("status")
	CredentialsBucket = []byte("credentials")
	ReportsBucket     = []byte("reports")
	ComparisonsBucket = []byte("comparisons")
	SnapshotsBucket   = []byte("snapshots")
	ArtifactsBucket   = []byte("artifacts")
)

// BoltStore persists all collections in a single BoltDB file. Bolt gives one
// writer at a time and snapshot-isolated readers, which is exactly the
// exclusive-lock read/modify/write discipline callers rely on.
//
// mu guards the db handle itself: Compact closes and reopens the file, so
// every transaction takes a read lock and the swap takes the write lock.
type BoltStore struct {
	mu   sync.RWMutex
	db   *bbolt.DB
	path string
}

func (s *BoltStore) view(fn func(tx *bbolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.View(fn)
}

func (s *BoltStore) update(fn func(tx *bbolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Update(fn)
}

func NewBoltStore(path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	store := &BoltStore{db: db, path: path}

	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

func (s *BoltStore) initBuckets() error {
	return s.update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{HostsBucket, StatusBucket, CredentialsBucket, ReportsBucket, ComparisonsBucket, SnapshotsBucket, ArtifactsBucket}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

// envKey scopes a record key to its environment within a flat bucket.
func envKey(environment, id string) []byte {
	return []byte(environment + "/" + id)
}

func (s *BoltStore) GetHosts(ctx context.Context, environment string) ([]Host, error) {
	var hosts []Host

	err := s.view(func(tx *bbolt.Tx) error {
		c := tx.Bucket(HostsBucket).Cursor()
		prefix := []byte(environment + "/")

		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var host Host
			if err := json.Unmarshal(v, &host); err != nil {
				return fmt.Errorf("failed to unmarshal host %s: %w", k, err)
			}
			hosts = append(hosts, host)
		}
		return nil
	})

	return hosts, err
}

func (s *BoltStore) GetHost(ctx context.Context, environment, id string) (*Host, error) {
	var host Host

	err := s.view(func(tx *bbolt.Tx) error {
		v := tx.Bucket(HostsBucket).Get(envKey(environment, id))
		if v == nil {
			return fmt.Errorf("host %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(v, &host)
	})

	if err != nil {
		return nil, err
	}
	return &host, nil
}

func (s *BoltStore) CreateHost(ctx context.Context, host *Host) error {
	if host.ID == "" {
		host.ID = uuid.New().String()
	}
	if host.AddedAt.IsZero() {
		host.AddedAt = time.Now()
	}

	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(HostsBucket)

		// host+port+instance must be unique within an environment
		c := b.Cursor()
		prefix := []byte(host.Environment + "/")
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var existing Host
			if err := json.Unmarshal(v, &existing); err != nil {
				continue
			}
			if existing.Key() == host.Key() {
				return fmt.Errorf("host %s: %w", host.Key(), ErrDuplicate)
			}
		}

		data, err := json.Marshal(host)
		if err != nil {
			return fmt.Errorf("failed to marshal host: %w", err)
		}

		return b.Put(envKey(host.Environment, host.ID), data)
	})
}

func (s *BoltStore) DeleteHost(ctx context.Context, environment, id string) error {
	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(HostsBucket)
		key := envKey(environment, id)
		if b.Get(key) == nil {
			return fmt.Errorf("host %s: %w", id, ErrNotFound)
		}
		if err := b.Delete(key); err != nil {
			return err
		}
		// Status entries do not outlive their host.
		return tx.Bucket(StatusBucket).Delete(key)
	})
}

func (s *BoltStore) GetStatus(ctx context.Context, environment string) (map[string]CheckResult, error) {
	results := make(map[string]CheckResult)

	err := s.view(func(tx *bbolt.Tx) error {
		c := tx.Bucket(StatusBucket).Cursor()
		prefix := []byte(environment + "/")

		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var result CheckResult
			if err := json.Unmarshal(v, &result); err != nil {
				continue // skip malformed entries
			}
			results[strings.TrimPrefix(string(k), string(prefix))] = result
		}
		return nil
	})

	return results, err
}

func (s *BoltStore) GetHostStatus(ctx context.Context, environment, hostID string) (*CheckResult, error) {
	var result CheckResult

	err := s.view(func(tx *bbolt.Tx) error {
		v := tx.Bucket(StatusBucket).Get(envKey(environment, hostID))
		if v == nil {
			return fmt.Errorf("status for host %s: %w", hostID, ErrNotFound)
		}
		return json.Unmarshal(v, &result)
	})

	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *BoltStore) UpdateStatus(ctx context.Context, environment, hostID string, result CheckResult) error {
	return s.update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal check result: %w", err)
		}
		return tx.Bucket(StatusBucket).Put(envKey(environment, hostID), data)
	})
}

func (s *BoltStore) UpdateStatusBatch(ctx context.Context, environment string, results map[string]CheckResult) error {
	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(StatusBucket)
		for hostID, result := range results {
			data, err := json.Marshal(result)
			if err != nil {
				return fmt.Errorf("failed to marshal check result for %s: %w", hostID, err)
			}
			if err := b.Put(envKey(environment, hostID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) GetCredentials(ctx context.Context, environment string) (*Credentials, error) {
	var creds Credentials

	err := s.view(func(tx *bbolt.Tx) error {
		v := tx.Bucket(CredentialsBucket).Get([]byte(environment))
		if v == nil {
			return fmt.Errorf("credentials for %s: %w", environment, ErrNotFound)
		}
		return json.Unmarshal(v, &creds)
	})

	if err != nil {
		return nil, err
	}
	return &creds, nil
}

func (s *BoltStore) StoreCredentials(ctx context.Context, environment string, creds Credentials) error {
	return s.update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(creds)
		if err != nil {
			return fmt.Errorf("failed to marshal credentials: %w", err)
		}
		return tx.Bucket(CredentialsBucket).Put([]byte(environment), data)
	})
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
