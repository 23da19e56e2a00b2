// internal/store/boltstore_maintenance.go - stats and compaction
package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

// Stats provides information about database size and health.
type Stats struct {
	TotalHosts       int   `json:"total_hosts"`
	TotalStatuses    int   `json:"total_statuses"`
	TotalReports     int   `json:"total_reports"`
	TotalComparisons int   `json:"total_comparisons"`
	TotalArtifacts   int   `json:"total_artifacts"`
	DatabaseSize     int64 `json:"database_size_bytes"`
}

func (s *BoltStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.view(func(tx *bbolt.Tx) error {
		stats.TotalHosts = tx.Bucket(HostsBucket).Stats().KeyN
		stats.TotalStatuses = tx.Bucket(StatusBucket).Stats().KeyN
		stats.TotalReports = tx.Bucket(ReportsBucket).Stats().KeyN
		stats.TotalComparisons = tx.Bucket(ComparisonsBucket).Stats().KeyN
		stats.TotalArtifacts = tx.Bucket(ArtifactsBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get database stats: %w", err)
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.DatabaseSize = fileInfo.Size()
	}

	return stats, nil
}

// Compact copies all live data into a fresh database file and swaps it in.
// Bolt never shrinks its file in place; reclaiming space from deleted report
// artifacts requires a rewrite.
//
// The handle lock is held in write mode for the whole run: the swap replaces
// s.db, and a transaction committed between the copy and the swap would be
// lost otherwise. Readers and writers queue behind it until the new file is
// open.
func (s *BoltStore) Compact(ctx context.Context) error {
	logrus.Info("Starting database compaction")

	s.mu.Lock()
	defer s.mu.Unlock()

	tmpPath := s.path + ".compact.tmp"

	newDB, err := bbolt.Open(tmpPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	cleanup := func() {
		newDB.Close()
		os.Remove(tmpPath)
	}

	buckets := [][]byte{HostsBucket, StatusBucket, CredentialsBucket, ReportsBucket, ComparisonsBucket, SnapshotsBucket, ArtifactsBucket}

	err = newDB.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range buckets {
			if _, err := tx.CreateBucket(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		cleanup()
		return fmt.Errorf("failed to initialize compact database: %w", err)
	}

	err = s.db.View(func(oldTx *bbolt.Tx) error {
		return newDB.Update(func(newTx *bbolt.Tx) error {
			for _, bucketName := range buckets {
				oldBucket := oldTx.Bucket(bucketName)
				newBucket := newTx.Bucket(bucketName)

				c := oldBucket.Cursor()
				for k, v := c.First(); k != nil; k, v = c.Next() {
					if err := newBucket.Put(copyBytes(k), copyBytes(v)); err != nil {
						return fmt.Errorf("failed to copy data: %w", err)
					}
				}
			}
			return nil
		})
	})
	if err != nil {
		cleanup()
		return fmt.Errorf("failed to copy data to compact database: %w", err)
	}

	newDB.Close()
	s.db.Close()

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace database: %w", err)
	}

	s.db, err = bbolt.Open(s.path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to reopen compacted database: %w", err)
	}

	logrus.Info("Database compaction completed")
	return nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	copied := make([]byte, len(b))
	copy(copied, b)
	return copied
}
