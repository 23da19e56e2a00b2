// internal/store/boltstore_reports.go - report and comparison job persistence
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

func (s *BoltStore) CreateReport(ctx context.Context, report *Report) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	if report.Status == "" {
		report.Status = JobGenerating
	}

	return s.update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		return tx.Bucket(ReportsBucket).Put([]byte(report.ID), data)
	})
}

func (s *BoltStore) GetReport(ctx context.Context, id string) (*Report, error) {
	var report Report

	err := s.view(func(tx *bbolt.Tx) error {
		v := tx.Bucket(ReportsBucket).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("report %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(v, &report)
	})

	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *BoltStore) GetReports(ctx context.Context) ([]Report, error) {
	var reports []Report

	err := s.view(func(tx *bbolt.Tx) error {
		return tx.Bucket(ReportsBucket).ForEach(func(k, v []byte) error {
			var report Report
			if err := json.Unmarshal(v, &report); err != nil {
				return fmt.Errorf("failed to unmarshal report %s: %w", k, err)
			}
			reports = append(reports, report)
			return nil
		})
	})

	return reports, err
}

// CompleteReport performs the terminal generating -> completed transition,
// storing the rendered artifact and the snapshot used for comparisons in the
// same transaction. Returns ErrNotFound if the record was deleted while the
// job was running, so the background task can discard its result.
func (s *BoltStore) CompleteReport(ctx context.Context, id string, artifact []byte, snapshot []HostStatus) error {
	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ReportsBucket)
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("report %s: %w", id, ErrNotFound)
		}

		var report Report
		if err := json.Unmarshal(v, &report); err != nil {
			return fmt.Errorf("failed to unmarshal report %s: %w", id, err)
		}
		if report.Status != JobGenerating {
			return fmt.Errorf("report %s is %s: %w", id, report.Status, ErrConflict)
		}

		now := time.Now()
		report.Status = JobCompleted
		report.CompletedAt = &now

		data, err := json.Marshal(&report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		if err := b.Put([]byte(id), data); err != nil {
			return err
		}

		if err := tx.Bucket(ArtifactsBucket).Put([]byte(id), artifact); err != nil {
			return err
		}

		snap, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		return tx.Bucket(SnapshotsBucket).Put([]byte(id), snap)
	})
}

func (s *BoltStore) FailReport(ctx context.Context, id, message string) error {
	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ReportsBucket)
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("report %s: %w", id, ErrNotFound)
		}

		var report Report
		if err := json.Unmarshal(v, &report); err != nil {
			return fmt.Errorf("failed to unmarshal report %s: %w", id, err)
		}
		if report.Status != JobGenerating {
			return fmt.Errorf("report %s is %s: %w", id, report.Status, ErrConflict)
		}

		now := time.Now()
		report.Status = JobFailed
		report.CompletedAt = &now
		report.Error = message

		data, err := json.Marshal(&report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		return b.Put([]byte(id), data)
	})
}

func (s *BoltStore) DeleteReport(ctx context.Context, id string) error {
	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ReportsBucket)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("report %s: %w", id, ErrNotFound)
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(ArtifactsBucket).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(SnapshotsBucket).Delete([]byte(id))
	})
}

func (s *BoltStore) GetReportArtifact(ctx context.Context, id string) ([]byte, error) {
	var artifact []byte

	err := s.view(func(tx *bbolt.Tx) error {
		v := tx.Bucket(ArtifactsBucket).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("artifact for %s: %w", id, ErrNotFound)
		}
		artifact = append([]byte(nil), v...)
		return nil
	})

	if err != nil {
		return nil, err
	}
	return artifact, nil
}

func (s *BoltStore) GetReportSnapshot(ctx context.Context, id string) ([]HostStatus, error) {
	var snapshot []HostStatus

	err := s.view(func(tx *bbolt.Tx) error {
		v := tx.Bucket(SnapshotsBucket).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("snapshot for %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(v, &snapshot)
	})

	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *BoltStore) CreateComparison(ctx context.Context, cmp *Comparison) error {
	if cmp.ID == "" {
		cmp.ID = uuid.New().String()
	}
	if cmp.CreatedAt.IsZero() {
		cmp.CreatedAt = time.Now()
	}
	if cmp.Status == "" {
		cmp.Status = JobGenerating
	}

	return s.update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(cmp)
		if err != nil {
			return fmt.Errorf("failed to marshal comparison: %w", err)
		}
		return tx.Bucket(ComparisonsBucket).Put([]byte(cmp.ID), data)
	})
}

func (s *BoltStore) GetComparison(ctx context.Context, id string) (*Comparison, error) {
	var cmp Comparison

	err := s.view(func(tx *bbolt.Tx) error {
		v := tx.Bucket(ComparisonsBucket).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("comparison %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(v, &cmp)
	})

	if err != nil {
		return nil, err
	}
	return &cmp, nil
}

func (s *BoltStore) GetComparisons(ctx context.Context) ([]Comparison, error) {
	var comparisons []Comparison

	err := s.view(func(tx *bbolt.Tx) error {
		return tx.Bucket(ComparisonsBucket).ForEach(func(k, v []byte) error {
			var cmp Comparison
			if err := json.Unmarshal(v, &cmp); err != nil {
				return fmt.Errorf("failed to unmarshal comparison %s: %w", k, err)
			}
			comparisons = append(comparisons, cmp)
			return nil
		})
	})

	return comparisons, err
}

func (s *BoltStore) CompleteComparison(ctx context.Context, id string, artifact []byte, diff *ComparisonDiff, summary *ComparisonSummary) error {
	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ComparisonsBucket)
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("comparison %s: %w", id, ErrNotFound)
		}

		var cmp Comparison
		if err := json.Unmarshal(v, &cmp); err != nil {
			return fmt.Errorf("failed to unmarshal comparison %s: %w", id, err)
		}
		if cmp.Status != JobGenerating {
			return fmt.Errorf("comparison %s is %s: %w", id, cmp.Status, ErrConflict)
		}

		now := time.Now()
		cmp.Status = JobCompleted
		cmp.CompletedAt = &now
		cmp.Diff = diff
		cmp.Summary = summary

		data, err := json.Marshal(&cmp)
		if err != nil {
			return fmt.Errorf("failed to marshal comparison: %w", err)
		}
		if err := b.Put([]byte(id), data); err != nil {
			return err
		}

		return tx.Bucket(ArtifactsBucket).Put([]byte(id), artifact)
	})
}

func (s *BoltStore) FailComparison(ctx context.Context, id, message string) error {
	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ComparisonsBucket)
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("comparison %s: %w", id, ErrNotFound)
		}

		var cmp Comparison
		if err := json.Unmarshal(v, &cmp); err != nil {
			return fmt.Errorf("failed to unmarshal comparison %s: %w", id, err)
		}
		if cmp.Status != JobGenerating {
			return fmt.Errorf("comparison %s is %s: %w", id, cmp.Status, ErrConflict)
		}

		now := time.Now()
		cmp.Status = JobFailed
		cmp.CompletedAt = &now
		cmp.Error = message

		data, err := json.Marshal(&cmp)
		if err != nil {
			return fmt.Errorf("failed to marshal comparison: %w", err)
		}
		return b.Put([]byte(id), data)
	})
}

func (s *BoltStore) DeleteComparison(ctx context.Context, id string) error {
	return s.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ComparisonsBucket)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("comparison %s: %w", id, ErrNotFound)
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(ArtifactsBucket).Delete([]byte(id))
	})
}

func (s *BoltStore) GetComparisonArtifact(ctx context.Context, id string) ([]byte, error) {
	return s.GetReportArtifact(ctx, id)
}
