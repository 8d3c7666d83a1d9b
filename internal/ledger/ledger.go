// Package ledger keeps a durable local record of the (id, content) pairs
// each ingestion run intended to store. The repair tool reads its pairs from
// here, so a metadata-losing overwrite can be fixed without re-running
// proposition extraction.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/kushwanth-masupalli/QueryVault/pipeline"
)

var (
	bucketPairs = []byte("pairs")
	bucketRuns  = []byte("runs")
)

// Ledger is a bbolt-backed store of intended pairs, keyed per namespace.
type Ledger struct {
	db *bbolt.DB
}

// RunRecord summarizes one ingestion run
type RunRecord struct {
	RunID     string    `json:"run_id"`
	Namespace string    `json:"namespace"`
	Count     int       `json:"count"`
	StartedAt time.Time `json:"started_at"`
}

// Open opens (creating if necessary) the ledger file at path
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketPairs, bucketRuns} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Ledger{db: db}, nil
}

// Close closes the underlying database
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordRun stores the pairs written by an ingestion run and a run summary.
// Pairs are keyed by record id within the namespace, so re-ingesting a
// document updates existing entries in place.
func (l *Ledger) RecordRun(namespace, runID string, pairs []pipeline.RepairPair) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		nsBucket, err := tx.Bucket(bucketPairs).CreateBucketIfNotExists(nsKey(namespace))
		if err != nil {
			return fmt.Errorf("failed to create namespace bucket: %w", err)
		}

		for _, pair := range pairs {
			if err := nsBucket.Put([]byte(pair.ID), []byte(pair.Content)); err != nil {
				return err
			}
		}

		record := RunRecord{
			RunID:     runID,
			Namespace: namespace,
			Count:     len(pairs),
			StartedAt: time.Now().UTC(),
		}
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRuns).Put([]byte(runID), data)
	})
}

// Pairs returns every intended pair recorded for the namespace, ordered by
// the numeric suffix of prop_<n> ids where present
func (l *Ledger) Pairs(namespace string) ([]pipeline.RepairPair, error) {
	var pairs []pipeline.RepairPair

	err := l.db.View(func(tx *bbolt.Tx) error {
		nsBucket := tx.Bucket(bucketPairs).Bucket(nsKey(namespace))
		if nsBucket == nil {
			return nil
		}
		return nsBucket.ForEach(func(k, v []byte) error {
			pairs = append(pairs, pipeline.RepairPair{ID: string(k), Content: string(v)})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(pairs, func(i, j int) bool {
		ni, iOK := propIndex(pairs[i].ID)
		nj, jOK := propIndex(pairs[j].ID)
		if iOK && jOK {
			return ni < nj
		}
		return pairs[i].ID < pairs[j].ID
	})

	return pairs, nil
}

// Runs returns all recorded run summaries
func (l *Ledger) Runs() ([]RunRecord, error) {
	var runs []RunRecord

	err := l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var record RunRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("corrupt run record %s: %w", k, err)
			}
			runs = append(runs, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.Before(runs[j].StartedAt) })
	return runs, nil
}

// nsKey maps the empty namespace to a stable bucket name
func nsKey(namespace string) []byte {
	if namespace == "" {
		return []byte("__default__")
	}
	return []byte(namespace)
}

func propIndex(id string) (int, bool) {
	suffix, ok := strings.CutPrefix(id, "prop_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return n, true
}
