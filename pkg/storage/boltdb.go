package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cuemby/dispatch/pkg/events"
	bolt "go.etcd.io/bbolt"
)

var bucketJobs = []byte("jobs")

// BoltStore implements Store using a bbolt-backed audit log, one nested
// bucket per jobname, events keyed by a per-job sequence number in arrival
// order.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) a bbolt database under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "dispatch-events.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketJobs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create jobs bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// AppendEvent durably records ev under jobname's nested bucket.
func (s *BoltStore) AppendEvent(jobname string, ev *events.Event) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)
		b, err := jobs.CreateBucketIfNotExists([]byte(jobname))
		if err != nil {
			return fmt.Errorf("failed to create bucket for job %s: %w", jobname, err)
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
}

// ListEvents returns all recorded events for jobname, oldest first.
func (s *BoltStore) ListEvents(jobname string) ([]*events.Event, error) {
	var out []*events.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)
		b := jobs.Bucket([]byte(jobname))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, data []byte) error {
			var ev events.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				return err
			}
			out = append(out, &ev)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events for job %s: %w", jobname, err)
	}
	return out, nil
}

// DropJob deletes all recorded events for jobname.
func (s *BoltStore) DropJob(jobname string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)
		if jobs.Bucket([]byte(jobname)) == nil {
			return nil
		}
		return jobs.DeleteBucket([]byte(jobname))
	})
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
