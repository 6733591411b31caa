// Package store persists Queue, Oracle, Aggregator, and QuoteVerifier
// state in a single bbolt key-value file: one bucket per object class,
// opened under a per-deployment data directory, every mutation wrapped
// in its own bbolt write transaction so a mid-pipeline structural error
// aborts with no partial state.
package store

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"oraclecore.dev/verifier/aggregator"
	"oraclecore.dev/verifier/oracle"
	"oraclecore.dev/verifier/queue"
	"oraclecore.dev/verifier/quoteverifier"
)

var (
	bucketQueues         = []byte("queues_by_id")
	bucketOracles        = []byte("oracles_by_id")
	bucketAggregators    = []byte("aggregators_by_id")
	bucketQuoteVerifiers = []byte("quoteverifiers_by_id")
	bucketOverrideAudit  = []byte("override_audit")
	bucketState          = []byte("state")
)

// stateKey is the singleton key the deployment State is stored under.
var stateKey = []byte("deployment")

// DB is a single bbolt-backed store for one deployment's verifier state.
type DB struct {
	dir string
	db  *bolt.DB
}

// Open opens (creating if absent) the kv.db bbolt file under datadir.
func Open(datadir string) (*DB, error) {
	if datadir == "" {
		return nil, errors.New("store: datadir required")
	}
	if err := ensureDir(datadir); err != nil {
		return nil, err
	}

	path := filepath.Join(datadir, "kv.db")
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "store: open bbolt")
	}

	d := &DB{dir: datadir, db: bdb}
	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketQueues, bucketOracles, bucketAggregators, bucketQuoteVerifiers, bucketOverrideAudit, bucketState} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return errors.Wrapf(err, "store: create bucket %s", string(b))
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) Dir() string { return d.dir }

// PutQueue persists q under its id.
func (d *DB) PutQueue(q *queue.Queue) error {
	b, err := marshal(encodeQueue(q))
	if err != nil {
		return err
	}
	id := q.ID()
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQueues).Put(id[:], b)
	})
}

// GetQueue loads the queue persisted under id, if any.
func (d *DB) GetQueue(id [32]byte) (*queue.Queue, bool, error) {
	var dto queueDTO
	found := false
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketQueues).Get(id[:])
		if v == nil {
			return nil
		}
		found = true
		return unmarshal(v, &dto)
	})
	if err != nil || !found {
		return nil, found, err
	}
	q, err := decodeQueue(dto)
	return q, true, err
}

// PutOracle persists o under its id.
func (d *DB) PutOracle(o *oracle.Oracle) error {
	b, err := marshal(encodeOracle(o))
	if err != nil {
		return err
	}
	id := o.ID()
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOracles).Put(id[:], b)
	})
}

// GetOracle loads the oracle persisted under id, if any.
func (d *DB) GetOracle(id [32]byte) (*oracle.Oracle, bool, error) {
	var dto oracleDTO
	found := false
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketOracles).Get(id[:])
		if v == nil {
			return nil
		}
		found = true
		return unmarshal(v, &dto)
	})
	if err != nil || !found {
		return nil, found, err
	}
	o, err := decodeOracle(dto)
	return o, true, err
}

// PutAggregator persists a under its id.
func (d *DB) PutAggregator(a *aggregator.Aggregator) error {
	dto, err := encodeAggregator(a)
	if err != nil {
		return err
	}
	b, err := marshal(dto)
	if err != nil {
		return err
	}
	id := a.ID()
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAggregators).Put(id[:], b)
	})
}

// GetAggregator loads the aggregator persisted under id, if any.
func (d *DB) GetAggregator(id [32]byte) (*aggregator.Aggregator, bool, error) {
	var dto aggregatorDTO
	found := false
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAggregators).Get(id[:])
		if v == nil {
			return nil
		}
		found = true
		return unmarshal(v, &dto)
	})
	if err != nil || !found {
		return nil, found, err
	}
	a, err := decodeAggregator(dto)
	return a, true, err
}

// PutQuoteVerifier persists v under its id.
func (d *DB) PutQuoteVerifier(v *quoteverifier.QuoteVerifier) error {
	b, err := marshal(encodeQuoteVerifier(v))
	if err != nil {
		return err
	}
	id := v.ID()
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQuoteVerifiers).Put(id[:], b)
	})
}

// GetQuoteVerifier loads the quote verifier persisted under id, if any.
func (d *DB) GetQuoteVerifier(id [32]byte) (*quoteverifier.QuoteVerifier, bool, error) {
	var dto quoteVerifierDTO
	found := false
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketQuoteVerifiers).Get(id[:])
		if v == nil {
			return nil
		}
		found = true
		return unmarshal(v, &dto)
	})
	if err != nil || !found {
		return nil, found, err
	}
	v, err := decodeQuoteVerifier(dto)
	return v, true, err
}

// DeleteQuoteVerifier removes the verifier persisted under id, if any.
func (d *DB) DeleteQuoteVerifier(id [32]byte) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQuoteVerifiers).Delete(id[:])
	})
}

// State is the singleton deployment record: which queue is the oracle
// queue, which is the guardian queue, and the package id consumers
// resolve the verifier through.
type State struct {
	OracleQueueID     [32]byte `json:"oracle_queue"`
	GuardianQueueID   [32]byte `json:"guardian_queue"`
	OnDemandPackageID [32]byte `json:"on_demand_package_id"`
}

// PutState stores the deployment State singleton.
func (d *DB) PutState(s State) error {
	b, err := marshal(s)
	if err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketState).Put(stateKey, b)
	})
}

// GetState loads the deployment State singleton, if one has been stored.
func (d *DB) GetState() (State, bool, error) {
	var s State
	found := false
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketState).Get(stateKey)
		if v == nil {
			return nil
		}
		found = true
		return unmarshal(v, &s)
	})
	return s, found, err
}

// OverrideAuditEntry is one recorded re-attestation, keyed by
// queue_id||oracle_id||applied_at_ms so the bucket orders entries
// chronologically per oracle.
type OverrideAuditEntry struct {
	QueueID     [32]byte `json:"queue_id"`
	OracleID    [32]byte `json:"oracle_id"`
	AppliedAtMs uint64   `json:"applied_at_ms"`
	NewExpiryMs uint64   `json:"new_expiration_ms"`
}

// RecordOverride appends an audit entry for a queue.OverrideOracle call.
func (d *DB) RecordOverride(e OverrideAuditEntry) error {
	b, err := marshal(e)
	if err != nil {
		return err
	}
	key := auditKey(e.QueueID, e.OracleID, e.AppliedAtMs)
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOverrideAudit).Put(key, b)
	})
}

// ListOverrides returns every recorded override for oracleID on queueID,
// oldest first (bbolt iterates bucket keys in byte-sorted order, and the
// key embeds appliedAtMs big-endian for that purpose).
func (d *DB) ListOverrides(queueID, oracleID [32]byte) ([]OverrideAuditEntry, error) {
	prefix := auditPrefix(queueID, oracleID)
	var out []OverrideAuditEntry
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketOverrideAudit).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var e OverrideAuditEntry
			if err := unmarshal(v, &e); err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func auditPrefix(queueID, oracleID [32]byte) []byte {
	out := make([]byte, 0, 64)
	out = append(out, queueID[:]...)
	out = append(out, oracleID[:]...)
	return out
}

func auditKey(queueID, oracleID [32]byte, appliedAtMs uint64) []byte {
	out := auditPrefix(queueID, oracleID)
	var tmp [8]byte
	for i := 0; i < 8; i++ {
		tmp[i] = byte(appliedAtMs >> (8 * (7 - i)))
	}
	return append(out, tmp[:]...)
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
