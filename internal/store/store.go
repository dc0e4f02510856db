// Package store persists small records across restarts, one namespace per
// kind of record.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Namespaces.
const (
	GroupNS   = "groups"
	PatternNS = "patterns"
)

// ErrNotFound reports a missing key. It is a miss, not a failure.
var ErrNotFound = errors.New("store: not found")

// KV is the raw namespaced byte store.
type KV interface {
	Get(ns, key string) ([]byte, error)
	Put(ns, key string, val []byte) error
}

// namespaces serializes access per namespace.
type namespaces struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (n *namespaces) lock(ns string) func() {
	n.mu.Lock()
	if n.locks == nil {
		n.locks = map[string]*sync.Mutex{}
	}
	l, ok := n.locks[ns]
	if !ok {
		l = &sync.Mutex{}
		n.locks[ns] = l
	}
	n.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Bolt is a KV backed by a bbolt file, one bucket per namespace.
type Bolt struct {
	ns namespaces
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, ns := range []string{GroupNS, PatternNS} {
			if _, err := tx.CreateBucketIfNotExists([]byte(ns)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init store %s: %w", path, err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(ns, key string) ([]byte, error) {
	defer b.ns.lock(ns)()
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bk := tx.Bucket([]byte(ns))
		if bk == nil {
			return ErrNotFound
		}
		v := bk.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (b *Bolt) Put(ns, key string, val []byte) error {
	defer b.ns.lock(ns)()
	return b.db.Update(func(tx *bolt.Tx) error {
		bk, err := tx.CreateBucketIfNotExists([]byte(ns))
		if err != nil {
			return err
		}
		return bk.Put([]byte(key), val)
	})
}

// Path is the database file.
func (b *Bolt) Path() string { return b.db.Path() }

func (b *Bolt) Close() error { return b.db.Close() }

// Memory is a KV that lives only as long as the process.
type Memory struct {
	ns   namespaces
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: map[string]map[string][]byte{}}
}

func (m *Memory) Get(ns, key string) ([]byte, error) {
	defer m.ns.lock(ns)()
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[ns][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(ns, key string, val []byte) error {
	defer m.ns.lock(ns)()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[ns] == nil {
		m.data[ns] = map[string][]byte{}
	}
	m.data[ns][key] = append([]byte(nil), val...)
	return nil
}
