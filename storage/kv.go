// Package storage implements a small embedded KV-store contract on
// top of github.com/syndtr/goleveldb. The accounts tree and the
// chain-data store each own a disjoint key range (accountstree/* for
// the tree; chaindata/* and head for the chain-data store) within one
// shared database. A block commit writes the chain data and head
// pointer in one Tx; accounts-tree nodes are written with KV.Put and
// are not part of that batch.
package storage

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
)

// ErrTxBusy is returned by BeginTx when a transaction is already open;
// the KV store itself is single-writer just like the Accounts tree it
// backs.
var ErrTxBusy = errors.New("storage: a transaction is already open")

// KV is the external KV-store contract consumed by AccountsTree and
// ChainDataStore.
type KV interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	BeginTx() (Tx, error)
}

// Tx is a scoped, atomic batch of writes over a KV.
type Tx interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
	Abort() error
}

// LevelDB adapts a *leveldb.DB to the KV contract.
type LevelDB struct {
	db     *leveldb.DB
	txOpen bool
}

// NewLevelDB opens (creating if absent) a LevelDB-backed KV store at
// dir.
func NewLevelDB(dir string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Close releases the underlying database handle.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

func (l *LevelDB) Get(key []byte) ([]byte, bool, error) {
	v, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (l *LevelDB) Put(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDB) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

// BeginTx opens a batch-backed transaction. The LevelDB handle itself
// enforces single-writer semantics: a second BeginTx before Commit or
// Abort fails with ErrTxBusy, matching the AccountsTree's own
// single-open-transaction invariant.
func (l *LevelDB) BeginTx() (Tx, error) {
	if l.txOpen {
		return nil, ErrTxBusy
	}
	l.txOpen = true
	return &levelDBTx{parent: l, batch: new(leveldb.Batch)}, nil
}

type levelDBTx struct {
	parent  *LevelDB
	batch   *leveldb.Batch
	deletes map[string]bool
	writes  map[string][]byte
}

func (t *levelDBTx) Get(key []byte) ([]byte, bool, error) {
	if t.deletes != nil && t.deletes[string(key)] {
		return nil, false, nil
	}
	if t.writes != nil {
		if v, ok := t.writes[string(key)]; ok {
			return v, true, nil
		}
	}
	return t.parent.Get(key)
}

func (t *levelDBTx) Put(key, value []byte) error {
	t.batch.Put(key, value)
	if t.writes == nil {
		t.writes = make(map[string][]byte)
	}
	t.writes[string(key)] = value
	if t.deletes != nil {
		delete(t.deletes, string(key))
	}
	return nil
}

func (t *levelDBTx) Delete(key []byte) error {
	t.batch.Delete(key)
	if t.deletes == nil {
		t.deletes = make(map[string]bool)
	}
	t.deletes[string(key)] = true
	if t.writes != nil {
		delete(t.writes, string(key))
	}
	return nil
}

func (t *levelDBTx) Commit() error {
	defer func() { t.parent.txOpen = false }()
	return t.parent.db.Write(t.batch, nil)
}

func (t *levelDBTx) Abort() error {
	t.parent.txOpen = false
	return nil
}

// Range returns the [start, limit) byte-range prefix scan bounds for
// a given subsystem key prefix.
func Range(prefix []byte) (start, limit []byte) {
	start = append([]byte(nil), prefix...)
	limit = append([]byte(nil), prefix...)
	for i := len(limit) - 1; i >= 0; i-- {
		limit[i]++
		if limit[i] != 0 {
			return start, limit
		}
	}
	return start, nil
}
