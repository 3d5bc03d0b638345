// Package chaindata implements ChainDataStore: a persistent map from
// block hash to per-block chain metadata, plus the main-chain head
// pointer. The store is strictly a cache/index over data the block
// bodies already carry; it is rebuildable but maintained incrementally
// for performance, sitting in front of the full block archive the way
// a block index does.
package chaindata

import (
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/log"
	"github.com/floxnode/floxnode/primitives"
	"github.com/floxnode/floxnode/storage"
)

var logger log.Logger = log.Disabled

// UseLogger installs l as the package logger.
func UseLogger(l log.Logger) { logger = l }

// ChainData is the per-block metadata ChainDataStore tracks.
type ChainData struct {
	Block              *primitives.Block
	TotalWork          *big.Int
	OnMainChain        bool
	MainChainSuccessor *chainhash.Hash // nil if none
}

// ErrNotFound is returned by Get when hash is not present.
var ErrNotFound = errors.New("chaindata: not found")

var (
	nodeKeyPrefix = []byte("chaindata/")
	headKey       = []byte("head")
)

func nodeKey(hash chainhash.Hash) []byte {
	key := make([]byte, 0, len(nodeKeyPrefix)+chainhash.HashSize)
	key = append(key, nodeKeyPrefix...)
	key = append(key, hash[:]...)
	return key
}

// Store is a KV-backed ChainDataStore. Reads consult an in-memory
// cache first; writes go through the supplied storage.KV (or a
// caller-provided storage.Tx for batched multi-write commits).
type Store struct {
	mu    sync.RWMutex
	kv    storage.KV
	cache map[chainhash.Hash]*ChainData
	head  chainhash.Hash
}

// New opens a Store over kv, loading the current head pointer if one
// is persisted.
func New(kv storage.KV) (*Store, error) {
	s := &Store{kv: kv, cache: make(map[chainhash.Hash]*ChainData)}
	raw, ok, err := kv.Get(headKey)
	if err != nil {
		return nil, err
	}
	if ok {
		copy(s.head[:], raw)
	}
	return s, nil
}

// Head returns the current main-chain head hash. The zero hash
// indicates no block has been accepted yet.
func (s *Store) Head() chainhash.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

// Get returns the ChainData for hash.
func (s *Store) Get(hash chainhash.Hash) (*ChainData, error) {
	s.mu.RLock()
	if cd, ok := s.cache[hash]; ok {
		s.mu.RUnlock()
		return cd, nil
	}
	s.mu.RUnlock()

	raw, ok, err := s.kv.Get(nodeKey(hash))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	cd, err := decode(raw)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[hash] = cd
	s.mu.Unlock()
	return cd, nil
}

// Has reports whether hash is present without returning its data.
func (s *Store) Has(hash chainhash.Hash) (bool, error) {
	_, err := s.Get(hash)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Batch accumulates ChainData writes and a possible head update to be
// applied atomically through a single storage.Tx, so a pushBlock
// commit can bundle chaindata writes with AccountsTree writes.
type Batch struct {
	store    *Store
	writes   map[chainhash.Hash]*ChainData
	newHead  *chainhash.Hash
	hasWrite bool
}

// NewBatch starts an empty batch against s.
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s, writes: make(map[chainhash.Hash]*ChainData)}
}

// Put stages hash -> cd for the batch.
func (b *Batch) Put(hash chainhash.Hash, cd *ChainData) {
	b.writes[hash] = cd
	b.hasWrite = true
}

// SetHead stages a new head pointer for the batch.
func (b *Batch) SetHead(hash chainhash.Hash) {
	h := hash
	b.newHead = &h
	b.hasWrite = true
}

// Apply writes every staged change through tx. It does not touch the
// in-memory cache or head pointer; Commit does that after tx commits.
// The caller is responsible for committing tx.
func (b *Batch) Apply(tx storage.Tx) error {
	for hash, cd := range b.writes {
		if err := tx.Put(nodeKey(hash), encode(cd)); err != nil {
			return err
		}
	}
	if b.newHead != nil {
		if err := tx.Put(headKey, b.newHead[:]); err != nil {
			return err
		}
	}
	return nil
}

// Commit commits the batch: it applies the batch through a fresh
// storage.Tx opened on the store's KV, commits it, and on success
// publishes the writes into the in-memory cache.
func (b *Batch) Commit() error {
	if !b.hasWrite {
		return nil
	}
	tx, err := b.store.kv.BeginTx()
	if err != nil {
		return err
	}
	if err := b.Apply(tx); err != nil {
		_ = tx.Abort()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for hash, cd := range b.writes {
		b.store.cache[hash] = cd
	}
	if b.newHead != nil {
		b.store.head = *b.newHead
	}
	return nil
}

func encode(cd *ChainData) []byte {
	body := cd.Block.Body
	var bodyBytes []byte
	if body != nil {
		bodyBytes = body.Bytes()
	}
	header := cd.Block.Header.Bytes()
	interlink := cd.Block.Interlink.Bytes()
	work := cd.TotalWork.Bytes()

	buf := make([]byte, 0, 4+len(header)+4+len(interlink)+1+4+len(bodyBytes)+4+len(work)+1+1+chainhash.HashSize)

	putU32 := func(v uint32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}

	putU32(uint32(len(header)))
	buf = append(buf, header...)
	putU32(uint32(len(interlink)))
	buf = append(buf, interlink...)

	hasBody := byte(0)
	if body != nil {
		hasBody = 1
	}
	buf = append(buf, hasBody)
	putU32(uint32(len(bodyBytes)))
	buf = append(buf, bodyBytes...)

	putU32(uint32(len(work)))
	buf = append(buf, work...)

	onMain := byte(0)
	if cd.OnMainChain {
		onMain = 1
	}
	buf = append(buf, onMain)

	hasSucc := byte(0)
	if cd.MainChainSuccessor != nil {
		hasSucc = 1
	}
	buf = append(buf, hasSucc)
	if cd.MainChainSuccessor != nil {
		buf = append(buf, cd.MainChainSuccessor[:]...)
	}
	return buf
}

func decode(b []byte) (*ChainData, error) {
	r := b
	readU32 := func() (uint32, error) {
		if len(r) < 4 {
			return 0, errors.New("chaindata: truncated length")
		}
		v := binary.BigEndian.Uint32(r[:4])
		r = r[4:]
		return v, nil
	}

	hlen, err := readU32()
	if err != nil {
		return nil, err
	}
	if len(r) < int(hlen) {
		return nil, errors.New("chaindata: truncated header")
	}
	header, err := primitives.HeaderFromBytes(r[:hlen])
	if err != nil {
		return nil, err
	}
	r = r[hlen:]

	ilen, err := readU32()
	if err != nil {
		return nil, err
	}
	if len(r) < int(ilen) {
		return nil, errors.New("chaindata: truncated interlink")
	}
	interlink, err := primitives.InterlinkFromBytes(r[:ilen])
	if err != nil {
		return nil, err
	}
	r = r[ilen:]

	if len(r) < 1 {
		return nil, errors.New("chaindata: truncated has-body flag")
	}
	hasBody := r[0] == 1
	r = r[1:]

	blen, err := readU32()
	if err != nil {
		return nil, err
	}
	if len(r) < int(blen) {
		return nil, errors.New("chaindata: truncated body")
	}
	var body *primitives.BlockBody
	if hasBody {
		body, err = primitives.BodyFromBytes(r[:blen])
		if err != nil {
			return nil, err
		}
	}
	r = r[blen:]

	wlen, err := readU32()
	if err != nil {
		return nil, err
	}
	if len(r) < int(wlen) {
		return nil, errors.New("chaindata: truncated work")
	}
	work := new(big.Int).SetBytes(r[:wlen])
	r = r[wlen:]

	if len(r) < 2 {
		return nil, errors.New("chaindata: truncated flags")
	}
	onMain := r[0] == 1
	hasSucc := r[1] == 1
	r = r[2:]

	var succ *chainhash.Hash
	if hasSucc {
		if len(r) < chainhash.HashSize {
			return nil, errors.New("chaindata: truncated successor")
		}
		var h chainhash.Hash
		copy(h[:], r[:chainhash.HashSize])
		succ = &h
	}

	return &ChainData{
		Block:              &primitives.Block{Header: header, Interlink: interlink, Body: body},
		TotalWork:          work,
		OnMainChain:        onMain,
		MainChainSuccessor: succ,
	}, nil
}
