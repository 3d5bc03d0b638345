package accountstree

import (
	"sync"

	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/storage"
)

// NodeStore persists tree nodes keyed by their own hash within the
// backing KV store's accountstree/* range. A node is only ever deleted
// implicitly by garbage collection outside this core's scope; the core
// persists new nodes and never needs to enumerate the store.
type NodeStore interface {
	GetNode(hash chainhash.Hash) (*Node, bool, error)
	PutNode(hash chainhash.Hash, n *Node) error
}

// MemNodeStore is an in-memory NodeStore, used directly by tests and
// as the cache layer in front of a KVNodeStore.
type MemNodeStore struct {
	mu    sync.RWMutex
	nodes map[chainhash.Hash]*Node
}

// NewMemNodeStore returns an empty in-memory node store.
func NewMemNodeStore() *MemNodeStore {
	return &MemNodeStore{nodes: make(map[chainhash.Hash]*Node)}
}

func (s *MemNodeStore) GetNode(hash chainhash.Hash) (*Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[hash]
	return n, ok, nil
}

func (s *MemNodeStore) PutNode(hash chainhash.Hash, n *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[hash] = n
	return nil
}

// keyPrefix is the accountstree/* range this store owns within a
// shared KV backend.
var keyPrefix = []byte("accountstree/")

func nodeKey(hash chainhash.Hash) []byte {
	key := make([]byte, 0, len(keyPrefix)+chainhash.HashSize)
	key = append(key, keyPrefix...)
	key = append(key, hash[:]...)
	return key
}

// KVNodeStore persists nodes through the storage.KV contract,
// encoding each Node with its CanonicalBytes-compatible wire form.
type KVNodeStore struct {
	kv storage.KV
}

// NewKVNodeStore wraps kv as a NodeStore.
func NewKVNodeStore(kv storage.KV) *KVNodeStore {
	return &KVNodeStore{kv: kv}
}

func (s *KVNodeStore) GetNode(hash chainhash.Hash) (*Node, bool, error) {
	raw, ok, err := s.kv.Get(nodeKey(hash))
	if err != nil || !ok {
		return nil, ok, err
	}
	n, err := decodeNode(raw)
	if err != nil {
		return nil, false, err
	}
	return n, true, nil
}

func (s *KVNodeStore) PutNode(hash chainhash.Hash, n *Node) error {
	return s.kv.Put(nodeKey(hash), encodeNode(n))
}
