package accountstree

import (
	"errors"
	"sync"

	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/merkle"
	"github.com/floxnode/floxnode/primitives"
)

// emptyRootLabel is hashed with no input to give the empty tree a
// stable, non-zero root hash distinct from any populated tree.
var emptyRootLabel = []byte("floxnode:accountstree:empty-root")

// Tree is a single-writer authenticated radix-16 patricia trie mapping
// addresses to accounts. Reads are safe for concurrent use; writes
// outside a Transaction are serialized by Tree's own lock, and only
// one Transaction may be open at a time.
type Tree struct {
	mu     sync.RWMutex
	store  NodeStore
	hashFn merkle.HashFunc
	root   *Node
	txOpen bool
}

// New returns a Tree backed by store, hashing nodes with hashFn.
func New(store NodeStore, hashFn merkle.HashFunc) *Tree {
	return &Tree{store: store, hashFn: hashFn}
}

// Get returns the account stored at addr, or the zero Account if none
// is present.
func (t *Tree) Get(addr primitives.Address) (primitives.Account, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return getFromNode(t.store, t.root, addr.Nibbles())
}

// Put writes acct at addr directly against the tree, outside any
// transaction. It fails with ErrTxBusy while a Transaction is open.
func (t *Tree) Put(addr primitives.Address, acct primitives.Account) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.txOpen {
		return ErrTxBusy
	}
	return t.put(addr, acct)
}

func (t *Tree) put(addr primitives.Address, acct primitives.Account) error {
	path := addr.Nibbles()
	if acct.IsZero() {
		newRoot, _, err := deleteFromNode(t.store, t.hashFn, t.root, path)
		if err != nil {
			return err
		}
		t.root = newRoot
		return nil
	}
	newRoot, err := putIntoNode(t.store, t.hashFn, t.root, path, acct)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

// Hash returns the tree's current root hash. An empty tree hashes to a
// fixed sentinel rather than the zero hash, so an empty tree is never
// confused with a missing one.
func (t *Tree) Hash() chainhash.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rootHashLocked()
}

func (t *Tree) rootHashLocked() chainhash.Hash {
	if t.root == nil {
		return t.hashFn(emptyRootLabel)
	}
	return t.root.Hash(t.hashFn)
}

// ErrTxBusy is returned by Put and Transaction when a Transaction is
// already open against this tree.
var ErrTxBusy = errors.New("accountstree: a transaction is already open")

// Transaction opens a scoped overlay through which a caller applies a
// batch of writes (e.g. one block's worth of transfers) without
// affecting the tree until Commit is called. Exactly one Transaction
// may be open at a time; the caller must Commit or Abort it before
// opening another. Callers should defer a call to Abort immediately
// after a successful Transaction call, so any return path that skips
// Commit still releases the tree.
func (t *Tree) Transaction() (*Overlay, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.txOpen {
		return nil, ErrTxBusy
	}
	t.txOpen = true
	return &Overlay{parent: t, store: t.store, hashFn: t.hashFn, root: t.root}, nil
}

// Overlay is a scoped, single-writer batch of writes against the Tree
// that created it. Reads observe the overlay's own pending writes; the
// parent tree is untouched until Commit.
type Overlay struct {
	parent *Tree
	store  NodeStore
	hashFn merkle.HashFunc
	root   *Node
	closed bool
}

// Get reads addr's account as it stands within the overlay.
func (o *Overlay) Get(addr primitives.Address) (primitives.Account, error) {
	return getFromNode(o.store, o.root, addr.Nibbles())
}

// Put writes acct at addr within the overlay. A zero Account deletes
// the entry.
func (o *Overlay) Put(addr primitives.Address, acct primitives.Account) error {
	path := addr.Nibbles()
	if acct.IsZero() {
		newRoot, _, err := deleteFromNode(o.store, o.hashFn, o.root, path)
		if err != nil {
			return err
		}
		o.root = newRoot
		return nil
	}
	newRoot, err := putIntoNode(o.store, o.hashFn, o.root, path, acct)
	if err != nil {
		return err
	}
	o.root = newRoot
	return nil
}

// Hash returns the root hash the overlay would publish if committed
// now.
func (o *Overlay) Hash() chainhash.Hash {
	if o.root == nil {
		return o.hashFn(emptyRootLabel)
	}
	return o.root.Hash(o.hashFn)
}

// Commit atomically publishes the overlay's root as the parent tree's
// new root and releases the transaction. Calling Commit or Abort again
// on an already-closed overlay is a no-op.
func (o *Overlay) Commit() error {
	if o.closed {
		return nil
	}
	o.closed = true
	o.parent.mu.Lock()
	defer o.parent.mu.Unlock()
	o.parent.root = o.root
	o.parent.txOpen = false
	return nil
}

// Abort discards the overlay's writes without touching the parent
// tree, and releases the transaction.
func (o *Overlay) Abort() error {
	if o.closed {
		return nil
	}
	o.closed = true
	o.parent.mu.Lock()
	defer o.parent.mu.Unlock()
	o.parent.txOpen = false
	return nil
}
