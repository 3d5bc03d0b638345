package chain

import (
	"github.com/decred/dcrd/lru"

	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/primitives"
)

// maxOrphanParents bounds the number of distinct prevHash keys the
// orphan pool tracks at once; the least recently used key is evicted
// once the cache is full.
const maxOrphanParents = 256

// orphanPool buffers blocks whose parent hasn't been seen yet, keyed
// by the missing parent's hash, so pushBlock can re-examine them once
// that parent arrives.
type orphanPool struct {
	byParent *lru.Map[chainhash.Hash, []*primitives.Block]
}

func newOrphanPool() *orphanPool {
	return &orphanPool{byParent: lru.NewMap[chainhash.Hash, []*primitives.Block](maxOrphanParents)}
}

func (p *orphanPool) add(block *primitives.Block) {
	parent := block.Header.PrevHash
	waiting, _ := p.byParent.Get(parent)
	waiting = append(waiting, block)
	p.byParent.Put(parent, waiting)
}

// take returns and removes every orphan waiting on parent.
func (p *orphanPool) take(parent chainhash.Hash) []*primitives.Block {
	waiting, ok := p.byParent.Get(parent)
	if !ok {
		return nil
	}
	p.byParent.Delete(parent)
	return waiting
}
