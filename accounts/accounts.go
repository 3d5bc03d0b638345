// Package accounts is the façade that applies and reverts a block's
// transactions and miner reward against an accountstree.Tree under a
// single transactional overlay, verifying the result against the
// block header's accountsHash.
package accounts

import (
	"bytes"

	"github.com/floxnode/floxnode/accountstree"
	"github.com/floxnode/floxnode/chainerr"
	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/crypto"
	"github.com/floxnode/floxnode/log"
	"github.com/floxnode/floxnode/primitives"
)

var logger log.Logger = log.Disabled

// UseLogger installs l as the package logger.
func UseLogger(l log.Logger) { logger = l }

// RewardFunc computes the block subsidy for a given height, supplied
// by the caller (network policy, not part of this façade).
type RewardFunc func(height uint32) uint64

// Accounts wraps an accountstree.Tree with block-level apply/revert
// operations.
type Accounts struct {
	tree   *accountstree.Tree
	reward RewardFunc
}

// New wraps tree, computing block rewards with reward.
func New(tree *accountstree.Tree, reward RewardFunc) *Accounts {
	return &Accounts{tree: tree, reward: reward}
}

// Hash returns the tree's current root hash.
func (a *Accounts) Hash() chainhash.Hash {
	return a.tree.Hash()
}

// Get returns the account at addr.
func (a *Accounts) Get(addr primitives.Address) (primitives.Account, error) {
	return a.tree.Get(addr)
}

// CommitBlockBody opens a transaction on the tree, applies body's
// transactions (debit sender, credit recipient, increment sender
// nonce) and the miner's block reward plus collected fees, then
// commits. It returns a chainerr.ErrInvalidTx error if any transaction
// does not apply cleanly, and chainerr.ErrInvalidBlock if the resulting root hash
// does not match wantAccountsHash. On any failure the transaction is
// aborted and the tree is left untouched.
func (a *Accounts) CommitBlockBody(body *primitives.BlockBody, height uint32, wantAccountsHash chainhash.Hash) error {
	overlay, err := a.tree.Transaction()
	if err != nil {
		return chainerr.New(chainerr.ErrStorageFailure, "accounts: open transaction: %v", err)
	}

	if err := applyBody(overlay, body, height, a.reward); err != nil {
		_ = overlay.Abort()
		return err
	}

	got := overlay.Hash()
	if !bytes.Equal(got[:], wantAccountsHash[:]) {
		_ = overlay.Abort()
		return chainerr.New(chainerr.ErrInvalidBlock, "accounts: accountsHash mismatch: got %s want %s", got, wantAccountsHash)
	}

	if err := overlay.Commit(); err != nil {
		return chainerr.New(chainerr.ErrStorageFailure, "accounts: commit: %v", err)
	}
	return nil
}

// PreviewAccountsHash applies body in a throwaway transaction to
// compute the accountsHash it would produce, then aborts without
// touching the tree. This is the step the Miner's candidate assembly
// uses to fill in a header's accountsHash before a PoW search begins.
func (a *Accounts) PreviewAccountsHash(body *primitives.BlockBody, height uint32) (chainhash.Hash, error) {
	overlay, err := a.tree.Transaction()
	if err != nil {
		return chainhash.Hash{}, chainerr.New(chainerr.ErrStorageFailure, "accounts: open transaction: %v", err)
	}
	defer overlay.Abort()

	if err := applyBody(overlay, body, height, a.reward); err != nil {
		return chainhash.Hash{}, err
	}
	return overlay.Hash(), nil
}

// RevertBlockBody undoes CommitBlockBody: it undoes the miner credit
// then, in reverse transaction order, undoes each transaction's
// effect. The resulting root hash is verified against
// wantAccountsHash (the pre-apply hash) and the commit aborted with
// chainerr.ErrInvalidBlock on mismatch, since a revert that doesn't
// restore the exact prior state indicates corrupted chain data.
func (a *Accounts) RevertBlockBody(body *primitives.BlockBody, height uint32, wantAccountsHash chainhash.Hash) error {
	overlay, err := a.tree.Transaction()
	if err != nil {
		return chainerr.New(chainerr.ErrStorageFailure, "accounts: open transaction: %v", err)
	}

	if err := revertBody(overlay, body, height, a.reward); err != nil {
		_ = overlay.Abort()
		return err
	}

	got := overlay.Hash()
	if !bytes.Equal(got[:], wantAccountsHash[:]) {
		_ = overlay.Abort()
		return chainerr.New(chainerr.ErrInvalidBlock, "accounts: revert did not restore accountsHash: got %s want %s", got, wantAccountsHash)
	}

	if err := overlay.Commit(); err != nil {
		return chainerr.New(chainerr.ErrStorageFailure, "accounts: commit: %v", err)
	}
	return nil
}

func applyBody(overlay *accountstree.Overlay, body *primitives.BlockBody, height uint32, reward RewardFunc) error {
	var totalFees uint64
	for i, tx := range body.Transactions {
		if !crypto.Verify(tx.SenderPubKey, tx.SigningPayload(), tx.Signature) {
			return chainerr.New(chainerr.ErrInvalidTx, "accounts: tx %d: signature does not verify", i)
		}
		if tx.Recipient == crypto.PubkeyToAddress(tx.SenderPubKey) && tx.Value > 0 {
			return chainerr.New(chainerr.ErrInvalidTx, "accounts: tx %d: nonzero-value self-transfer is disallowed", i)
		}

		sender, err := overlay.Get(crypto.PubkeyToAddress(tx.SenderPubKey))
		if err != nil {
			return chainerr.New(chainerr.ErrStorageFailure, "accounts: tx %d: read sender: %v", i, err)
		}
		if tx.Nonce != sender.Nonce {
			return chainerr.New(chainerr.ErrInvalidTx, "accounts: tx %d: nonce mismatch: tx %d sender %d", i, tx.Nonce, sender.Nonce)
		}
		total, overflow := addUint64(tx.Value, tx.Fee)
		if overflow || !sender.CanDebit(total) {
			return chainerr.New(chainerr.ErrInvalidTx, "accounts: tx %d: insufficient balance", i)
		}

		sender.Balance -= total
		sender.Nonce++
		if err := overlay.Put(crypto.PubkeyToAddress(tx.SenderPubKey), sender); err != nil {
			return chainerr.New(chainerr.ErrStorageFailure, "accounts: tx %d: write sender: %v", i, err)
		}

		recipient, err := overlay.Get(tx.Recipient)
		if err != nil {
			return chainerr.New(chainerr.ErrStorageFailure, "accounts: tx %d: read recipient: %v", i, err)
		}
		recipient.Balance += tx.Value
		if err := overlay.Put(tx.Recipient, recipient); err != nil {
			return chainerr.New(chainerr.ErrStorageFailure, "accounts: tx %d: write recipient: %v", i, err)
		}

		totalFees += tx.Fee
	}

	miner, err := overlay.Get(body.MinerAddress)
	if err != nil {
		return chainerr.New(chainerr.ErrStorageFailure, "accounts: read miner: %v", err)
	}
	miner.Balance += reward(height) + totalFees
	if err := overlay.Put(body.MinerAddress, miner); err != nil {
		return chainerr.New(chainerr.ErrStorageFailure, "accounts: write miner: %v", err)
	}
	return nil
}

func revertBody(overlay *accountstree.Overlay, body *primitives.BlockBody, height uint32, reward RewardFunc) error {
	var totalFees uint64
	for _, tx := range body.Transactions {
		totalFees += tx.Fee
	}

	miner, err := overlay.Get(body.MinerAddress)
	if err != nil {
		return chainerr.New(chainerr.ErrStorageFailure, "accounts: read miner: %v", err)
	}
	miner.Balance -= reward(height) + totalFees
	if err := overlay.Put(body.MinerAddress, miner); err != nil {
		return chainerr.New(chainerr.ErrStorageFailure, "accounts: write miner: %v", err)
	}

	for i := len(body.Transactions) - 1; i >= 0; i-- {
		tx := body.Transactions[i]

		recipient, err := overlay.Get(tx.Recipient)
		if err != nil {
			return chainerr.New(chainerr.ErrStorageFailure, "accounts: tx %d: read recipient: %v", i, err)
		}
		recipient.Balance -= tx.Value
		if err := overlay.Put(tx.Recipient, recipient); err != nil {
			return chainerr.New(chainerr.ErrStorageFailure, "accounts: tx %d: write recipient: %v", i, err)
		}

		sender, err := overlay.Get(crypto.PubkeyToAddress(tx.SenderPubKey))
		if err != nil {
			return chainerr.New(chainerr.ErrStorageFailure, "accounts: tx %d: read sender: %v", i, err)
		}
		sender.Balance += tx.Value + tx.Fee
		sender.Nonce--
		if err := overlay.Put(crypto.PubkeyToAddress(tx.SenderPubKey), sender); err != nil {
			return chainerr.New(chainerr.ErrStorageFailure, "accounts: tx %d: write sender: %v", i, err)
		}
	}
	return nil
}

func addUint64(a, b uint64) (sum uint64, overflow bool) {
	sum = a + b
	return sum, sum < a
}

// Step is one body to revert or apply within a Rebranch call, together
// with the accountsHash the tree must show once that step completes.
type Step struct {
	Body     *primitives.BlockBody
	Height   uint32
	WantHash chainhash.Hash
}

// Rebranch reverts, then applies, a sequence of steps within a single
// transaction: reverts undo main-chain blocks from the old head down
// to a fork point, applies bring the new branch's blocks in from the
// fork point up to the new head. Every step's resulting root hash is
// checked against its WantHash as it is applied; any mismatch aborts
// the whole transaction, leaving the tree exactly as it was before
// Rebranch was called — the property a chain reorganisation needs so
// a bad block on the new branch can never leave the tree half-switched.
func (a *Accounts) Rebranch(reverts, applies []Step) error {
	overlay, err := a.tree.Transaction()
	if err != nil {
		return chainerr.New(chainerr.ErrStorageFailure, "accounts: open transaction: %v", err)
	}

	for i, s := range reverts {
		if err := revertBody(overlay, s.Body, s.Height, a.reward); err != nil {
			_ = overlay.Abort()
			return err
		}
		if got := overlay.Hash(); !bytes.Equal(got[:], s.WantHash[:]) {
			_ = overlay.Abort()
			return chainerr.New(chainerr.ErrInvalidBlock, "accounts: rebranch revert %d: accountsHash mismatch: got %s want %s", i, got, s.WantHash)
		}
	}
	for i, s := range applies {
		if err := applyBody(overlay, s.Body, s.Height, a.reward); err != nil {
			_ = overlay.Abort()
			return err
		}
		if got := overlay.Hash(); !bytes.Equal(got[:], s.WantHash[:]) {
			_ = overlay.Abort()
			return chainerr.New(chainerr.ErrInvalidBlock, "accounts: rebranch apply %d: accountsHash mismatch: got %s want %s", i, got, s.WantHash)
		}
	}

	if err := overlay.Commit(); err != nil {
		return chainerr.New(chainerr.ErrStorageFailure, "accounts: commit: %v", err)
	}
	return nil
}
