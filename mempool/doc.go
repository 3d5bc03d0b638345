/*
Package mempool holds the set of pending, not-yet-mined transactions a
miner draws candidate block bodies from.

There are no unspent outputs to reconstruct from here: every pending
transaction is keyed by (sender, nonce)
against the account-balance ledger exposed by accounts.Accounts, with a
secondary per-sender index kept nonce-ordered for admission and
retrieval. Admission checks the sender's live balance and nonce,
nonce-contiguity against already-pending transactions from the same
sender, and a minimum relay fee; a head change triggers a single
re-validation sweep that drops anything the new chain state
invalidates and publishes transactions-ready exactly once, the
synchronization point a miner restarts its candidate assembly on.
*/
package mempool
