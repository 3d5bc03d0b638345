package primitives

// Account is the state held at an address: a balance and a
// strictly-increasing nonce. A non-existent address is semantically
// the zero Account.
type Account struct {
	Balance uint64
	Nonce   uint32
}

// IsZero reports whether acc is the zero account. Terminal nodes in
// the accounts tree never hold a zero account; a put that would
// result in one deletes the entry instead.
func (acc Account) IsZero() bool {
	return acc.Balance == 0 && acc.Nonce == 0
}

// CanDebit reports whether amount can be subtracted from the account's
// balance without going negative.
func (acc Account) CanDebit(amount uint64) bool {
	return acc.Balance >= amount
}
