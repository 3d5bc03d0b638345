package mempool

// RemovalReason records why a transaction left the pool during a
// head-changed sweep.
type RemovalReason int

const (
	RemovalReasonUnknown RemovalReason = iota
	// RemovalReasonMined indicates the transaction was applied by a
	// block that became (or stayed) part of the main chain.
	RemovalReasonMined
	// RemovalReasonStaleNonce indicates the transaction's nonce no
	// longer continues the sender's expected nonce sequence, because
	// an entry ahead of it was dropped.
	RemovalReasonStaleNonce
	// RemovalReasonInsufficientBalance indicates the sender's current
	// balance can no longer cover the transaction plus everything
	// pending ahead of it.
	RemovalReasonInsufficientBalance
)

var removalReasonStrings = map[RemovalReason]string{
	RemovalReasonUnknown:             "unknown",
	RemovalReasonMined:               "mined",
	RemovalReasonStaleNonce:          "stale nonce",
	RemovalReasonInsufficientBalance: "insufficient balance",
}

func (r RemovalReason) String() string {
	if s, ok := removalReasonStrings[r]; ok {
		return s
	}
	return "unknown"
}
