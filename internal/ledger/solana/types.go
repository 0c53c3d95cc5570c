package solana

import (
	"encoding/json"
	"strconv"
)

// Transaction is the subset of a getTransaction result needed for payment
// verification: the execution status and the token balance movements.
type Transaction struct {
	Slot uint64           `json:"slot"`
	Meta *TransactionMeta `json:"meta"`
}

// TransactionMeta carries the execution outcome and SPL token balances
// before and after the transaction.
type TransactionMeta struct {
	// Err is null for successfully executed transactions and an
	// instruction-specific object otherwise. We only care about null-ness.
	Err               json.RawMessage `json:"err"`
	PreTokenBalances  []TokenBalance  `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance  `json:"postTokenBalances"`
}

// Failed reports whether the transaction recorded an execution error.
func (m *TransactionMeta) Failed() bool {
	return len(m.Err) > 0 && string(m.Err) != "null"
}

// TokenBalance is one account's SPL token balance snapshot.
type TokenBalance struct {
	AccountIndex  int         `json:"accountIndex"`
	Mint          string      `json:"mint"`
	Owner         string      `json:"owner"`
	UITokenAmount TokenAmount `json:"uiTokenAmount"`
}

// TokenAmount carries the raw integer amount as a decimal string.
type TokenAmount struct {
	Amount   string `json:"amount"`
	Decimals int    `json:"decimals"`
}

// Raw parses the raw smallest-unit amount. Unparseable amounts count as
// zero; they can only make verification stricter, never looser.
func (a TokenAmount) Raw() int64 {
	n, err := strconv.ParseInt(a.Amount, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// receivedBy sums the balance delta of the given mint across all accounts
// owned by owner. A positive result is the amount the owner received in
// this transaction.
func (m *TransactionMeta) receivedBy(owner, mint string) int64 {
	var pre, post int64
	for _, b := range m.PreTokenBalances {
		if b.Owner == owner && b.Mint == mint {
			pre += b.UITokenAmount.Raw()
		}
	}
	for _, b := range m.PostTokenBalances {
		if b.Owner == owner && b.Mint == mint {
			post += b.UITokenAmount.Raw()
		}
	}
	return post - pre
}
