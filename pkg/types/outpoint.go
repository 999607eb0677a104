package types

import "fmt"

// Outpoint references a specific output of a transaction.
type Outpoint struct {
	TxID        Hash   `json:"txId"`
	OutputIndex uint32 `json:"outputIndex"`
}

// IsZero returns true for the sentinel outpoint used by coinbase inputs.
func (o Outpoint) IsZero() bool {
	return o.TxID.IsZero() && o.OutputIndex == 0
}

// String returns "txid:index" in hex.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.OutputIndex)
}
