// Package utxo manages the unspent transaction output ledger.
package utxo

import (
	"github.com/kawchain/core/pkg/tx"
	"github.com/kawchain/core/pkg/types"
)

// UTXO represents an unspent transaction output.
type UTXO struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Address  types.Address  `json:"address"`
	Amount   uint64         `json:"amount"`
	Script   types.Script   `json:"script"`
}

// fromOutput builds a UTXO for output index i of transaction t.
func fromOutput(t *tx.Transaction, i int) *UTXO {
	out := t.Outputs[i]
	return &UTXO{
		Outpoint: types.Outpoint{TxID: t.ID, OutputIndex: uint32(i)},
		Address:  out.Address,
		Amount:   out.Amount,
		Script:   out.Script,
	}
}
