package tx

import (
	"github.com/kawchain/core/pkg/crypto"
	"github.com/kawchain/core/pkg/types"
)

// Builder assembles a Transaction one input/output at a time before signing
// and computing its id.
type Builder struct {
	inputs         []Input
	outputs        []Output
	fee            uint64
	tag            Tag
	timestamp      int64
	nonce          string
	atomicSequence string
	sequence       uint32
}

// NewBuilder starts a transaction build for the given tag and timestamp
// (milliseconds since epoch).
func NewBuilder(tag Tag, timestamp int64) *Builder {
	return &Builder{tag: tag, timestamp: timestamp}
}

// AddInput appends a spend of the given outpoint. The signature and public
// key are filled in later by Sign.
func (b *Builder) AddInput(prevTxID types.Hash, outputIndex uint32) *Builder {
	b.inputs = append(b.inputs, Input{PrevTxID: prevTxID, OutputIndex: outputIndex})
	return b
}

// AddOutput appends a new output.
func (b *Builder) AddOutput(address types.Address, amount uint64, script types.Script) *Builder {
	b.outputs = append(b.outputs, Output{Address: address, Amount: amount, Script: script})
	return b
}

// SetFee sets the explicit fee field.
func (b *Builder) SetFee(fee uint64) *Builder {
	b.fee = fee
	return b
}

// SetNonce sets the replay-protection nonce (required for non-coinbase transactions).
func (b *Builder) SetNonce(nonce string) *Builder {
	b.nonce = nonce
	return b
}

// SetAtomicSequence sets the opaque uniqueness token.
func (b *Builder) SetAtomicSequence(seq string) *Builder {
	b.atomicSequence = seq
	return b
}

// SetSequence sets the sequence number.
func (b *Builder) SetSequence(seq uint32) *Builder {
	b.sequence = seq
	return b
}

// Build assembles the unsigned, unfrozen Transaction.
func (b *Builder) Build() *Transaction {
	t := New(b.inputs, b.outputs, b.fee, b.tag, b.timestamp, b.nonce, b.atomicSequence)
	t.Sequence = b.sequence
	return t
}

// SignAndFinalize signs every input with priv and computes the transaction id.
func (b *Builder) SignAndFinalize(priv *crypto.PrivateKey) (*Transaction, error) {
	t := b.Build()
	if !t.IsCoinbase {
		if err := t.Sign(priv); err != nil {
			return nil, err
		}
	}
	t.ComputeID()
	return t, nil
}
