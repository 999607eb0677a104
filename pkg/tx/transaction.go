// Package tx defines transaction types, canonical serialization, and validation.
package tx

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/kawchain/core/pkg/crypto"
	"github.com/kawchain/core/pkg/types"
)

// ErrImmutable is returned when a mutating method is called on a transaction
// after ComputeID has frozen it.
var ErrImmutable = errors.New("transaction: immutable after compute_id")

// Input references a UTXO being spent.
type Input struct {
	PrevTxID    types.Hash `json:"txId"`
	OutputIndex uint32     `json:"outputIndex"`
	Signature   []byte     `json:"-"`
	PublicKey   []byte     `json:"-"`
}

// inputJSON is the wire representation of Input with hex-encoded byte fields.
type inputJSON struct {
	TxID        types.Hash `json:"txId"`
	OutputIndex uint32     `json:"outputIndex"`
	Signature   string     `json:"signature,omitempty"`
	PublicKey   string     `json:"publicKey,omitempty"`
}

// MarshalJSON encodes the input with hex-encoded signature and public key.
func (in Input) MarshalJSON() ([]byte, error) {
	j := inputJSON{TxID: in.PrevTxID, OutputIndex: in.OutputIndex}
	if len(in.Signature) > 0 {
		j.Signature = hex.EncodeToString(in.Signature)
	}
	if len(in.PublicKey) > 0 {
		j.PublicKey = hex.EncodeToString(in.PublicKey)
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes an input with hex-encoded signature and public key.
func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	in.PrevTxID = j.TxID
	in.OutputIndex = j.OutputIndex
	if j.Signature != "" {
		b, err := hex.DecodeString(j.Signature)
		if err != nil {
			return err
		}
		in.Signature = b
	}
	if j.PublicKey != "" {
		b, err := hex.DecodeString(j.PublicKey)
		if err != nil {
			return err
		}
		in.PublicKey = b
	}
	return nil
}

// Output defines a new UTXO.
type Output struct {
	Address types.Address `json:"address"`
	Amount  uint64        `json:"amount"`
	Script  types.Script  `json:"scriptPubKey"`
}

// Transaction is the immutable-after-ID record of a value transfer.
type Transaction struct {
	ID             types.Hash `json:"id"`
	Inputs         []Input    `json:"inputs"`
	Outputs        []Output   `json:"outputs"`
	Fee            uint64     `json:"fee"`
	Timestamp      int64      `json:"timestamp"`
	Tag            Tag        `json:"tag"`
	IsCoinbase     bool       `json:"isCoinbase"`
	Nonce          string     `json:"nonce,omitempty"`
	ExpiresAt      int64      `json:"expiresAt,omitempty"`
	Sequence       uint32     `json:"sequence"`
	AtomicSequence string     `json:"atomicSequence,omitempty"`

	frozen bool
}

// New constructs an unsigned, unfrozen transaction. Call Sign (if non-coinbase)
// and then ComputeID to derive its id and freeze it.
func New(inputs []Input, outputs []Output, fee uint64, tag Tag, timestamp int64, nonce, atomicSequence string) *Transaction {
	t := &Transaction{
		Inputs:         inputs,
		Outputs:        outputs,
		Fee:            fee,
		Timestamp:      timestamp,
		Tag:            tag,
		IsCoinbase:     tag == TagCoinbase || tag == TagPremine,
		Nonce:          nonce,
		AtomicSequence: atomicSequence,
	}
	if !t.IsCoinbase && nonce != "" {
		t.ExpiresAt = timestamp + int64(replayWindowMS)
	}
	return t
}

// replayWindowMS is the required non-coinbase nonce/expiry window: 24 hours.
const replayWindowMS = 24 * 60 * 60 * 1000

// canonicalMap builds the deterministic, lexicographically-keyed
// representation of the transaction used for both ID derivation and signing.
// Integers are encoded as decimal strings so the byte form never depends on
// a platform's JSON-number formatting. When includeSignatures is false (the
// signing form) every input's signature field is omitted.
func (t *Transaction) canonicalMap(includeSignatures bool) map[string]any {
	inputs := make([]map[string]any, len(t.Inputs))
	for i, in := range t.Inputs {
		m := map[string]any{
			"txId":        in.PrevTxID.String(),
			"outputIndex": strconv.FormatUint(uint64(in.OutputIndex), 10),
			"publicKey":   hex.EncodeToString(in.PublicKey),
		}
		if includeSignatures {
			m["signature"] = hex.EncodeToString(in.Signature)
		}
		inputs[i] = m
	}

	outputs := make([]map[string]any, len(t.Outputs))
	for i, out := range t.Outputs {
		outputs[i] = map[string]any{
			"address":      string(out.Address),
			"amount":       strconv.FormatUint(out.Amount, 10),
			"scriptPubKey": string(out.Script),
		}
	}

	m := map[string]any{
		"inputs":     inputs,
		"outputs":    outputs,
		"fee":        strconv.FormatUint(t.Fee, 10),
		"timestamp":  strconv.FormatInt(t.Timestamp, 10),
		"tag":        string(t.Tag),
		"isCoinbase": t.IsCoinbase,
		"sequence":   strconv.FormatUint(uint64(t.Sequence), 10),
	}
	if t.Nonce != "" {
		m["nonce"] = t.Nonce
	}
	if t.ExpiresAt != 0 {
		m["expiresAt"] = strconv.FormatInt(t.ExpiresAt, 10)
	}
	if t.AtomicSequence != "" {
		m["atomicSequence"] = t.AtomicSequence
	}
	return m
}

// canonicalBytes returns the deterministic JSON encoding of canonicalMap.
// encoding/json sorts map keys lexicographically at every nesting level,
// which is exactly the "keys sorted lexicographically" rule this format
// requires.
func canonicalBytes(m map[string]any) []byte {
	// json.Marshal cannot fail on a map built exclusively from strings,
	// bools, and []map[string]any of the same shape.
	b, _ := json.Marshal(m)
	return b
}

// SigningBytes returns the canonical bytes used for signing: the canonical
// form with every input's signature omitted.
func (t *Transaction) SigningBytes() []byte {
	return canonicalBytes(t.canonicalMap(false))
}

// IDBytes returns the canonical bytes used for id derivation: the canonical
// form including signatures, so that re-signing a transaction (which does
// not change inputs/outputs/fee) still participates in the id the way the
// data model specifies ("id is deterministic function of all fields").
func (t *Transaction) IDBytes() []byte {
	return canonicalBytes(t.canonicalMap(true))
}

// ComputeID derives the transaction id from its canonical encoding and
// freezes the record against further mutation.
func (t *Transaction) ComputeID() types.Hash {
	t.ID = crypto.Hash(t.IDBytes())
	t.frozen = true
	return t.ID
}

// Frozen reports whether ComputeID has been called.
func (t *Transaction) Frozen() bool {
	return t.frozen
}

// Sign sets every non-coinbase input's public key to priv's and its
// signature to sign(SigningBytes, priv); the public keys are set first, so
// the signed bytes are the same ones Verify recomputes.
// Must be called before ComputeID; once frozen it fails with ErrImmutable.
func (t *Transaction) Sign(priv *crypto.PrivateKey) error {
	if t.frozen {
		return ErrImmutable
	}
	pub := priv.PublicKey()
	for i := range t.Inputs {
		t.Inputs[i].PublicKey = pub
	}
	hash := crypto.Hash(t.SigningBytes())
	for i := range t.Inputs {
		sig, err := priv.Sign(hash[:])
		if err != nil {
			return fmt.Errorf("sign input %d: %w", i, err)
		}
		t.Inputs[i].Signature = sig
	}
	return nil
}

// Verify checks that every input's signature verifies against its declared
// public key and the transaction's signing hash. Coinbase transactions have
// no signatures to verify and always return true.
func (t *Transaction) Verify() bool {
	if t.IsCoinbase {
		return true
	}
	if len(t.Inputs) == 0 {
		return false
	}
	hash := crypto.Hash(t.SigningBytes())
	for _, in := range t.Inputs {
		if len(in.Signature) == 0 || len(in.PublicKey) == 0 {
			return false
		}
		if !crypto.VerifySignature(hash[:], in.Signature, in.PublicKey) {
			return false
		}
	}
	return true
}

// IsExpired reports whether the transaction's expiry has passed as of now
// (milliseconds since epoch).
func (t *Transaction) IsExpired(now int64) bool {
	if t.ExpiresAt == 0 {
		return false
	}
	return now > t.ExpiresAt
}

// senderFingerprint returns the first 16 hex characters of the hash of the
// transaction's first input's public key. Coinbase transactions (no inputs)
// return the empty string.
func (t *Transaction) senderFingerprint() string {
	if len(t.Inputs) == 0 || len(t.Inputs[0].PublicKey) == 0 {
		return ""
	}
	h := crypto.Hash(t.Inputs[0].PublicKey)
	return h.String()[:16]
}

// SenderFingerprint exposes senderFingerprint for the replay index.
func (t *Transaction) SenderFingerprint() string {
	return t.senderFingerprint()
}

// sortedInputPubKeys returns the hex-encoded input public keys sorted
// lexicographically, used to compare two transactions' signer sets.
func (t *Transaction) sortedInputPubKeys() []string {
	keys := make([]string, len(t.Inputs))
	for i, in := range t.Inputs {
		keys[i] = hex.EncodeToString(in.PublicKey)
	}
	sort.Strings(keys)
	return keys
}

// samePubKeySet reports whether a and b contain the same sorted public keys.
func samePubKeySet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsReplayOf reports whether t replays any transaction in others: either an
// identical id, or a shared nonce with an identical sorted set of input
// public keys.
func (t *Transaction) IsReplayOf(others []*Transaction) bool {
	myKeys := t.sortedInputPubKeys()
	for _, o := range others {
		if o.ID == t.ID {
			return true
		}
		if t.Nonce != "" && o.Nonce == t.Nonce && samePubKeySet(myKeys, o.sortedInputPubKeys()) {
			return true
		}
	}
	return false
}
