package tx

// EstimateSize returns the approximate serialized size of a transaction with
// the given input/output counts, using the signing-form canonical encoding
// as the basis for the estimate (same order of magnitude as the real thing,
// without requiring a populated transaction).
func EstimateSize(numInputs, numOutputs int) int {
	const baseOverhead = 96      // tag, timestamp, fee, sequence, braces.
	const perInput = 140         // hex txid + outputIndex + hex pubkey.
	const perOutput = 80         // address + amount + script.
	return baseOverhead + numInputs*perInput + numOutputs*perOutput
}

// Size returns the actual serialized size (bytes) of the transaction's
// signing-form canonical encoding, used for mempool memory accounting.
func (t *Transaction) Size() int {
	return len(t.SigningBytes())
}
