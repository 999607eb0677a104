package types

// Script is an opaque locking condition attached to a transaction output.
// The core does not interpret scripts; it only carries them through
// serialization and hashing.
type Script string
