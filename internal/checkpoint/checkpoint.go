// Package checkpoint parses trusted (height, hash) assertions and fail-stops
// the caller when the loaded chain disagrees with one.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kawchain/core/pkg/block"
	"github.com/kawchain/core/pkg/types"
)

// ErrDuplicateHeight is returned when two checkpoints share a height.
var ErrDuplicateHeight = errors.New("checkpoint: duplicate height")

// ErrNotFound is returned by Remove/Update when no checkpoint exists at the
// given height.
var ErrNotFound = errors.New("checkpoint: not found")

// Checkpoint is a trusted assertion that the chain's block at Height has
// hash Hash.
type Checkpoint struct {
	Height      uint64     `json:"height"`
	Hash        types.Hash `json:"hash"`
	Description string     `json:"description,omitempty"`
}

// file is the on-disk shape of checkpoints.json.
type file struct {
	Checkpoints []Checkpoint   `json:"checkpoints"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ViolationError is a fatal, structured diagnostic for a checkpoint
// mismatch. It is never an os.Exit call from within this package; the
// caller (the chain engine, ultimately the cmd binary) decides how to
// terminate.
type ViolationError struct {
	Height       uint64
	Expected     types.Hash
	Actual       types.Hash
	BlockTime    int64
	Instructions string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf(
		"checkpoint violation at height %d: expected hash %s, got %s (block timestamp %d): %s",
		e.Height, e.Expected, e.Actual, e.BlockTime, e.Instructions,
	)
}

// Manager holds the loaded checkpoint set, keyed by height.
type Manager struct {
	byHeight map[uint64]Checkpoint
	metadata map[string]any
}

// New creates an empty checkpoint manager.
func New() *Manager {
	return &Manager{byHeight: make(map[uint64]Checkpoint)}
}

// Load parses checkpoints.json from path. A missing file yields an empty,
// valid manager — checkpoints are optional.
func Load(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoints file: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing checkpoints file: %w", err)
	}

	m := New()
	m.metadata = f.Metadata
	for _, c := range f.Checkpoints {
		if err := m.Add(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Save writes the checkpoint set to path as checkpoints.json.
func (m *Manager) Save(path string) error {
	f := file{Metadata: m.metadata}
	for _, c := range m.byHeight {
		f.Checkpoints = append(f.Checkpoints, c)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoints: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing checkpoints file: %w", err)
	}
	return nil
}

// Add inserts a checkpoint, rejecting a duplicate height or malformed hash.
func (m *Manager) Add(c Checkpoint) error {
	if _, exists := m.byHeight[c.Height]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateHeight, c.Height)
	}
	if c.Hash.IsZero() {
		return fmt.Errorf("checkpoint: malformed hash at height %d", c.Height)
	}
	m.byHeight[c.Height] = c
	return nil
}

// Update replaces the checkpoint at c.Height, failing if none exists there.
func (m *Manager) Update(c Checkpoint) error {
	if _, exists := m.byHeight[c.Height]; !exists {
		return fmt.Errorf("%w: height %d", ErrNotFound, c.Height)
	}
	if c.Hash.IsZero() {
		return fmt.Errorf("checkpoint: malformed hash at height %d", c.Height)
	}
	m.byHeight[c.Height] = c
	return nil
}

// Remove deletes the checkpoint at height, failing if none exists there.
func (m *Manager) Remove(height uint64) error {
	if _, exists := m.byHeight[height]; !exists {
		return fmt.Errorf("%w: height %d", ErrNotFound, height)
	}
	delete(m.byHeight, height)
	return nil
}

// Clear removes every checkpoint.
func (m *Manager) Clear() {
	m.byHeight = make(map[uint64]Checkpoint)
}

// Get returns the checkpoint at height, if any.
func (m *Manager) Get(height uint64) (Checkpoint, bool) {
	c, ok := m.byHeight[height]
	return c, ok
}

// All returns every checkpoint, in no particular order.
func (m *Manager) All() []Checkpoint {
	out := make([]Checkpoint, 0, len(m.byHeight))
	for _, c := range m.byHeight {
		out = append(out, c)
	}
	return out
}

// Validate asserts that, for every checkpoint with height < len(chain),
// chain[height].hash equals the checkpoint's hash. Returns the first
// mismatch found, as a *ViolationError.
func (m *Manager) Validate(chain []*block.Block) error {
	for height, c := range m.byHeight {
		if height >= uint64(len(chain)) {
			continue
		}
		b := chain[height]
		if b.Hash != c.Hash {
			return &ViolationError{
				Height:       height,
				Expected:     c.Hash,
				Actual:       b.Hash,
				BlockTime:    b.Timestamp,
				Instructions: "delete the corrupt chain file and resync from a trusted peer",
			}
		}
	}
	return nil
}

// CheckAt validates a single incoming block against any checkpoint set at
// its height, for use during AddBlock before the block is appended.
func (m *Manager) CheckAt(height uint64, hash types.Hash, blockTime int64) error {
	c, ok := m.byHeight[height]
	if !ok || c.Hash == hash {
		return nil
	}
	return &ViolationError{
		Height:       height,
		Expected:     c.Hash,
		Actual:       hash,
		BlockTime:    blockTime,
		Instructions: "delete the corrupt chain file and resync from a trusted peer",
	}
}
