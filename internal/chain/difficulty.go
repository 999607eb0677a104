package chain

// adjustDifficulty recomputes c.difficulty from the inter-block timing of
// the most recent DifficultyBlocks blocks, LWMA-style.
// Caller must hold c.mu.
func (c *Chain) adjustDifficulty() {
	n := c.params.DifficultyBlocks
	if n < 2 || uint64(len(c.blocks)) < n+1 {
		return
	}

	window := c.blocks[uint64(len(c.blocks))-n:]
	totalMS := window[len(window)-1].Timestamp - window[0].Timestamp
	meanMS := totalMS / int64(len(window)-1)
	targetMS := c.params.BlockTime * 1000

	switch {
	case meanMS < targetMS/2:
		c.difficulty = c.difficulty * 3 / 2
	case meanMS > targetMS*3/2:
		reduced := c.difficulty * 3 / 4
		if reduced < c.params.DifficultyMinimum {
			reduced = c.params.DifficultyMinimum
		}
		c.difficulty = reduced
	}

	if c.difficulty < c.params.DifficultyMinimum {
		c.difficulty = c.params.DifficultyMinimum
	}
}
