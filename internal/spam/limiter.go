// Package spam implements per-sender and global rate limiting for
// non-coinbase transaction admission.
package spam

import (
	"fmt"
	"sync"
)

// Defaults for the package-level limiter.
const (
	DefaultMaxPerSender    = 10
	DefaultRollingWindowMS = 60 * 1000
	DefaultBanDurationMS   = 5 * 60 * 1000
	DefaultMaxGlobal       = 100
)

// senderState tracks a single sender's admission timestamps and ban state.
// Resets on process restart; no persistence (observability data, not
// consensus state).
type senderState struct {
	timestamps  []int64 // admitted timestamps within the rolling window, ascending.
	bannedUntil int64
}

// Limiter enforces per-sender and global admission rate limits.
type Limiter struct {
	mu sync.Mutex

	senders          map[string]*senderState
	globalTimestamps []int64

	maxPerSender    int
	maxGlobal       int
	rollingWindowMS int64
	banDurationMS   int64
}

// New creates a limiter with the given bounds.
func New(maxPerSender, maxGlobal int, rollingWindowMS, banDurationMS int64) *Limiter {
	return &Limiter{
		senders:         make(map[string]*senderState),
		maxPerSender:    maxPerSender,
		maxGlobal:       maxGlobal,
		rollingWindowMS: rollingWindowMS,
		banDurationMS:   banDurationMS,
	}
}

// NewDefault creates a limiter using the package's default thresholds.
func NewDefault() *Limiter {
	return New(DefaultMaxPerSender, DefaultMaxGlobal, DefaultRollingWindowMS, DefaultBanDurationMS)
}

// trim drops timestamps older than cutoff from the front of an ascending
// slice.
func trim(ts []int64, cutoff int64) []int64 {
	i := 0
	for i < len(ts) && ts[i] < cutoff {
		i++
	}
	return ts[i:]
}

// Allow checks and, if permitted, records one admission at time now
// (milliseconds since epoch) for sender. Returns an error naming the reason
// for rejection: an active ban, a per-sender rolling-window limit, or the
// global rolling-window limit.
func (l *Limiter) Allow(sender string, now int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.senders[sender]
	if !ok {
		s = &senderState{}
		l.senders[sender] = s
	}

	if now < s.bannedUntil {
		return fmt.Errorf("sender banned until %d", s.bannedUntil)
	}

	s.timestamps = trim(s.timestamps, now-l.rollingWindowMS)
	if len(s.timestamps) >= l.maxPerSender {
		s.bannedUntil = now + l.banDurationMS
		return fmt.Errorf("sender exceeded %d tx per %dms window, banned until %d", l.maxPerSender, l.rollingWindowMS, s.bannedUntil)
	}

	l.globalTimestamps = trim(l.globalTimestamps, now-l.rollingWindowMS)
	if len(l.globalTimestamps) >= l.maxGlobal {
		return fmt.Errorf("global limit of %d tx per %dms window exceeded", l.maxGlobal, l.rollingWindowMS)
	}

	s.timestamps = append(s.timestamps, now)
	l.globalTimestamps = append(l.globalTimestamps, now)
	return nil
}

// Cleanup removes sender entries that have no timestamps left in the
// rolling window and whose ban (if any) has expired. Returns the number of
// entries removed. Intended to run periodically (see cpuProtection /
// batchProcessing cleanupInterval config).
func (l *Limiter) Cleanup(now int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, s := range l.senders {
		s.timestamps = trim(s.timestamps, now-l.rollingWindowMS)
		if len(s.timestamps) == 0 && now >= s.bannedUntil {
			delete(l.senders, key)
			removed++
		}
	}
	return removed
}

// IsBanned reports whether sender is currently banned as of now.
func (l *Limiter) IsBanned(sender string, now int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.senders[sender]
	if !ok {
		return false
	}
	return now < s.bannedUntil
}
