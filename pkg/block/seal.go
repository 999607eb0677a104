package block

import (
	"context"
	"errors"
	"math/big"
	"sync"
)

// ErrNonceSpaceExhausted is returned when mining exhausts the uint64 nonce
// space without finding a hash that meets the target.
var ErrNonceSpaceExhausted = errors.New("block: nonce space exhausted")

// Seal mines the block by iterating its nonce until ComputeHash produces a
// hash meeting Difficulty's target, then sets Hash and Nonce. It is a
// supplemental convenience for local/test mining; the network does not
// require any particular sealing strategy. KawPow blocks delegate each
// attempt to kawpow, which may be expensive — callers sealing KawPow blocks
// should generally prefer SealWithContext with threads=1.
func (b *Block) Seal(kawpow KawPowHasher) error {
	return b.SealWithContext(context.Background(), kawpow, 1)
}

// SealWithContext mines with cancellation support and, for threads > 1 and
// the SHA-256 algorithm, strided parallel goroutines (one per thread, each
// searching nonce = i, i+threads, i+2*threads, ...). KawPow blocks always
// seal on a single goroutine since the collaborator interface is not
// guaranteed to be safe for concurrent use.
func (b *Block) SealWithContext(ctx context.Context, kawpow KawPowHasher, threads int) error {
	if b.Difficulty == 0 {
		b.Difficulty = 1
	}
	if threads <= 1 || b.Algorithm == AlgoKawPow {
		return b.sealSingle(ctx, kawpow)
	}
	return b.sealParallel(ctx, threads)
}

func (b *Block) sealSingle(ctx context.Context, kawpow KawPowHasher) error {
	target := new(big.Int).SetBytes(TargetFor(b.Difficulty).Bytes())
	hashInt := new(big.Int)

	for nonce := uint64(0); ; nonce++ {
		if nonce&0xFFFF == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		b.Nonce = nonce
		hash, err := b.ComputeHash(kawpow)
		if err != nil {
			return err
		}
		hashInt.SetBytes(hash.Bytes())
		if hashInt.Cmp(target) <= 0 {
			b.Hash = hash
			return nil
		}
		if nonce == ^uint64(0) {
			return ErrNonceSpaceExhausted
		}
	}
}

// sealParallel only ever runs for AlgoSHA256 (sealSingle is used otherwise),
// so each goroutine may safely compute its own hash independently.
func (b *Block) sealParallel(ctx context.Context, threads int) error {
	target := new(big.Int).SetBytes(TargetFor(b.Difficulty).Bytes())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		nonce uint64
		hash  Block
		err   error
	}
	found := make(chan result, 1)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		start := uint64(i)
		stride := uint64(threads)
		go func() {
			defer wg.Done()
			local := *b
			hashInt := new(big.Int)

			for nonce := start; ; nonce += stride {
				if (nonce/stride)&0xFFFF == 0 && nonce > 0 {
					select {
					case <-ctx.Done():
						return
					default:
					}
				}
				local.Nonce = nonce
				hash, err := local.ComputeHash(nil)
				if err != nil {
					select {
					case found <- result{err: err}:
					default:
					}
					cancel()
					return
				}
				hashInt.SetBytes(hash.Bytes())
				if hashInt.Cmp(target) <= 0 {
					local.Hash = hash
					select {
					case found <- result{nonce: nonce, hash: local}:
					default:
					}
					cancel()
					return
				}
				if nonce > ^uint64(0)-stride {
					select {
					case found <- result{err: ErrNonceSpaceExhausted}:
					default:
					}
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(found)
	}()

	select {
	case r, ok := <-found:
		if !ok {
			return ErrNonceSpaceExhausted
		}
		if r.err != nil {
			return r.err
		}
		b.Nonce = r.nonce
		b.Hash = r.hash.Hash
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
