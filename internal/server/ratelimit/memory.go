package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryBackend keeps one token bucket per key in process memory.
type MemoryBackend struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
	stopOnce      sync.Once
}

// NewMemoryBackend creates a MemoryBackend. Buckets idle for over an hour are
// dropped every cleanupInterval; zero disables cleanup.
func NewMemoryBackend(cleanupInterval time.Duration) *MemoryBackend {
	b := &MemoryBackend{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
	if cleanupInterval > 0 {
		b.cleanupTicker = time.NewTicker(cleanupInterval)
		b.cleanupStop = make(chan struct{})
		go b.cleanup()
	}
	return b
}

// Take consumes a token from the key's bucket.
func (b *MemoryBackend) Take(_ context.Context, key string, rule EndpointConfig) (Info, error) {
	now := b.now()
	perSecond := float64(rule.Limit) / rule.Window.Seconds()
	burst := rule.Burst
	if burst <= 0 {
		burst = rule.Limit
	}

	b.mu.Lock()
	bk, ok := b.buckets[key]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
		b.buckets[key] = bk
	}
	bk.lastAccess = now
	b.mu.Unlock()

	allowed := bk.limiter.AllowN(now, 1)
	tokens := bk.limiter.TokensAt(now)

	info := Info{
		Allowed:   allowed,
		Limit:     rule.Limit,
		Remaining: max(int(tokens), 0),
		ResetTime: now.Add(secondsToDuration((float64(burst) - tokens) / perSecond)),
	}
	if !allowed {
		info.RetryAfter = secondsToDuration((1 - tokens) / perSecond)
	}
	return info, nil
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

func (b *MemoryBackend) cleanup() {
	for {
		select {
		case <-b.cleanupTicker.C:
			b.cleanupBuckets(b.now().Add(-time.Hour))
		case <-b.cleanupStop:
			return
		}
	}
}

// cleanupBuckets drops buckets not used since cutoff.
func (b *MemoryBackend) cleanupBuckets(cutoff time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, bk := range b.buckets {
		if bk.lastAccess.Before(cutoff) {
			delete(b.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine.
func (b *MemoryBackend) Close() error {
	b.stopOnce.Do(func() {
		if b.cleanupTicker != nil {
			b.cleanupTicker.Stop()
			close(b.cleanupStop)
		}
	})
	return nil
}
