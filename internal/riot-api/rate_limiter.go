package riotapi

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tristan-derez/match-collector/internal/utils"
	"golang.org/x/time/rate"
)

// Limiter gates outbound requests. Admit blocks until the request may be sent.
type Limiter interface {
	Admit(ctx context.Context) error
}

// SlidingWindow allows at most Limit admissions within any trailing Window.
type SlidingWindow struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	timestamps []time.Time

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger zerolog.Logger
}

// NewSlidingWindow returns a limiter admitting limit requests per window.
func NewSlidingWindow(limit int, window time.Duration, logger zerolog.Logger) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  utils.SleepContext,
		logger: logger,
	}
}

// WithClock replaces the time source and sleep function, mainly for tests.
func (sw *SlidingWindow) WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) *SlidingWindow {
	sw.now = now
	sw.sleep = sleep
	return sw
}

// Admit drops admissions older than the window, sleeps until the oldest one
// expires when the window is full, then records a new admission.
func (sw *SlidingWindow) Admit(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.evict(now)

	if len(sw.timestamps) >= sw.limit {
		wait := sw.timestamps[0].Add(sw.window).Sub(now)
		if wait < 0 {
			wait = 0
		}
		sw.logger.Info().
			Dur("wait", wait).
			Int("in_window", len(sw.timestamps)).
			Msgf("Rate limit reached. Sleeping %.1fs", wait.Seconds())
		rateLimitWaitSeconds.Add(wait.Seconds())

		if err := sw.sleep(ctx, wait); err != nil {
			return err
		}
		now = sw.now()
		sw.evict(now)
	}

	sw.timestamps = append(sw.timestamps, now)
	return nil
}

func (sw *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-sw.window)
	kept := sw.timestamps[:0]
	for _, t := range sw.timestamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	sw.timestamps = kept
}

// RateLimiter wraps a token bucket for the API's per-second allowance.
type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(requestsPerSecond float64, burstSize int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize),
	}
}

func (rl *RateLimiter) Admit(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// MultiLimiter admits a request only once every wrapped limiter has.
type MultiLimiter []Limiter

func (m MultiLimiter) Admit(ctx context.Context) error {
	for _, l := range m {
		if err := l.Admit(ctx); err != nil {
			return err
		}
	}
	return nil
}
