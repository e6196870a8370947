// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

// Package ratelimit limits how often each user can have text rendered.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

// CodeRateLimited marks errors returned by Check.
const CodeRateLimited = "RATE_LIMITED"

// Default rate limiting values.
const (
	// DefaultBurst is the number of renders a user can request back to back.
	DefaultBurst = 5

	// DefaultPerSecond is the sustained render rate per user.
	DefaultPerSecond = 1.0

	// MinPerSecond keeps the refill rate from reaching zero.
	MinPerSecond = 0.1

	// DefaultCleanupInterval is how often idle users are forgotten.
	DefaultCleanupInterval = 5 * time.Minute

	// DefaultMaxIdle is how long a user may stay idle before being forgotten.
	DefaultMaxIdle = time.Hour
)

// Config configures the limiter.
type Config struct {
	// Burst defaults to DefaultBurst if zero or negative.
	Burst int
	// PerSecond defaults to DefaultPerSecond if zero or negative.
	PerSecond float64
	// CleanupInterval defaults to DefaultCleanupInterval if zero.
	CleanupInterval time.Duration
	// MaxIdle defaults to DefaultMaxIdle if zero.
	MaxIdle time.Duration
}

type userLimit struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks a token bucket per user. It is safe for concurrent use.
//
// A background goroutine forgets idle users. Call Close to stop it.
type Limiter struct {
	mu        sync.Mutex
	users     map[string]*userLimit
	burst     int
	perSecond float64
	maxIdle   time.Duration
	now       func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup

	// nil if no registry was provided
	usersGauge prometheus.Gauge
}

// New creates a limiter and starts its cleanup goroutine.
func New(cfg Config) *Limiter {
	return newLimiter(cfg, nil)
}

// NewWithRegistry creates a limiter and registers a tracked-users gauge.
func NewWithRegistry(cfg Config, reg prometheus.Registerer) *Limiter {
	return newLimiter(cfg, reg)
}

func newLimiter(cfg Config, reg prometheus.Registerer) *Limiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	perSecond := cfg.PerSecond
	if perSecond <= 0 {
		perSecond = DefaultPerSecond
	}
	if perSecond < MinPerSecond {
		perSecond = MinPerSecond
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}

	l := &Limiter{
		users:     make(map[string]*userLimit),
		burst:     burst,
		perSecond: perSecond,
		maxIdle:   maxIdle,
		now:       time.Now,
		stop:      make(chan struct{}),
	}

	if reg != nil {
		l.usersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "runicbabble_ratelimiter_users",
			Help: "Current number of users tracked by the rate limiter",
		})
		reg.MustRegister(l.usersGauge)
	}

	l.wg.Add(1)
	go l.cleanupLoop(interval)

	return l
}

// Allow consumes a token for userID. When none is available it reports
// how long until the next one.
func (l *Limiter) Allow(userID string) (allowed bool, cooldown time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	u, ok := l.users[userID]
	if !ok {
		u = &userLimit{limiter: rate.NewLimiter(rate.Limit(l.perSecond), l.burst)}
		l.users[userID] = u
	}
	u.lastSeen = now

	if u.limiter.AllowN(now, 1) {
		return true, 0
	}

	deficit := 1 - u.limiter.TokensAt(now)
	return false, time.Duration(deficit / l.perSecond * float64(time.Second))
}

// Check is Allow returning a RATE_LIMITED error when denied.
func (l *Limiter) Check(userID string) error {
	allowed, cooldown := l.Allow(userID)
	if allowed {
		return nil
	}
	return oops.Code(CodeRateLimited).
		With("user_id", userID).
		With("cooldown_ms", cooldown.Milliseconds()).
		Errorf("slow down, try again in %s", cooldown.Round(100*time.Millisecond))
}

// Users returns the number of tracked users.
func (l *Limiter) Users() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

// Cleanup forgets users not seen within maxAge.
func (l *Limiter) Cleanup(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	threshold := l.now().Add(-maxAge)
	for id, u := range l.users {
		if u.lastSeen.Before(threshold) {
			delete(l.users, id)
		}
	}

	if l.usersGauge != nil {
		l.usersGauge.Set(float64(len(l.users)))
	}
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.Cleanup(l.maxIdle)
		}
	}
}

// Close stops the cleanup goroutine and waits for it to exit.
func (l *Limiter) Close() {
	close(l.stop)
	l.wg.Wait()
}
