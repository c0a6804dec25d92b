package sync

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/ldesmet/cinesync/internal/metrics"
)

// Sleeper inserts a politeness delay between sequential outbound requests.
type Sleeper interface {
	Sleep(ctx context.Context)
}

type politeSleeper struct {
	base   time.Duration
	jitter time.Duration
}

// NewPoliteSleeper returns a Sleeper that waits base plus a random jitter in
// [0, jitter) on each call. The wait is cut short when ctx is cancelled.
func NewPoliteSleeper(base, jitter time.Duration) Sleeper {
	return &politeSleeper{base: base, jitter: jitter}
}

func (s *politeSleeper) Sleep(ctx context.Context) {
	delay := s.base + randomJitter(s.jitter)
	if delay <= 0 {
		return
	}
	metrics.ObservePolitenessDelay(delay)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return max / 2
	}
	return time.Duration(n.Int64())
}
