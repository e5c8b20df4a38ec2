package core

import (
	"sync"
	"time"
)

// DefaultHeartbeatInterval is the keep-alive period used when none is configured.
const DefaultHeartbeatInterval = 30 * time.Second

// Heartbeat is the timer handle of a single connection.
type Heartbeat struct {
	stop     chan struct{}
	stopOnce sync.Once
}

// Stop cancels the timer. It is safe to call more than once and on a nil handle.
func (hb *Heartbeat) Stop() {
	if hb == nil {
		return
	}
	hb.stopOnce.Do(func() {
		close(hb.stop)
	})
}

// HeartbeatScheduler runs one periodic timer per connection. Ticks are not
// acted on directly; they are handed to the hub loop through ticks so that
// every send happens on the loop.
type HeartbeatScheduler struct {
	period time.Duration
	ticks  chan<- Conn
}

// NewHeartbeatScheduler builds a scheduler that posts conn to ticks every period.
func NewHeartbeatScheduler(period time.Duration, ticks chan<- Conn) *HeartbeatScheduler {
	if period <= 0 {
		period = DefaultHeartbeatInterval
	}
	return &HeartbeatScheduler{period: period, ticks: ticks}
}

// Start begins the timer for conn.
func (s *HeartbeatScheduler) Start(conn Conn) *Heartbeat {
	hb := &Heartbeat{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(s.period)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				select {
				case s.ticks <- conn:
				case <-hb.stop:
					return
				}
			case <-hb.stop:
				return
			}
		}
	}()

	return hb
}
