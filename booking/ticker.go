package booking

import "time"

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory lets tests drive countdowns without waiting on wall clock.
type TickerFactory interface {
	NewTicker(d time.Duration) Ticker
}

type RealTickers struct{}

func (RealTickers) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
