package memory

import "time"

// Active expiry parameters, after Redis activeExpireCycle.
const (
	// sweepSample is the number of keys with a timeout inspected per round.
	sweepSample = 20

	// sweepRepeatPercent: another round runs while more than this share of
	// a sample was expired.
	sweepRepeatPercent = 25

	// sweepBudgetPercent bounds one cycle to this share of the interval.
	sweepBudgetPercent = 25
)

// sweepLoop runs an active expiry cycle hz times per second.
func (e *Engine) sweepLoop() {
	defer close(e.doneCh)

	interval := time.Second / time.Duration(e.hz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			budget := interval * sweepBudgetPercent / 100
			if n := e.sweep(budget); n > 0 {
				e.logger.Debug("active expiry", "expired", n)
			}

		case <-e.stopCh:
			return
		}
	}
}

// sweep deletes expired keys from every database within budget and returns
// how many were removed.
func (e *Engine) sweep(budget time.Duration) int {
	deadline := time.Now().Add(budget)
	total := 0
	for _, ks := range e.dbs {
		for {
			sampled, expired := ks.sweepRound()
			total += expired
			if sampled == 0 || expired*100 <= sampled*sweepRepeatPercent {
				break
			}
			if time.Now().After(deadline) {
				return total
			}
		}
	}
	return total
}

// sweepRound inspects up to sweepSample keys with a timeout. Map iteration
// order is randomized, which gives the random sampling Redis uses.
func (ks *keyspace) sweepRound() (sampled, expired int) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	now := ks.nowNano()
	for _, ent := range ks.expires {
		if sampled == sweepSample {
			break
		}
		sampled++
		if ent.expiredAt(now) {
			ks.evict(ent)
			expired++
		}
	}
	return sampled, expired
}
