package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics counts claim attempts on the courier radar.
type DispatchMetrics struct {
	claimWon  prometheus.Counter
	claimLost prometheus.Counter
}

// NewDispatchMetrics registers dispatch counters on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	won := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_claim_won_total",
		Help: "Claim attempts that acquired the order.",
	})
	lost := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_claim_lost_total",
		Help: "Claim attempts that lost the race or hit a stale order.",
	})
	reg.MustRegister(won, lost)
	return &DispatchMetrics{claimWon: won, claimLost: lost}
}

// IncClaimWon counts a successful claim.
func (d *DispatchMetrics) IncClaimWon() {
	if d == nil || d.claimWon == nil {
		return
	}
	d.claimWon.Inc()
}

// IncClaimLost counts a lost claim race.
func (d *DispatchMetrics) IncClaimLost() {
	if d == nil || d.claimLost == nil {
		return
	}
	d.claimLost.Inc()
}
