package vcu

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// stateGauge mirrors the teacher's metrics.TaskStatus pattern: one gauge
// per (vcu, state) pair, set to 1 for the active state and 0 for every
// state the VCU just left.
var stateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "hil",
	Subsystem: "vcu",
	Name:      "state",
	Help:      "1 if the named VCU is currently in the named state, 0 otherwise.",
}, []string{"vcu", "state"})

var recoveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hil",
	Subsystem: "vcu",
	Name:      "recovery_attempts_total",
	Help:      "Count of times a VCU entered the recovery state.",
}, []string{"vcu"})

var allStates = []State{StatePowerOff, StateBooting, StateIdle, StateCommand, StateRecovery, StateOffline}
