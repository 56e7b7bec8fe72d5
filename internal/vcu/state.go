package vcu

// State is one of the VCU's six lifecycle states (§4.3).
type State string

const (
	StatePowerOff State = "power_off"
	StateBooting  State = "booting"
	StateIdle     State = "idle"
	StateCommand  State = "command"
	StateRecovery State = "recovery"
	StateOffline  State = "offline"
)

// pingerRunsIn reports whether the pinger subtask is allowed to be
// running while the VCU is in s. No pinger ever runs while power_off or
// offline (§4.5 invariant): a powered-off or disowned VCU has nothing to
// probe.
func pingerRunsIn(s State) bool {
	switch s {
	case StatePowerOff, StateOffline:
		return false
	default:
		return true
	}
}
