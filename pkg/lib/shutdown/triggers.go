package shutdown

import (
	"os"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib"
)

type policy struct {
	code  int
	fault bool
}

// policies maps every trigger to its default exit code. Faults exit with 1.
var policies = map[lib.Trigger]policy{
	lib.TriggerInterrupt:  {code: 0},
	lib.TriggerTerminate:  {code: 0},
	lib.TriggerHangup:     {code: 0},
	lib.TriggerQuit:       {code: 0},
	lib.TriggerUser1:      {code: 0},
	lib.TriggerUser2:      {code: 0},
	lib.TriggerExit:       {code: 0},
	lib.TriggerBeforeExit: {code: 0},
	lib.TriggerFault:      {code: 1, fault: true},
	lib.TriggerRejection:  {code: 1, fault: true},
}

// ResolveExitCode returns hint when given, otherwise the trigger's default.
func ResolveExitCode(kind lib.Trigger, hint *int) int {
	if hint != nil {
		return *hint
	}
	return policies[kind].code
}

type signalTrigger struct {
	signal  os.Signal
	trigger lib.Trigger
}

func triggerForSignal(sig os.Signal) (lib.Trigger, bool) {
	for _, st := range signalTriggers {
		if st.signal == sig {
			return st.trigger, true
		}
	}
	return lib.TriggerUnspecified, false
}

func notifySignals() []os.Signal {
	out := make([]os.Signal, 0, len(signalTriggers))
	for _, st := range signalTriggers {
		out = append(out, st.signal)
	}
	return out
}
