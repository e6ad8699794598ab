//go:build unix

package shutdown

import (
	"os"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib"
	"golang.org/x/sys/unix"
)

var signalTriggers = []signalTrigger{
	{unix.SIGINT, lib.TriggerInterrupt},
	{unix.SIGTERM, lib.TriggerTerminate},
	{unix.SIGHUP, lib.TriggerHangup},
	{unix.SIGQUIT, lib.TriggerQuit},
	{unix.SIGUSR1, lib.TriggerUser1},
	{unix.SIGUSR2, lib.TriggerUser2},
}

func signalName(sig os.Signal) string {
	if s, ok := sig.(unix.Signal); ok {
		if name := unix.SignalName(s); name != "" {
			return name
		}
	}
	return sig.String()
}
