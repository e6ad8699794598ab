//go:build !unix

package shutdown

import (
	"os"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib"
)

var signalTriggers = []signalTrigger{
	{os.Interrupt, lib.TriggerInterrupt},
}

func signalName(sig os.Signal) string {
	return sig.String()
}
