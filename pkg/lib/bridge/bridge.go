package bridge

import (
	"encoding/json"
	"time"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib/state"
	"github.com/pkg/errors"
)

// ChannelUpdate is the channel consumers subscribe to for status snapshots.
const ChannelUpdate = "ipc-update"

const DefaultInterval = 4 * time.Second

var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrShuttingDown   = errors.New("shutting down")
)

// FaultGuard receives panics raised by a subscription's polling loop.
// RecoverFault is deferred directly, so it can call recover.
type FaultGuard interface {
	RecoverFault()
}

type Options struct {
	// Interval between two snapshots of one stream.
	Interval time.Duration
	// Marshal encodes snapshots. Defaults to json.Marshal.
	Marshal func(v any) ([]byte, error)
	// Guard, when set, handles a panic in a polling loop after the
	// subscription has been closed.
	Guard FaultGuard
}

// Bridge serves status snapshots built from the shared process state.
type Bridge struct {
	state    *state.State
	interval time.Duration
	marshal  func(v any) ([]byte, error)
	guard    FaultGuard
}

func New(st *state.State, opts Options) *Bridge {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Marshal == nil {
		opts.Marshal = json.Marshal
	}
	return &Bridge{
		state:    st,
		interval: opts.Interval,
		marshal:  opts.Marshal,
		guard:    opts.Guard,
	}
}
