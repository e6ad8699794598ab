//go:build unix

package shutdown

import (
	"testing"
	"time"

	"github.com/TonyRHouston/libp2p-relay/pkg/lib"
	"github.com/TonyRHouston/libp2p-relay/pkg/lib/node/nodetest"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestSignalTableCoversSignalSet(t *testing.T) {
	want := map[lib.Trigger]bool{
		lib.TriggerInterrupt: true,
		lib.TriggerTerminate: true,
		lib.TriggerHangup:    true,
		lib.TriggerQuit:      true,
		lib.TriggerUser1:     true,
		lib.TriggerUser2:     true,
	}
	for _, st := range signalTriggers {
		delete(want, st.trigger)
	}
	assert.Empty(t, want)

	for trigger := lib.TriggerInterrupt; trigger <= lib.TriggerRejection; trigger++ {
		_, ok := policies[trigger]
		assert.True(t, ok, "no policy for %s", trigger)
	}
}

func TestInstall_DispatchesSignal(t *testing.T) {
	h := nodetest.NewHandle(nil, nil, nil, nil)
	st := startedState(t, h)
	rec := &exitRecorder{}
	c := newCoordinator(st, rec, time.Second)

	uninstall := c.Install()
	defer uninstall()

	if err := unix.Kill(unix.Getpid(), unix.SIGUSR2); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("signal did not trigger shutdown")
	}
	assert.Equal(t, 1, h.StopCalls())
	assert.Equal(t, []int{0}, rec.calls())
	assert.Equal(t, "SIGUSR2", signalName(unix.SIGUSR2))
}
