package orchestrator

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCurrentChildReplacesSlot(t *testing.T) {
	SetCurrentChild(nil)
	defer SetCurrentChild(nil)

	cmd := exec.Command("sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Skipf("could not start sleep: %v", err)
	}
	defer cmd.Process.Kill()

	SetCurrentChild(cmd.Process)
	killCurrentChild()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		_ = err
	case <-time.After(2 * time.Second):
		require.Fail(t, "killCurrentChild did not terminate the tracked process")
	}
}

func TestKillCurrentChildNoopWhenEmpty(t *testing.T) {
	SetCurrentChild(nil)
	assert.NotPanics(t, killCurrentChild)
}

func TestInstallSignalHandlersDoesNotFireWithoutSignal(t *testing.T) {
	called := false
	stop := InstallSignalHandlers(func(int) { called = true })
	stop()
	assert.False(t, called, "onSignal should not fire without a real signal")
}
