package orchestrator

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestDashboardUpdateTracksLatestChunkPerKey(t *testing.T) {
	d := NewDashboard(&bytes.Buffer{})
	d.Update("echo one", "hello")
	d.Update("echo one", "hello world")
	d.Update("echo two", "second")

	if len(d.order) != 2 {
		t.Fatalf("expected 2 tracked lines, got %d", len(d.order))
	}
	if d.lines["echo one"].chunk != "hello world" {
		t.Errorf("expected latest chunk retained, got %q", d.lines["echo one"].chunk)
	}
}

func TestDashboardStartStopRendersWithoutPanic(t *testing.T) {
	var buf bytes.Buffer
	d := NewDashboard(&buf)
	d.Update("long running command that should be truncated in the preview", "partial output chunk")
	d.Start()
	time.Sleep(150 * time.Millisecond)
	d.Stop()

	if buf.Len() == 0 {
		t.Error("expected the dashboard to have written at least one frame")
	}
}

func TestDashRenderLineTruncatesCommandAndTailsChunk(t *testing.T) {
	line := dashRenderLine('⠋', strings.Repeat("x", 80), strings.Repeat("y", 40))
	if !strings.Contains(line, "...") {
		t.Errorf("expected long command to be truncated, got %q", line)
	}
}
