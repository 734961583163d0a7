package orchestrator

import "testing"

func TestAgentSlugNormalizesFilename(t *testing.T) {
	cases := map[string]string{
		"/tmp/Fix Bug.i.claude.md": "fix-bug-i-claude",
		"hello.claude.md":          "hello-claude",
		"/a/b/task.md":             "task",
		"...md":                    "agent",
	}
	for in, want := range cases {
		if got := AgentSlug(in); got != want {
			t.Errorf("AgentSlug(%q) = %q, want %q", in, got, want)
		}
	}
}
