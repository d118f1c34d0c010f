package goals

import (
	"testing"
)

func TestExtractSingleTODO(t *testing.T) {
	got := Extract("// TODO: add validation\nfunc f() {}")

	if len(got) != 1 {
		t.Fatalf("expected exactly one goal, got %d: %+v", len(got), got)
	}
	g := got[0]
	if g.Type != "TODO" {
		t.Errorf("expected type TODO, got %s", g.Type)
	}
	if g.Priority != PriorityMedium {
		t.Errorf("expected medium priority, got %s", g.Priority)
	}
	if g.Text != "add validation" {
		t.Errorf("expected text %q, got %q", "add validation", g.Text)
	}
	if g.Line != 1 {
		t.Errorf("expected line 1, got %d", g.Line)
	}
}

func TestExtractMarkerPriorities(t *testing.T) {
	code := "// FIXME: broken edge case\n// NOTE: intentional\n// OPTIMIZE: cache this\n// TODO: later\n"
	got := Extract(code)

	if len(got) != 4 {
		t.Fatalf("expected 4 goals, got %d", len(got))
	}

	want := []struct {
		typ  string
		prio Priority
		line int
	}{
		{"FIXME", PriorityHigh, 1},
		{"NOTE", PriorityLow, 2},
		{"OPTIMIZE", PriorityMedium, 3},
		{"TODO", PriorityMedium, 4},
	}
	for i, w := range want {
		if got[i].Type != w.typ || got[i].Priority != w.prio || got[i].Line != w.line {
			t.Errorf("goal %d = %+v, want %+v", i, got[i], w)
		}
	}
}

func TestExtractIgnoresUnmarkedComments(t *testing.T) {
	got := Extract("// just a description\n# another plain comment\nfunc f() {}")
	if len(got) != 0 {
		t.Errorf("unmarked comments are not goals: %+v", got)
	}
}

func TestExtractSourceLineOrder(t *testing.T) {
	code := "func a() {}\n// TODO: first\nfunc b() {}\n\n// FIXME: second\n"
	got := Extract(code)

	if len(got) != 2 {
		t.Fatalf("expected 2 goals, got %d", len(got))
	}
	if got[0].Line >= got[1].Line {
		t.Error("goals must follow source line order")
	}
	if got[0].Text != "first" || got[1].Text != "second" {
		t.Errorf("unexpected goal texts: %+v", got)
	}
}

func TestExtractNoComments(t *testing.T) {
	if got := Extract("func f() { return 1 }"); len(got) != 0 {
		t.Errorf("expected no goals, got %+v", got)
	}
}
