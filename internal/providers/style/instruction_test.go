package style

import (
	"strings"
	"testing"
)

func TestBuildApplyInstruction(t *testing.T) {
	got := BuildApplyInstruction("golden hour film", []string{"Grainy Film Texture", " ", "Warm Haze"})
	checks := []string{
		`STYLE REFERENCE: "golden hour film"`,
		"MANDATORY FEATURES TO INJECT: Grainy Film Texture, Warm Haze.",
		"SUBJECT LOCK",
		"Do not add new faces or remove existing ones",
	}
	for _, expect := range checks {
		if !strings.Contains(got, expect) {
			t.Fatalf("instruction missing %q: %s", expect, got)
		}
	}
}

func TestBuildApplyInstructionWithoutFocus(t *testing.T) {
	got := BuildApplyInstruction("noir", nil)
	if !strings.Contains(got, "Apply the overall aesthetic signature.") {
		t.Fatalf("expected overall aesthetic clause: %s", got)
	}
	if strings.Contains(got, "MANDATORY FEATURES") {
		t.Fatalf("unexpected focus clause: %s", got)
	}
}

func TestBuildEditInstructionKeepsSubjectLock(t *testing.T) {
	got := BuildEditInstruction("add falling snow")
	for _, expect := range []string{`"add falling snow"`, "PRESERVE SUBJECTS", "SUBJECT LOCK"} {
		if !strings.Contains(got, expect) {
			t.Fatalf("instruction missing %q: %s", expect, got)
		}
	}
}
