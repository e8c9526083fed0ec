package scope

import (
	"testing"
)

func TestAssignmentsCaptureSourceText(t *testing.T) {
	src := "x = 1\nz =   zip([1, 2], [3, 4])\n"
	got := Assignments(src)
	if got["x"] != "x = 1" {
		t.Errorf("x assignment %q, want %q", got["x"], "x = 1")
	}
	if got["z"] != "z =   zip([1, 2], [3, 4])" {
		t.Errorf("z assignment %q", got["z"])
	}
}

func TestAssignmentsLastWriteWins(t *testing.T) {
	got := Assignments("x = 1\nx = 2\n")
	if got["x"] != "x = 2" {
		t.Errorf("x assignment %q, want the later one", got["x"])
	}
}

func TestAssignmentsSkipAugmentedAndTuple(t *testing.T) {
	got := Assignments("x = 1\nx += 1\na, b = 1, 2\n")
	if got["x"] != "x = 1" {
		t.Errorf("augmented assignment overwrote the plain one: %q", got["x"])
	}
	if _, ok := got["a"]; ok {
		t.Error("tuple targets should not be indexed")
	}
}

func TestAssignmentsParseError(t *testing.T) {
	if got := Assignments("def broken(:\n"); len(got) != 0 {
		t.Errorf("parse failure should yield an empty index, got %v", got)
	}
}

func TestAssignedNames(t *testing.T) {
	src := `x = 1
y += 2
a, b = 1, 2
for i in range(3):
    pass
def f(p, q=1):
    return p
squares = [n for n in range(3)]
`
	got := AssignedNames(src)
	for _, name := range []string{"x", "y", "a", "b", "i", "f", "p", "q", "squares", "n"} {
		if !got[name] {
			t.Errorf("name %q missing from the assigned set", name)
		}
	}
	if got["range"] {
		t.Error("range is only read, never bound")
	}
}

func TestAssignedNamesParseError(t *testing.T) {
	if got := AssignedNames("def broken(:\n"); len(got) != 0 {
		t.Errorf("parse failure should yield an empty set, got %v", got)
	}
}
