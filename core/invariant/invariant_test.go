package invariant_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/aledsdavies/operon/core/invariant"
)

func capture(t *testing.T, fn func()) (v *invariant.Violation) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var ok bool
		v, ok = r.(*invariant.Violation)
		if !ok {
			t.Fatalf("panic value is %T, want *invariant.Violation", r)
		}
	}()
	fn()
	return nil
}

func TestAssertionsPass(t *testing.T) {
	x := 1
	v := capture(t, func() {
		invariant.Precondition(x == 1, "math works")
		invariant.Postcondition(true, "ok")
		invariant.Invariant(len("abc") == 3, "length")
		invariant.NotNil(&x, "x")
		invariant.ExpectNoError(nil, "noop")
	})
	if v != nil {
		t.Fatalf("unexpected violation: %v", v)
	}
}

func TestAssertionsFail(t *testing.T) {
	tests := []struct {
		name     string
		fn       func()
		wantKind string
		wantMsg  string
	}{
		{
			name:     "precondition",
			fn:       func() { invariant.Precondition(false, "operator %q must start with _", "object") },
			wantKind: "PRECONDITION",
			wantMsg:  `operator "object" must start with _`,
		},
		{
			name:     "postcondition",
			fn:       func() { invariant.Postcondition(false, "result must be set") },
			wantKind: "POSTCONDITION",
			wantMsg:  "result must be set",
		},
		{
			name:     "invariant",
			fn:       func() { invariant.Invariant(false, "stage must advance") },
			wantKind: "INVARIANT",
			wantMsg:  "stage must advance",
		},
		{
			name:     "nil interface",
			fn:       func() { invariant.NotNil(nil, "registry") },
			wantKind: "PRECONDITION",
			wantMsg:  "registry must not be nil",
		},
		{
			name: "typed nil",
			fn: func() {
				var m map[string]int
				invariant.NotNil(m, "table")
			},
			wantKind: "PRECONDITION",
			wantMsg:  "table must not be nil",
		},
		{
			name:     "unexpected error",
			fn:       func() { invariant.ExpectNoError(errors.New("boom"), "encode") },
			wantKind: "POSTCONDITION",
			wantMsg:  "encode must not fail: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := capture(t, tt.fn)
			if v == nil {
				t.Fatal("expected violation")
			}
			if v.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", v.Kind, tt.wantKind)
			}
			if v.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", v.Message, tt.wantMsg)
			}
			if !strings.HasSuffix(v.File, "invariant_test.go") {
				t.Errorf("File = %q, want the asserting test file", v.File)
			}
			if !strings.Contains(v.Error(), tt.wantKind+" VIOLATION") {
				t.Errorf("Error() = %q", v.Error())
			}
		})
	}
}
