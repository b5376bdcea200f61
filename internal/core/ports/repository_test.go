package ports

import (
	"strings"
	"testing"
)

func TestContentHandle(t *testing.T) {
	a := ContentHandle([]string{"0x1", "0x2"})
	b := ContentHandle([]string{"0x2", "0x1"})

	if !strings.HasPrefix(a, HandlePrefix) || len(a) != len(HandlePrefix)+64 {
		t.Fatalf("unexpected handle format %q", a)
	}

	if a == b {
		t.Error("handle must depend on hash order")
	}

	if ContentHandle(nil) != ContentHandle([]string{}) {
		t.Error("nil and empty lists must share a handle")
	}

	// sha256 of "[]"
	if got := ContentHandle(nil); got != HandlePrefix+"4f53cda18c2baa0c0354bb5f9a3ecbe5ed12ab4d8e11ba873c2f11161202b945" {
		t.Errorf("ContentHandle(nil) = %q", got)
	}
}
