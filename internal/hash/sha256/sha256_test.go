package sha256

import "testing"

func TestHexKnownDigest(t *testing.T) {
	t.Parallel()

	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got := Hex([]byte("hello world")); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got := String("hello world"); got != want {
		t.Fatalf("String() = %s, want %s", got, want)
	}
}

func TestHexEmpty(t *testing.T) {
	t.Parallel()

	if got := Hex(nil); len(got) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(got))
	}
}
