package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestChunk_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t "} {
		if got := Chunk(in, 300, 50); len(got) != 0 {
			t.Errorf("Chunk(%q) = %v, want empty", in, got)
		}
	}
}

func TestChunk_ShorterThanSize(t *testing.T) {
	got := Chunk("  hello   world\n", 300, 50)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0] != "hello world" {
		t.Errorf("chunk = %q, want %q", got[0], "hello world")
	}
}

func TestChunk_Windows(t *testing.T) {
	got := Chunk(words(10), 4, 1)
	want := []string{
		"w0 w1 w2 w3",
		"w3 w4 w5 w6",
		"w6 w7 w8 w9",
		"w9",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChunk_OverlapNotLessThanSize(t *testing.T) {
	got := Chunk(words(5), 3, 3)
	if len(got) != 5 {
		t.Fatalf("stride should be 1, got %d chunks", len(got))
	}
	if got[1] != "w1 w2 w3" {
		t.Errorf("second chunk = %q", got[1])
	}

	got = Chunk(words(5), 3, 10)
	if len(got) != 5 {
		t.Fatalf("overlap > size should also force stride 1, got %d chunks", len(got))
	}
}

func TestChunk_DefaultSize(t *testing.T) {
	got := Chunk(words(301), 0, 50)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks with defaults, got %d", len(got))
	}
	if n := len(strings.Fields(got[0])); n != DefaultSize {
		t.Errorf("first chunk has %d words, want %d", n, DefaultSize)
	}
}

func TestChunk_CountMatches(t *testing.T) {
	cases := []struct{ n, size, overlap int }{
		{1, 300, 50},
		{250, 300, 50},
		{300, 300, 50},
		{1000, 300, 50},
		{17, 5, 2},
		{9, 3, 7},
	}
	for _, tc := range cases {
		got := len(Chunk(words(tc.n), tc.size, tc.overlap))
		if want := windowCount(tc.n, tc.size, tc.overlap); got != want {
			t.Errorf("n=%d size=%d overlap=%d: %d chunks, expected %d", tc.n, tc.size, tc.overlap, got, want)
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	text := words(777)
	a := Chunk(text, 300, 50)
	b := Chunk(text, 300, 50)
	if strings.Join(a, "|") != strings.Join(b, "|") {
		t.Error("Chunk is not deterministic")
	}
}

// windowCount is the number of windows a text of n words spans.
func windowCount(n, size, overlap int) int {
	if n <= 0 {
		return 0
	}
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	stride := size - overlap
	if stride < 1 {
		stride = 1
	}
	return (n + stride - 1) / stride
}
