package main

import (
	"strings"
	"testing"
)

func TestLineWriterEmitsCompleteLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		writes    []string
		wantLines []string
		wantAfter []string // additional lines emitted by Flush
	}{
		{
			name:      "single terminated line",
			writes:    []string{"hello\n"},
			wantLines: []string{"hello"},
			wantAfter: nil,
		},
		{
			name:      "line split across writes",
			writes:    []string{"hel", "lo\nwor", "ld\n"},
			wantLines: []string{"hello", "world"},
			wantAfter: nil,
		},
		{
			name:      "no newline buffers until flush",
			writes:    []string{"partial", " output"},
			wantLines: nil,
			wantAfter: []string{"partial output"},
		},
		{
			name:      "trailing remainder flushed once",
			writes:    []string{"a\nb\nc"},
			wantLines: []string{"a", "b"},
			wantAfter: []string{"c"},
		},
		{
			name:      "empty lines preserved",
			writes:    []string{"\n\nx\n"},
			wantLines: []string{"", "", "x"},
			wantAfter: nil,
		},
		{
			name:      "multiple lines in one write",
			writes:    []string{"one\ntwo\nthree\n"},
			wantLines: []string{"one", "two", "three"},
			wantAfter: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got []string
			w := newLineWriter(func(line string) { got = append(got, line) })

			for _, s := range tt.writes {
				n, err := w.Write([]byte(s))
				if err != nil {
					t.Fatalf("Write() error = %v", err)
				}
				if n != len(s) {
					t.Fatalf("Write() = %d, want %d", n, len(s))
				}
			}

			if !equalStrings(got, tt.wantLines) {
				t.Errorf("before flush: lines = %q, want %q", got, tt.wantLines)
			}

			got = nil
			w.Flush()
			if !equalStrings(got, tt.wantAfter) {
				t.Errorf("after flush: lines = %q, want %q", got, tt.wantAfter)
			}
		})
	}
}

// The concatenation of emitted lines, rejoined with newlines, must
// reconstruct exactly the bytes written, modulo the final unterminated
// remainder being flushed once.
func TestLineWriterReconstruction(t *testing.T) {
	t.Parallel()

	inputs := [][]string{
		{"Connecting....", "....\n", "Writing at 0x0000 (12 %)\n"},
		{"no newline at all"},
		{"a\n", "b", "c\nd"},
		{"\n"},
	}

	for _, writes := range inputs {
		var emitted []string
		terminated := 0
		w := newLineWriter(func(line string) { emitted = append(emitted, line) })

		for _, s := range writes {
			w.Write([]byte(s))
		}
		terminated = len(emitted)
		w.Flush()

		whole := strings.Join(writes, "")
		var rebuilt strings.Builder
		for i, line := range emitted {
			rebuilt.WriteString(line)
			if i < terminated {
				rebuilt.WriteString("\n")
			}
		}

		if rebuilt.String() != whole {
			t.Errorf("reconstruction mismatch: got %q, want %q", rebuilt.String(), whole)
		}
	}
}

func TestLineWriterFlushIdempotent(t *testing.T) {
	t.Parallel()

	var got []string
	w := newLineWriter(func(line string) { got = append(got, line) })
	w.Write([]byte("tail"))
	w.Flush()
	w.Flush()

	if len(got) != 1 || got[0] != "tail" {
		t.Errorf("lines = %q, want [tail]", got)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
