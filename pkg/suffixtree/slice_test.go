package suffixtree

import "testing"

func TestSlice_Layout(t *testing.T) {
	s := NewMultiSlice([][]rune{[]rune("ab"), {}, []rune("c")})

	if s.Len() != 6 {
		t.Fatalf("Expected 6 positions, got %d", s.Len())
	}
	if s.WordCount() != 3 {
		t.Errorf("Expected 3 words, got %d", s.WordCount())
	}

	tests := []struct {
		pos    int
		word   int
		offset int
		ok     bool
	}{
		{0, 0, 0, true},
		{1, 0, 1, true},
		{2, 0, 2, false},
		{3, 1, 0, false},
		{4, 2, 0, true},
		{5, 2, 1, false},
	}
	for _, tt := range tests {
		word, offset, ok := s.Locate(tt.pos)
		if word != tt.word || offset != tt.offset || ok != tt.ok {
			t.Errorf("Locate(%d) = (%d, %d, %v), want (%d, %d, %v)",
				tt.pos, word, offset, ok, tt.word, tt.offset, tt.ok)
		}
	}
}

func TestSlice_TerminatorsAreUnique(t *testing.T) {
	s := NewMultiSlice([][]rune{[]rune("a"), []rune("a")})

	if s.Key(1) == s.Key(3) {
		t.Error("Expected terminators of different words to differ")
	}
	if !s.Key(1).IsTerminator() || s.Key(0).IsTerminator() {
		t.Error("Terminator flags are wrong")
	}
	if _, ok := s.Get(1); ok {
		t.Error("Expected Get on a terminator to report false")
	}
	if s.preceding(0) == s.preceding(2) {
		t.Error("Expected word starts to have distinct left contexts")
	}
}

func TestSlice_Sub(t *testing.T) {
	s := NewMultiSlice([][]rune{[]rune("abc"), []rune("de")})

	if got := string(s.Sub(4, 2)); got != "de" {
		t.Errorf("Sub(4, 2) = %q, want %q", got, "de")
	}
	if s.WordStart(1) != 4 {
		t.Errorf("Expected word 1 to start at 4, got %d", s.WordStart(1))
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected Sub across a terminator to panic")
		}
	}()
	s.Sub(2, 3)
}
