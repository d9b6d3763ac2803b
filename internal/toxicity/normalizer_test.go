package toxicity

import (
	"errors"
	"testing"
)

func newTestNormalizer(t *testing.T, opts NormalizerOptions) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(opts)
	if err != nil {
		t.Fatalf("new normalizer: %v", err)
	}
	return n
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer(t, NormalizerOptions{})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"noise and url", "ESTI UN PROST!!! http://x.com", "esti un prost"},
		{"romanian diacritics", "Ești un prostănac", "esti un prostanac"},
		{"cedilla variants", "ţigan şmecher", "tigan smecher"},
		{"line breaks", "salut\r\nce\n\nfaci", "salut ce faci"},
		{"emoji tag", "hello <:pepe:123456> world", "hello  world"},
		{"animated emoji tag", "<a:dance:42>bravo", "bravo"},
		{"unlisted accent folded", "Źle robisz", "zle robisz"},
		{"www url", "vezi www.exemplu.ro acum", "vezi  acum"},
	}

	for _, tt := range tests {
		got, err := n.Normalize(tt.input)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: Normalize(%q) = %q, want %q", tt.name, tt.input, got, tt.want)
		}
	}
}

func TestNormalizeTooShort(t *testing.T) {
	n := newTestNormalizer(t, NormalizerOptions{})
	for _, input := range []string{"h!", "", "   ", "<:x:1>", "ok", "https://example.com"} {
		if _, err := n.Normalize(input); !errors.Is(err, ErrTooShort) {
			t.Fatalf("Normalize(%q): expected ErrTooShort, got %v", input, err)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := newTestNormalizer(t, NormalizerOptions{})
	inputs := []string{
		"ESTI UN PROST!!! http://x.com",
		"Ești un prostănac <:kek:99> ",
		"  multe    spatii\n\nși rânduri  ",
		"Crème brûlée façade",
	}
	for _, input := range inputs {
		once, err := n.Normalize(input)
		if err != nil {
			t.Fatalf("first pass %q: %v", input, err)
		}
		twice, err := n.Normalize(once)
		if err != nil {
			t.Fatalf("second pass %q: %v", once, err)
		}
		if once != twice {
			t.Fatalf("not idempotent: %q -> %q -> %q", input, once, twice)
		}
	}
}

func TestNormalizeCustomTable(t *testing.T) {
	plain := newTestNormalizer(t, NormalizerOptions{})
	if got, _ := plain.Normalize("brød og smør"); got != "brd og smr" {
		t.Fatalf("expected undecomposable letters dropped, got %q", got)
	}

	custom := newTestNormalizer(t, NormalizerOptions{Transliteration: map[string]string{"Ø": "o"}})
	got, err := custom.Normalize("brød og smør")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "brod og smor" {
		t.Fatalf("expected custom transliteration, got %q", got)
	}
}

func TestNormalizeCustomNoiseOrder(t *testing.T) {
	n := newTestNormalizer(t, NormalizerOptions{NoisePatterns: []string{`\d+`}, MinLength: 5})
	got, err := n.Normalize("abc123def!")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "abcdef!" {
		t.Fatalf("expected only digits removed, got %q", got)
	}
	if _, err := n.Normalize("ab12"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort under custom min length, got %v", err)
	}
}

func TestNewNormalizerRejectsBadPattern(t *testing.T) {
	if _, err := NewNormalizer(NormalizerOptions{NoisePatterns: []string{"(unclosed"}}); err == nil {
		t.Fatalf("expected compile error")
	}
}
