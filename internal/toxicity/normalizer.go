package toxicity

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	EmojiTagPattern  = `<a?:\w+:\d+>`
	URLPattern       = `https?://\S+|www\.\S+`
	NonLetterPattern = `[^a-z\s]`

	DefaultMinLength = 3
)

// DefaultNoisePatterns is the removal order used for chat messages. Emoji tags
// go first so their name is not left behind once the catch-all eats the delimiters.
var DefaultNoisePatterns = []string{EmojiTagPattern, URLPattern, NonLetterPattern}

// DefaultTransliteration folds Romanian and common western diacritics.
var DefaultTransliteration = map[string]string{
	"ă": "a", "â": "a", "à": "a", "á": "a", "ä": "a", "ã": "a", "å": "a",
	"î": "i", "ì": "i", "í": "i", "ï": "i",
	"ș": "s", "ş": "s", "ß": "ss",
	"ț": "t", "ţ": "t",
	"è": "e", "é": "e", "ê": "e", "ë": "e",
	"ò": "o", "ó": "o", "ô": "o", "ö": "o", "õ": "o",
	"ù": "u", "ú": "u", "û": "u", "ü": "u",
	"ç": "c", "ñ": "n",
}

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

type NormalizerOptions struct {
	// Transliteration entries are merged over DefaultTransliteration.
	Transliteration map[string]string
	// NoisePatterns replaces DefaultNoisePatterns when non-nil.
	NoisePatterns []string
	MinLength     int
}

// Normalizer curates raw chat text before regex and model analysis. It holds
// no mutable state and may be shared between goroutines.
type Normalizer struct {
	table     *strings.Replacer
	noise     []*regexp.Regexp
	minLength int
}

func NewNormalizer(opts NormalizerOptions) (*Normalizer, error) {
	table := make(map[string]string, len(DefaultTransliteration)+len(opts.Transliteration))
	for from, to := range DefaultTransliteration {
		table[from] = to
	}
	for from, to := range opts.Transliteration {
		table[strings.ToLower(from)] = to
	}

	patterns := opts.NoisePatterns
	if patterns == nil {
		patterns = DefaultNoisePatterns
	}
	noise := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("noise pattern %q: %w", pattern, err)
		}
		noise = append(noise, re)
	}

	minLength := opts.MinLength
	if minLength <= 0 {
		minLength = DefaultMinLength
	}

	return &Normalizer{table: newReplacer(table), noise: noise, minLength: minLength}, nil
}

// Normalize lowercases, folds diacritics, deletes noise and trims the text.
// It returns ErrTooShort when fewer than MinLength runes survive.
func (n *Normalizer) Normalize(text string) (string, error) {
	out := strings.ToLower(text)
	out = lineBreaks.ReplaceAllString(out, " ")
	out = n.table.Replace(out)
	out = foldMarks(out)
	for _, re := range n.noise {
		out = re.ReplaceAllString(out, "")
	}
	out = strings.TrimSpace(out)
	if utf8.RuneCountInString(out) < n.minLength {
		return "", ErrTooShort
	}
	return out, nil
}

func foldMarks(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return folded
}

// newReplacer orders keys longest first so multi-rune entries win over their prefixes.
func newReplacer(table map[string]string) *strings.Replacer {
	keys := make([]string, 0, len(table))
	for key := range table {
		if key == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, key, table[key])
	}
	return strings.NewReplacer(pairs...)
}
