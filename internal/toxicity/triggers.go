package toxicity

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type PhraseKind string

const (
	PhraseRegex   PhraseKind = "regex"
	PhraseLiteral PhraseKind = "literal"
)

// Phrase is one trigger. A bare YAML string is a regex fragment; a mapping
// with a "literal" key is a plain word matched on word boundaries.
type Phrase struct {
	Kind  PhraseKind
	Value string
}

func (p *Phrase) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		p.Kind = PhraseRegex
		p.Value = node.Value
		return nil
	case yaml.MappingNode:
		var raw struct {
			Regex   *string `yaml:"regex"`
			Literal *string `yaml:"literal"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		switch {
		case raw.Regex != nil && raw.Literal != nil:
			return fmt.Errorf("line %d: phrase sets both regex and literal", node.Line)
		case raw.Regex != nil:
			p.Kind, p.Value = PhraseRegex, *raw.Regex
		case raw.Literal != nil:
			p.Kind, p.Value = PhraseLiteral, *raw.Literal
		default:
			return fmt.Errorf("line %d: phrase needs a regex or literal key", node.Line)
		}
		return nil
	default:
		return fmt.Errorf("line %d: unsupported phrase node", node.Line)
	}
}

func (p Phrase) pattern() string {
	if p.Kind == PhraseLiteral {
		return `\b` + regexp.QuoteMeta(strings.ToLower(p.Value)) + `\b`
	}
	return p.Value
}

type CategoryConfig struct {
	Name    string   `yaml:"name"`
	Phrases []Phrase `yaml:"phrases"`
}

type TriggerConfig struct {
	Categories []CategoryConfig `yaml:"categories"`
}

// Category is a compiled trigger bucket.
type Category struct {
	Name    string
	matcher *regexp.Regexp
}

// Match returns the distinct lowercase substrings of text matched by the
// category, in order of first appearance. Categories without phrases never match.
func (c Category) Match(text string) ([]string, bool) {
	if c.matcher == nil {
		return nil, false
	}
	found := c.matcher.FindAllString(text, -1)
	if len(found) == 0 {
		return nil, false
	}
	seen := make(map[string]struct{}, len(found))
	matches := make([]string, 0, len(found))
	for _, m := range found {
		m = strings.ToLower(m)
		if strings.TrimSpace(m) == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		matches = append(matches, m)
	}
	if len(matches) == 0 {
		return nil, false
	}
	return matches, true
}

// Separate pads every match with spaces so adjacent triggers cannot fuse
// into new tokens for the categories evaluated afterwards.
func (c Category) Separate(text string) string {
	if c.matcher == nil {
		return text
	}
	return c.matcher.ReplaceAllString(text, " $0 ")
}

// TriggerSet is the read-only, ordered list of compiled categories.
type TriggerSet struct {
	categories []Category
}

func CompileCategory(name string, phrases []Phrase) (Category, error) {
	category := Category{Name: name}
	parts := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		pattern := phrase.pattern()
		if strings.TrimSpace(pattern) == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Category{}, fmt.Errorf("category %s: phrase %q: %w", name, phrase.Value, err)
		}
		// Separate would pad every empty match and split the text apart.
		if re.MatchString("") {
			return Category{}, fmt.Errorf("category %s: phrase %q matches empty text", name, phrase.Value)
		}
		parts = append(parts, "(?:"+pattern+")")
	}
	if len(parts) == 0 {
		return category, nil
	}
	re, err := regexp.Compile("(?i)" + strings.Join(parts, "|"))
	if err != nil {
		return Category{}, fmt.Errorf("category %s: %w", name, err)
	}
	category.matcher = re
	return category, nil
}

func NewTriggerSet(cfg TriggerConfig) (*TriggerSet, error) {
	if len(cfg.Categories) == 0 {
		return nil, ErrNoCategories
	}
	seen := make(map[string]struct{}, len(cfg.Categories))
	set := &TriggerSet{categories: make([]Category, 0, len(cfg.Categories))}
	for _, c := range cfg.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, errors.New("trigger category without name")
		}
		if name == LabelOK {
			return nil, fmt.Errorf("category name %q is reserved", LabelOK)
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate trigger category %q", name)
		}
		seen[name] = struct{}{}
		category, err := CompileCategory(name, c.Phrases)
		if err != nil {
			return nil, err
		}
		set.categories = append(set.categories, category)
	}
	return set, nil
}

func ParseTriggers(data []byte) (*TriggerSet, error) {
	var cfg TriggerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse triggers: %w", err)
	}
	return NewTriggerSet(cfg)
}

func LoadTriggers(path string) (*TriggerSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read triggers: %w", err)
	}
	return ParseTriggers(data)
}

func (s *TriggerSet) Categories() []Category {
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s *TriggerSet) Has(name string) bool {
	for _, category := range s.categories {
		if category.Name == name {
			return true
		}
	}
	return false
}

func (s *TriggerSet) Names() []string {
	names := make([]string, len(s.categories))
	for i, c := range s.categories {
		names[i] = c.Name
	}
	return names
}
