// Package synonym maps natural-language metric phrases to the canonical
// account names used throughout the star schema.
package synonym

import (
	_ "embed"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed data_dictionary.yaml
var defaultDictionary []byte

var tokenSplit = regexp.MustCompile(`[^a-zA-Z0-9%]+`)

// Entry is one canonical metric and its phrase variants.
type Entry struct {
	Canonical string
	Phrases   []string
}

// Resolver answers canonical-name lookups against the loaded dictionary.
// Entries keep dictionary order so detection is deterministic.
type Resolver struct {
	entries []Entry
}

// Load reads a dictionary from path, or the embedded default when path is
// empty.
func Load(path string) (*Resolver, error) {
	raw := defaultDictionary
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "synonym: read %s", path)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes dictionary YAML, preserving document order of entries.
func Parse(raw []byte) (*Resolver, error) {
	var doc struct {
		Synonyms yaml.Node `yaml:"synonyms"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(err, "synonym: unmarshal dictionary")
	}
	if doc.Synonyms.Kind == 0 {
		return nil, eris.New("synonym: dictionary missing synonyms section")
	}
	if doc.Synonyms.Kind != yaml.MappingNode {
		return nil, eris.New("synonym: synonyms section is not a mapping")
	}

	r := &Resolver{}
	content := doc.Synonyms.Content
	for i := 0; i+1 < len(content); i += 2 {
		var phrases []string
		if err := content[i+1].Decode(&phrases); err != nil {
			return nil, eris.Wrapf(err, "synonym: decode phrases for %s", content[i].Value)
		}
		r.entries = append(r.entries, Entry{
			Canonical: content[i].Value,
			Phrases:   phrases,
		})
	}
	return r, nil
}

// Entries returns the dictionary in document order.
func (r *Resolver) Entries() []Entry {
	return r.entries
}

// Canonical resolves text to a canonical name when it equals one of the
// phrases exactly (case-insensitive). Returns "" when nothing matches.
func (r *Resolver) Canonical(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, e := range r.entries {
		for _, p := range e.Phrases {
			if lowered == strings.ToLower(p) {
				return e.Canonical
			}
		}
	}
	return ""
}

// DetectAccounts returns every canonical name with at least one phrase
// whose words are all present among the question's tokens. Containment is
// order-independent; results keep dictionary order with duplicates removed.
func (r *Resolver) DetectAccounts(question string) []string {
	tokens := Tokens(question)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}

	var found []string
	seen := make(map[string]struct{})
	for _, e := range r.entries {
		for _, p := range e.Phrases {
			if !phraseContained(p, set) {
				continue
			}
			if _, dup := seen[e.Canonical]; !dup {
				seen[e.Canonical] = struct{}{}
				found = append(found, e.Canonical)
			}
			break
		}
	}
	return found
}

// Tokens splits text into case-folded alphanumeric/percent tokens.
func Tokens(text string) []string {
	parts := tokenSplit.Split(strings.ToLower(text), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func phraseContained(phrase string, tokens map[string]struct{}) bool {
	words := strings.Fields(strings.ToLower(phrase))
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if _, ok := tokens[w]; !ok {
			return false
		}
	}
	return true
}
