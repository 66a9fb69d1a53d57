// Package topic is the static table of dashboard tabs and the query-triggered
// relevance rules that go with them.
package topic

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed topics.yaml
var defaultTopics []byte

// Rule modes.
const (
	// ModeRequire drops articles that do not mention the trigger at all.
	ModeRequire = "require"
	// ModeDisambiguate keeps an article mentioning the trigger only when a context word is present too.
	ModeDisambiguate = "disambiguate"
)

// Config describes one tab.
type Config struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	ShortLabel  string `yaml:"shortLabel" json:"shortLabel"`
	Query       string `yaml:"query" json:"query"`
	Icon        string `yaml:"icon" json:"icon"`
	Description string `yaml:"description" json:"description"`
}

// Rule is a relevance filter applied when the query contains Trigger.
type Rule struct {
	Trigger string   `yaml:"trigger"`
	Mode    string   `yaml:"mode"`
	Context []string `yaml:"context"`
}

// File is the YAML layout.
//
//	topics:
//	  - id: NRF
//	    query: ...
//	filters:
//	  - trigger: ...
//	    mode: require
type File struct {
	Topics  []Config `yaml:"topics"`
	Filters []Rule   `yaml:"filters"`
}

// Registry is read-only after construction.
type Registry struct {
	topics []Config
	byID   map[string]Config
	rules  []Rule
}

// Default returns the registry compiled into the binary.
func Default() (*Registry, error) {
	return Parse(bytes.NewReader(defaultTopics))
}

// Load reads a registry from path, or the built-in table when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open topics file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a topics document.
func Parse(r io.Reader) (*Registry, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	return New(file.Topics, file.Filters)
}

// New builds a registry from already decoded values.
func New(topics []Config, rules []Rule) (*Registry, error) {
	if len(topics) == 0 {
		return nil, errors.New("no topics configured")
	}

	reg := &Registry{byID: make(map[string]Config, len(topics))}
	for i, t := range topics {
		if t.ID == "" {
			return nil, fmt.Errorf("topic #%d: id is required", i+1)
		}
		if t.Query == "" {
			return nil, fmt.Errorf("topic %s: query is required", t.ID)
		}
		if _, dup := reg.byID[t.ID]; dup {
			return nil, fmt.Errorf("topic %s: duplicate id", t.ID)
		}
		reg.byID[t.ID] = t
		reg.topics = append(reg.topics, t)
	}

	for i, r := range rules {
		if r.Trigger == "" {
			return nil, fmt.Errorf("filter #%d: trigger is required", i+1)
		}
		switch r.Mode {
		case ModeRequire:
		case ModeDisambiguate:
			if len(r.Context) == 0 {
				return nil, fmt.Errorf("filter %s: disambiguate needs context words", r.Trigger)
			}
		default:
			return nil, fmt.Errorf("filter %s: unknown mode %q", r.Trigger, r.Mode)
		}
		reg.rules = append(reg.rules, Rule{
			Trigger: r.Trigger,
			Mode:    r.Mode,
			Context: append([]string(nil), r.Context...),
		})
	}

	return reg, nil
}

// All returns the topics in tab order.
func (r *Registry) All() []Config {
	return append([]Config(nil), r.topics...)
}

// Get looks a topic up by id.
func (r *Registry) Get(id string) (Config, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// Rules returns copies of the configured relevance rules.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	for i, rule := range r.rules {
		rule.Context = append([]string(nil), rule.Context...)
		out[i] = rule
	}
	return out
}
