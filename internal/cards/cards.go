// Package cards loads the program cards shown when a filter narrows to a
// single category.
package cards

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"measure-tracker/internal/category"
	"measure-tracker/internal/filter"
	"measure-tracker/internal/models"
)

// Card describes one top-level program. Key is the name of a root category.
type Card struct {
	Key         string `yaml:"key" json:"key"`
	Image       string `yaml:"image" json:"image"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Deck is an ordered, read-only set of cards
type Deck struct {
	cards []Card
}

// Parse reads a YAML list of cards
func Parse(data []byte) (*Deck, error) {
	var cards []Card
	if err := yaml.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("parsing category cards: %w", err)
	}
	for i, c := range cards {
		if c.Key == "" {
			return nil, fmt.Errorf("category card %d has no key", i)
		}
	}
	return &Deck{cards: cards}, nil
}

// Load reads cards from path. An empty path yields an empty deck.
func Load(path string) (*Deck, error) {
	if path == "" {
		return &Deck{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category cards: %w", err)
	}
	return Parse(data)
}

// Len returns the number of cards
func (d *Deck) Len() int {
	return len(d.cards)
}

// All returns every card with its description taken from the category of the
// same name, when there is one
func (d *Deck) All(resolver *category.Resolver) []Card {
	out := make([]Card, 0, len(d.cards))
	for _, c := range d.cards {
		out = append(out, withDescription(c, resolver))
	}
	return out
}

// ForFilter returns the card of the parent of the selected category. It only
// applies when exactly one category is selected.
func (d *Deck) ForFilter(spec filter.Spec, resolver *category.Resolver) (Card, bool) {
	if len(spec.Category) != 1 {
		return Card{}, false
	}
	selected, ok := resolver.ByName(spec.Category[0])
	if !ok {
		return Card{}, false
	}
	parent := resolver.ParentOf(models.Known(selected))
	for _, c := range d.cards {
		if c.Key == parent.Name() {
			return withDescription(c, resolver), true
		}
	}
	return Card{}, false
}

func withDescription(c Card, resolver *category.Resolver) Card {
	if resolver == nil {
		return c
	}
	if cat, ok := resolver.ByName(c.Key); ok && cat.Description != "" {
		c.Description = cat.Description
	}
	return c
}
