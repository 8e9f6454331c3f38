// internal/practice/groups.go
// Package practice generates practice targets and scores learner input against them.
package practice

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownGroup indicates a practice group ID is not in the catalog
	ErrUnknownGroup = errors.New("unknown practice group")
	// ErrNoCharacters indicates the enabled groups contribute no characters
	ErrNoCharacters = errors.New("no characters selected: enable at least one practice group")
)

// Group is a named set of characters to practise.
type Group struct {
	ID     string
	Name   string
	Tokens []string
}

// Groups is the catalog, Koch lessons first in teaching order.
var Groups = []Group{
	{ID: "koch-1", Name: "Koch: K, M", Tokens: []string{"K", "M"}},
	{ID: "koch-2", Name: "Koch: R, S, U", Tokens: []string{"R", "S", "U"}},
	{ID: "koch-3", Name: "Koch: A, P, W", Tokens: []string{"A", "P", "W"}},
	{ID: "koch-4", Name: "Koch: B, D, X", Tokens: []string{"B", "D", "X"}},
	{ID: "koch-5", Name: "Koch: C, Y, Z, Q", Tokens: []string{"C", "Y", "Z", "Q"}},
	{ID: "koch-6", Name: "Koch: F, L, V, G", Tokens: []string{"F", "L", "V", "G"}},
	{ID: "koch-7", Name: "Koch: J, O", Tokens: []string{"J", "O"}},
	{ID: "koch-8", Name: "Koch: H, E", Tokens: []string{"H", "E"}},
	{
		ID:   "letters",
		Name: "Letters",
		Tokens: []string{
			"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
			"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
		},
	},
	{ID: "numbers", Name: "Numbers", Tokens: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "0"}},
	{ID: "punctuation", Name: "Punctuation", Tokens: []string{".", ",", "?", "/", "'", "!", ":", ";", "-", "\"", "@"}},
	{ID: "prosigns", Name: "Prosigns", Tokens: []string{"AR", "SK", "SOS", "BT", "KA", "KN"}},
}

// DefaultGroups are enabled for a new profile.
var DefaultGroups = []string{"letters", "numbers", "prosigns"}

// LookupGroup returns the catalog entry for id.
func LookupGroup(id string) (Group, bool) {
	for _, g := range Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// TokensFor returns the characters of the enabled groups, without duplicates,
// in catalog order.
func TokensFor(ids []string) ([]string, error) {
	enabled := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := LookupGroup(id); !ok {
			return nil, fmt.Errorf("%q: %w", id, ErrUnknownGroup)
		}
		enabled[id] = true
	}

	seen := map[string]bool{}
	var tokens []string
	for _, g := range Groups {
		if !enabled[g.ID] {
			continue
		}
		for _, tok := range g.Tokens {
			if !seen[tok] {
				seen[tok] = true
				tokens = append(tokens, tok)
			}
		}
	}
	if len(tokens) == 0 {
		return nil, ErrNoCharacters
	}
	return tokens, nil
}
