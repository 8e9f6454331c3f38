// internal/morse/table.go
// Package morse maps characters and prosigns to Morse symbol strings and back.
package morse

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// Dit is the symbol for a short element
	Dit = '.'
	// Dah is the symbol for a long element
	Dah = '-'
	// WordSeparator is the symbol emitted for a space in the text-to-Morse direction
	WordSeparator = "/"
	// MaxSymbols is the longest symbol string the table may contain (SOS = 9 elements)
	MaxSymbols = 9
)

var (
	// ErrEmptySymbols indicates a table entry has no elements
	ErrEmptySymbols = errors.New("symbol string is empty")
	// ErrInvalidSymbol indicates a symbol string contains something other than dits and dahs
	ErrInvalidSymbol = errors.New("symbol string may only contain '.' and '-'")
	// ErrSymbolsTooLong indicates a symbol string is longer than MaxSymbols
	ErrSymbolsTooLong = errors.New("symbol string exceeds maximum length")
	// ErrDuplicateSymbols indicates two table entries share the same symbol string
	ErrDuplicateSymbols = errors.New("symbol string is assigned to more than one entry")
	// ErrUnknownAlias indicates an alias points at an entry the table does not contain
	ErrUnknownAlias = errors.New("alias target is not in the table")
)

// Characters is the single-character table (ITU).
// '+', '=' and '(' are not listed: they share their codes with the AR, BT and KN
// prosigns and are handled as Aliases.
var Characters = map[string]string{
	"A": ".-", "B": "-...", "C": "-.-.", "D": "-..", "E": ".", "F": "..-.",
	"G": "--.", "H": "....", "I": "..", "J": ".---", "K": "-.-", "L": ".-..",
	"M": "--", "N": "-.", "O": "---", "P": ".--.", "Q": "--.-", "R": ".-.",
	"S": "...", "T": "-", "U": "..-", "V": "...-", "W": ".--", "X": "-..-",
	"Y": "-.--", "Z": "--..",

	"1": ".----", "2": "..---", "3": "...--", "4": "....-", "5": ".....",
	"6": "-....", "7": "--...", "8": "---..", "9": "----.", "0": "-----",

	".": ".-.-.-", ",": "--..--", "?": "..--..", "'": ".----.", "!": "-.-.--",
	"/": "-..-.", ")": "-.--.-", "&": ".-...", ":": "---...", ";": "-.-.-.",
	"-": "-....-", "_": "..--.-", "\"": ".-..-.", "$": "...-..-", "@": ".--.-.",
}

// Prosigns are keyed as one character without the inter-character gap.
var Prosigns = map[string]string{
	"AR":  ".-.-.",
	"SK":  "...-.-",
	"SOS": "...---...",
	"BT":  "-...-",
	"KA":  "-.-.-",
	"KN":  "-.--.",
}

// Aliases are encode-only characters that key as a prosign.
var Aliases = map[string]string{
	"+": "AR",
	"=": "BT",
	"(": "KN",
}

// Table is an immutable bidirectional Morse lookup.
type Table struct {
	forward  map[string]string // token -> symbols
	reverse  map[string]string // symbols -> token
	aliases  map[string]string // alias -> token
	prosigns []string          // prosign names, longest first
}

// NewTable builds a table from character and prosign maps and validates it.
// Every symbol string must be non-empty, contain only dits and dahs and be
// unique across both maps, otherwise construction fails. A symbol string may
// be a prefix of another (E "." and I ".."): characters are delimited by gaps,
// so lookups are always of the whole string.
func NewTable(chars, prosigns, aliases map[string]string) (*Table, error) {
	t := &Table{
		forward: make(map[string]string, len(chars)+len(prosigns)),
		reverse: make(map[string]string, len(chars)+len(prosigns)),
		aliases: make(map[string]string, len(aliases)),
	}

	var errs []error
	add := func(token, symbols string) {
		if err := validateSymbols(symbols); err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", token, err))
			return
		}
		if owner, ok := t.reverse[symbols]; ok {
			errs = append(errs, fmt.Errorf("%q and %q (%s): %w", owner, token, symbols, ErrDuplicateSymbols))
			return
		}
		t.forward[token] = symbols
		t.reverse[symbols] = token
	}

	// Sorted so that error messages are stable
	for _, token := range sortedKeys(chars) {
		add(token, chars[token])
	}
	for _, token := range sortedKeys(prosigns) {
		add(token, prosigns[token])
		t.prosigns = append(t.prosigns, token)
	}
	for _, alias := range sortedKeys(aliases) {
		target := aliases[alias]
		if _, ok := t.forward[target]; !ok {
			errs = append(errs, fmt.Errorf("%q -> %q: %w", alias, target, ErrUnknownAlias))
			continue
		}
		t.aliases[alias] = target
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.SliceStable(t.prosigns, func(i, j int) bool {
		return len(t.prosigns[i]) > len(t.prosigns[j])
	})
	return t, nil
}

func validateSymbols(symbols string) error {
	if symbols == "" {
		return ErrEmptySymbols
	}
	if len(symbols) > MaxSymbols {
		return ErrSymbolsTooLong
	}
	if strings.Trim(symbols, string([]rune{Dit, Dah})) != "" {
		return ErrInvalidSymbol
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var defaultTable = mustTable(NewTable(Characters, Prosigns, Aliases))

func mustTable(t *Table, err error) *Table {
	if err != nil {
		panic(fmt.Sprintf("morse: invalid built-in table: %v", err))
	}
	return t
}

// Default returns the built-in table.
func Default() *Table {
	return defaultTable
}

// Symbols returns the symbol string for a token (character, prosign or alias).
func (t *Table) Symbols(token string) (string, bool) {
	if target, ok := t.aliases[token]; ok {
		token = target
	}
	s, ok := t.forward[token]
	return s, ok
}

// IsProsign reports whether token is a prosign name.
func (t *Table) IsProsign(token string) bool {
	_, ok := t.forward[token]
	return ok && len(token) > 1
}

// Tokens returns every character and prosign in the table, sorted.
func (t *Table) Tokens() []string {
	return sortedKeys(t.forward)
}

// Prosigns returns the prosign names, longest first.
func (t *Table) Prosigns() []string {
	out := make([]string, len(t.prosigns))
	copy(out, t.prosigns)
	return out
}
