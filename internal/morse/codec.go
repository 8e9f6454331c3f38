package morse

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrUnknownSymbols indicates a symbol string has no table entry
var ErrUnknownSymbols = errors.New("no character for symbol string")

// UnmappedError reports a single input character that has no Morse code.
type UnmappedError struct {
	Char  rune
	Index int // position in the token sequence
}

func (e *UnmappedError) Error() string {
	return fmt.Sprintf("character %q at %d has no morse code", e.Char, e.Index)
}

// Decode returns the character or prosign for a symbol string.
// Symbol strings are delimited by gaps, so a single exact lookup is enough.
func (t *Table) Decode(symbols string) (string, error) {
	if symbols == WordSeparator {
		return " ", nil
	}
	token, ok := t.reverse[symbols]
	if !ok {
		return "", fmt.Errorf("%q: %w", symbols, ErrUnknownSymbols)
	}
	return token, nil
}

// Encode converts text to one symbol string per token. Spaces become "/".
// Unsupported characters leave an empty slot and are reported as *UnmappedError
// values joined into the returned error; the rest of the text is still encoded.
func (t *Table) Encode(text string) ([]string, error) {
	var out []string
	var errs []error
	t.scan(text, func(token string, bad rune) {
		if bad != 0 {
			errs = append(errs, &UnmappedError{Char: bad, Index: len(out)})
			out = append(out, "")
			return
		}
		out = append(out, t.encodeToken(token))
	})
	return out, errors.Join(errs...)
}

// EncodeTokens encodes an already tokenized sequence such as a practice target.
func (t *Table) EncodeTokens(tokens []string) ([]string, error) {
	out := make([]string, len(tokens))
	var errs []error
	for i, token := range tokens {
		if token == " " {
			out[i] = WordSeparator
			continue
		}
		s, ok := t.Symbols(token)
		if !ok {
			r, _ := utf8.DecodeRuneInString(token)
			errs = append(errs, &UnmappedError{Char: r, Index: i})
			continue
		}
		out[i] = s
	}
	return out, errors.Join(errs...)
}

// Tokenize normalizes text into table tokens: letters are upper-cased, runs of
// whitespace collapse to a single " " token, "<AR>" style prosign notation
// becomes the prosign and aliases are replaced by their prosign. Characters
// without a code are dropped from the result and returned separately.
func (t *Table) Tokenize(text string) (tokens []string, unsupported []rune) {
	t.scan(text, func(token string, bad rune) {
		if bad != 0 {
			unsupported = append(unsupported, bad)
			return
		}
		tokens = append(tokens, token)
	})
	// Trailing space carries no information
	if n := len(tokens); n > 0 && tokens[n-1] == " " {
		tokens = tokens[:n-1]
	}
	return tokens, unsupported
}

func (t *Table) encodeToken(token string) string {
	if token == " " {
		return WordSeparator
	}
	s, _ := t.Symbols(token)
	return s
}

// scan walks text and calls fn with either a canonical token or an unsupported rune.
func (t *Table) scan(text string, fn func(token string, bad rune)) {
	text = strings.ToUpper(text)
	pendingSpace := false
	emitted := false
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			pendingSpace = emitted
			i += size
			continue
		}
		if pendingSpace {
			fn(" ", 0)
			pendingSpace = false
		}
		emitted = true

		if r == '<' {
			if name, n := t.matchProsign(text[i:]); n > 0 {
				fn(name, 0)
				i += n
				continue
			}
		}

		token := string(r)
		if target, ok := t.aliases[token]; ok {
			fn(target, 0)
		} else if _, ok := t.forward[token]; ok {
			fn(token, 0)
		} else {
			fn("", r)
		}
		i += size
	}
}

// matchProsign matches "<NAME>" at the start of s, longest prosign first.
func (t *Table) matchProsign(s string) (string, int) {
	for _, name := range t.prosigns {
		notation := "<" + name + ">"
		if strings.HasPrefix(s, notation) {
			return name, len(notation)
		}
	}
	return "", 0
}
