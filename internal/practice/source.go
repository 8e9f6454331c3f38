package practice

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"regexp"
	"strings"

	"github.com/ColonelBlimp/cwtutor/internal/morse"
)

// DefaultSampleLength is the number of characters per group round
const DefaultSampleLength = 5

var (
	// ErrNoParagraphs indicates a passage has no usable paragraph
	ErrNoParagraphs = errors.New("no paragraphs found in passage")
	// ErrInvalidSampleLength indicates the sample length must be positive
	ErrInvalidSampleLength = errors.New("sample length must be positive")
)

var paragraphBreak = regexp.MustCompile(`\n[ \t\r]*\n`)

// Target is the ordered sequence of expected tokens for one run.
// " " entries mark word boundaries for display and are never scored.
type Target struct {
	Tokens []string
	// Origin describes where the target came from
	Origin string
	// Skipped lists characters dropped because they have no Morse code
	Skipped []rune
}

// Scored returns the number of tokens that will be compared.
func (t Target) Scored() int {
	n := 0
	for _, tok := range t.Tokens {
		if tok != " " {
			n++
		}
	}
	return n
}

// String renders the target as text, prosigns in <XX> notation.
func (t Target) String() string {
	var b strings.Builder
	for _, tok := range t.Tokens {
		if len(tok) > 1 {
			b.WriteString("<" + tok + ">")
			continue
		}
		b.WriteString(tok)
	}
	return b.String()
}

// Source produces practice targets.
type Source interface {
	Target(rnd *rand.Rand) (Target, error)
}

// GroupSource picks characters uniformly from the enabled groups.
type GroupSource struct {
	Groups []string
	// Length is the number of characters per round (0 = DefaultSampleLength)
	Length int
}

// Target implements Source.
func (g GroupSource) Target(rnd *rand.Rand) (Target, error) {
	length := g.Length
	if length == 0 {
		length = DefaultSampleLength
	}
	if length < 0 {
		return Target{}, ErrInvalidSampleLength
	}
	pool, err := TokensFor(g.Groups)
	if err != nil {
		return Target{}, err
	}
	tokens := make([]string, length)
	for i := range tokens {
		tokens[i] = pool[rnd.Intn(len(pool))]
	}
	return Target{Tokens: tokens, Origin: "groups:" + strings.Join(g.Groups, ",")}, nil
}

// PassageSource picks one blank-line-delimited paragraph uniformly at random.
type PassageSource struct {
	Text  string
	Name  string
	Table *morse.Table
}

// LoadPassage reads a passage document from disk.
func LoadPassage(path string, table *morse.Table) (PassageSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PassageSource{}, fmt.Errorf("read passage: %w", err)
	}
	return PassageSource{Text: string(data), Name: path, Table: table}, nil
}

// Paragraphs splits the passage on blank lines, dropping empty paragraphs.
func (p PassageSource) Paragraphs() []string {
	text := strings.ReplaceAll(p.Text, "\r\n", "\n")
	var out []string
	for _, para := range paragraphBreak.Split(text, -1) {
		if s := strings.TrimSpace(para); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Target implements Source.
func (p PassageSource) Target(rnd *rand.Rand) (Target, error) {
	table := p.Table
	if table == nil {
		table = morse.Default()
	}
	paragraphs := p.Paragraphs()
	if len(paragraphs) == 0 {
		return Target{}, ErrNoParagraphs
	}
	chosen := paragraphs[rnd.Intn(len(paragraphs))]
	tokens, skipped := table.Tokenize(chosen)
	if len(tokens) == 0 {
		return Target{}, fmt.Errorf("paragraph has no encodable characters: %w", ErrNoParagraphs)
	}
	origin := "passage"
	if p.Name != "" {
		origin += ":" + p.Name
	}
	return Target{Tokens: tokens, Origin: origin, Skipped: skipped}, nil
}
