// internal/player/player.go
// Package player sounds encoded text with correct element and gap timing.
package player

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwtutor/internal/keyer"
	"github.com/ColonelBlimp/cwtutor/internal/morse"
)

// ErrKeyRequired indicates the player needs something to key
var ErrKeyRequired = errors.New("key is required")

// Key is switched on and off by the player, typically a sidetone.Buzzer.
type Key interface {
	On()
	Off()
}

// Step is one interval of the schedule.
type Step struct {
	On       bool
	Duration time.Duration
}

// Config holds player configuration.
type Config struct {
	WPM           int
	FarnsworthWPM int
	// OnToken is called as each token starts sounding
	OnToken func(index int, token string)
}

// Player keys a Key from encoded symbols.
type Player struct {
	config Config
	timing keyer.Timing
	table  *morse.Table
	key    Key
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a player.
func New(cfg Config, table *morse.Table, key Key, logger *zap.Logger) (*Player, error) {
	if key == nil {
		return nil, ErrKeyRequired
	}
	if table == nil {
		return nil, keyer.ErrTableRequired
	}
	timing, err := keyer.NewTiming(cfg.WPM, cfg.FarnsworthWPM)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{config: cfg, timing: timing, table: table, key: key, logger: logger, sleep: sleepCtx}, nil
}

// Schedule converts symbol strings (as returned by Encode) into on/off steps.
// Empty entries from unmapped characters are skipped.
func Schedule(symbols []string, timing keyer.Timing) []Step {
	var steps []Step
	gap := func(d time.Duration) {
		if len(steps) == 0 {
			return
		}
		last := &steps[len(steps)-1]
		if !last.On {
			if d > last.Duration {
				last.Duration = d
			}
			return
		}
		steps = append(steps, Step{Duration: d})
	}

	for _, s := range symbols {
		switch s {
		case "":
			continue
		case morse.WordSeparator:
			gap(timing.WordGap)
			continue
		}
		gap(timing.CharGap)
		for i := 0; i < len(s); i++ {
			if i > 0 {
				steps = append(steps, Step{Duration: timing.IntraGap})
			}
			d := timing.Unit
			if s[i] == morse.Dah {
				d = timing.Dah
			}
			steps = append(steps, Step{On: true, Duration: d})
		}
	}
	// Trailing silence carries nothing
	if n := len(steps); n > 0 && !steps[n-1].On {
		steps = steps[:n-1]
	}
	return steps
}

// Play sounds text. Unsupported characters are skipped and reported in the
// returned error once playback finishes.
func (p *Player) Play(ctx context.Context, text string) error {
	tokens, unsupported := p.table.Tokenize(text)
	symbols, err := p.table.EncodeTokens(tokens)
	if err != nil {
		return err
	}
	if len(unsupported) > 0 {
		p.logger.Warn("skipping characters with no Morse code", zap.String("chars", string(unsupported)))
	}
	return p.PlayTokens(ctx, tokens, symbols)
}

// PlayTokens sounds pre-encoded tokens, reporting each one through OnToken.
func (p *Player) PlayTokens(ctx context.Context, tokens, symbols []string) error {
	defer p.key.Off()

	for i, s := range symbols {
		if s == "" {
			continue
		}
		if s == morse.WordSeparator {
			if err := p.sleep(ctx, p.timing.WordGap-p.timing.CharGap); err != nil {
				return err
			}
			continue
		}
		if p.config.OnToken != nil && i < len(tokens) {
			p.config.OnToken(i, tokens[i])
		}
		for j := 0; j < len(s); j++ {
			if j > 0 {
				if err := p.sleep(ctx, p.timing.IntraGap); err != nil {
					return err
				}
			}
			d := p.timing.Unit
			if s[j] == morse.Dah {
				d = p.timing.Dah
			}
			p.key.On()
			err := p.sleep(ctx, d)
			p.key.Off()
			if err != nil {
				return err
			}
		}
		if err := p.sleep(ctx, p.timing.CharGap); err != nil {
			return err
		}
	}
	return nil
}

// Duration returns how long Play would take for text.
func (p *Player) Duration(text string) time.Duration {
	tokens, _ := p.table.Tokenize(text)
	symbols, _ := p.table.EncodeTokens(tokens)
	var total time.Duration
	for _, s := range Schedule(symbols, p.timing) {
		total += s.Duration
	}
	return total
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
