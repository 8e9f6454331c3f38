package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/cwtutor/internal/morse"
	"github.com/ColonelBlimp/cwtutor/internal/player"
)

var encodeCmd = &cobra.Command{
	Use:   "encode TEXT...",
	Short: "Print the Morse code for text",
	Long: `Prints one symbol string per character, "/" between words. Prosigns are
written in angle brackets, e.g. <SK>. With --play the text is also sounded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEncode,
}

var decodeCmd = &cobra.Command{
	Use:   "decode SYMBOLS...",
	Short: "Print the text for Morse symbol strings",
	Long:  `Each argument is one character such as ".-" or "/" for a word break.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDecode,
}

func init() {
	encodeCmd.Flags().Bool("play", false, "sound the text through the sidetone")
	encodeCmd.Flags().Int("wpm", 0, "playback speed (0 = profile setting)")
}

func runEncode(cmd *cobra.Command, args []string) error {
	table := morse.Default()
	text := strings.Join(args, " ")

	// unsupported characters are reported but do not stop the rest
	symbols, err := table.Encode(text)
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(nonEmpty(symbols), " "))
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}

	if play, _ := cmd.Flags().GetBool("play"); !play {
		return nil
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()
	prof, err := a.openProfile()
	if err != nil {
		return err
	}
	ps := prof.Settings
	wpm, _ := cmd.Flags().GetInt("wpm")
	if wpm == 0 {
		wpm = ps.WPM
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	buzzer, closeAudio, err := a.newSidetone(ctx, ps)
	if err != nil {
		return err
	}
	defer closeAudio()
	defer buzzer.Close()

	p, err := player.New(player.Config{WPM: wpm, FarnsworthWPM: ps.EffectiveFarnsworth()}, table, buzzer, a.logger)
	if err != nil {
		return err
	}
	return p.Play(ctx, text)
}

func nonEmpty(symbols []string) []string {
	out := symbols[:0:0]
	for _, s := range symbols {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func runDecode(cmd *cobra.Command, args []string) error {
	table := morse.Default()
	var b strings.Builder
	var errs []error
	for _, s := range args {
		tok, err := table.Decode(s)
		if err != nil {
			b.WriteString("?")
			errs = append(errs, err)
			continue
		}
		if len(tok) > 1 {
			tok = "<" + tok + ">"
		}
		b.WriteString(tok)
	}
	fmt.Fprintln(cmd.OutOrStdout(), b.String())
	return errors.Join(errs...)
}
