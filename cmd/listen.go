package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwtutor/internal/cli/decode"
	"github.com/ColonelBlimp/cwtutor/internal/morse"
	"github.com/ColonelBlimp/cwtutor/internal/practice"
	"github.com/ColonelBlimp/cwtutor/internal/report"
	"github.com/ColonelBlimp/cwtutor/internal/trainer"
)

// finishTimeout bounds the final Finish after an interrupt
const finishTimeout = 2 * time.Second

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Score keying heard on the audio input",
	Long: `Listens for a keyed tone (tone_frequency) on the audio input, decodes it and
scores it against a practice target. Ctrl+C ends the run early.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().Bool("list-devices", false, "list audio input devices and exit")
	listenCmd.Flags().String("file", "", "practise a paragraph from this text file")
	listenCmd.Flags().StringSlice("groups", nil, "practice groups to use instead of the profile's")
}

func runListen(cmd *cobra.Command, _ []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()
	out := cmd.OutOrStdout()

	if list, _ := cmd.Flags().GetBool("list-devices"); list {
		names, err := decode.ListAudioDevices(a.logger)
		if err != nil {
			return err
		}
		for i, name := range names {
			fmt.Fprintf(out, "%d: %s\n", i, name)
		}
		return nil
	}
	a.watch()

	prof, err := a.openProfile()
	if err != nil {
		return err
	}
	if err := prof.Settings.Validate(); err != nil {
		return fmt.Errorf("profile %s: %w", prof.Name, err)
	}
	table := morse.Default()
	file, _ := cmd.Flags().GetString("file")
	groups, _ := cmd.Flags().GetStringSlice("groups")
	src, err := practiceSource(prof, table, file, groups)
	if err != nil {
		return err
	}

	eng, err := a.newEngine(prof, table, nil)
	if err != nil {
		return err
	}
	decoder, err := decode.NewDecoder(*a.settings, eng.queue, nil, a.logger)
	if err != nil {
		return err
	}

	done := make(chan practice.Summary, 1)
	eng.runner.SetCallback(func(ev trainer.Event) {
		switch ev.Kind {
		case trainer.CharacterDecoded:
			fmt.Fprint(out, ev.Char)
		case trainer.WordSeparator:
			fmt.Fprint(out, " ")
		case trainer.DecodeFailed:
			fmt.Fprint(out, "?")
		case trainer.SessionFinished:
			select {
			case done <- *ev.Summary:
			default:
			}
		case trainer.Failed:
			a.logger.Warn("practice error", zap.Error(ev.Err))
		}
	})

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	go func() {
		if err := eng.runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("runner stopped", zap.Error(err))
		}
	}()
	decodeErr := make(chan error, 1)
	go func() {
		decodeErr <- decoder.Run(runCtx)
	}()

	target, err := eng.runner.Start(ctx, src)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Send: %s\n> ", target)

	var sum practice.Summary
	select {
	case sum = <-done:
	case err := <-decodeErr:
		return err
	case <-ctx.Done():
		fctx, fcancel := context.WithTimeout(context.Background(), finishTimeout)
		defer fcancel()
		if sum, err = eng.runner.Finish(fctx); err != nil {
			return err
		}
	}

	fmt.Fprintln(out)
	for _, line := range report.SummaryLines(sum) {
		fmt.Fprintln(out, line)
	}
	return nil
}
