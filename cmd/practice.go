package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ColonelBlimp/cwtutor/internal/input"
	"github.com/ColonelBlimp/cwtutor/internal/morse"
	"github.com/ColonelBlimp/cwtutor/internal/practice"
	"github.com/ColonelBlimp/cwtutor/internal/trainer"
	"github.com/ColonelBlimp/cwtutor/internal/tui"
)

var errNotTerminal = errors.New("practice needs an interactive terminal")

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Practise sending in the terminal",
	Long: `Opens the practice screen. Type the characters shown, or switch to paddle
mode (tab) and key them with the dit and dah keys from the profile.`,
	Args: cobra.NoArgs,
	RunE: runPractice,
}

func init() {
	practiceCmd.Flags().String("file", "", "practise a paragraph from this text file")
	practiceCmd.Flags().StringSlice("groups", nil, "practice groups to use instead of the profile's")
}

func runPractice(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errNotTerminal
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()
	a.watch()

	prof, err := a.openProfile()
	if err != nil {
		return err
	}
	ps := prof.Settings
	if err := ps.Validate(); err != nil {
		return fmt.Errorf("profile %s: %w", prof.Name, err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	table := morse.Default()
	buzzer, closeAudio, err := a.newSidetone(ctx, ps)
	if err != nil {
		return err
	}
	defer closeAudio()
	defer buzzer.Close()

	var paddle *input.Paddle
	eng, err := a.newEngine(prof, table, trainer.SilencerFunc(func() {
		if paddle != nil {
			paddle.Cancel()
		}
		buzzer.Off()
	}))
	if err != nil {
		return err
	}
	paddle, err = input.NewPaddle(eng.queue, input.PaddleConfig{WPM: ps.WPM, Tone: buzzer})
	if err != nil {
		return err
	}

	file, _ := cmd.Flags().GetString("file")
	groups, _ := cmd.Flags().GetStringSlice("groups")
	src, err := practiceSource(prof, table, file, groups)
	if err != nil {
		return err
	}

	model := tui.New(ctx, tui.Options{
		Engine:   eng.runner,
		Queue:    eng.queue,
		Paddle:   paddle,
		Table:    table,
		Profile:  prof.Name,
		Settings: ps,
		Source:   src,
		LoadPassage: func(path string) (practice.Source, error) {
			return loadPassage(prof, table, path)
		},
		Scores: prof.Scores,
		Logger: a.logger,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	eng.runner.SetCallback(tui.Forward(program))

	runCtx, stop := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := eng.runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("runner stopped", zap.Error(err))
		}
	}()

	a.logger.Info("practice started", zap.String("profile", prof.Name), zap.Int("wpm", ps.WPM))
	_, err = program.Run()

	eng.runner.SetCallback(nil)
	stop()
	wg.Wait()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("console: %w", err)
	}
	a.logger.Info("practice ended", zap.String("profile", prof.Name))
	return nil
}
