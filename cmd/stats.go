package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ColonelBlimp/cwtutor/internal/report"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show lifetime accuracy and high scores",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Bool("reset", false, "clear all statistics and high scores")
	statsCmd.Flags().String("chart", "", "write an HTML progress chart to this file")
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	prof, err := a.openProfile()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if reset, _ := cmd.Flags().GetBool("reset"); reset {
		if err := prof.ResetScores(); err != nil {
			return err
		}
		a.logger.Info("scores reset", zap.String("profile", prof.Name))
		fmt.Fprintf(out, "statistics for %s cleared\n", prof.Name)
		return nil
	}

	scores, err := prof.Scores()
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("chart"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create chart: %w", err)
		}
		defer f.Close()
		if err := report.WriteChart(f, prof.Name, scores); err != nil {
			return err
		}
		fmt.Fprintf(out, "chart written to %s\n", path)
		return nil
	}

	color := false
	if f, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return report.WriteStats(out, prof.Name, scores, color)
}
