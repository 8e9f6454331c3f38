package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/cwtutor/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage learner profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles, marking the selected one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		names, err := a.store.List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, name := range names {
			mark := " "
			if name == a.settings.Profile {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %s\n", mark, name)
		}
		return nil
	},
}

var profileCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a profile with default settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		p, err := a.store.Create(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created profile %s in %s\n", p.Name, p.Dir())
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show [NAME]",
	Short: "Show the settings of a profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		name := a.settings.Profile
		if len(args) == 1 {
			name = args[0]
		}
		p, err := a.store.Open(name)
		if p == nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
		writeSettings(out, p)
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileListCmd, profileCreateCmd, profileShowCmd)
}

func writeSettings(out io.Writer, p *profile.Profile) {
	s := p.Settings
	farnsworth := "off"
	if s.FarnsworthEnabled {
		farnsworth = fmt.Sprintf("%d WPM", s.FarnsworthWPM)
	}
	fmt.Fprintf(out, "Profile        %s\n", p.Name)
	fmt.Fprintf(out, "Speed          %d WPM (Farnsworth %s)\n", s.WPM, farnsworth)
	fmt.Fprintf(out, "Groups         %s\n", strings.Join(s.PracticeGroups, ", "))
	fmt.Fprintf(out, "Sample length  %d\n", s.SampleLength)
	fmt.Fprintf(out, "Palette        %s (reversed %t)\n", s.Palette, s.ReverseColors)
	fmt.Fprintf(out, "Sidetone       %s, %.0f Hz, volume %.2f\n", s.OutputMode, s.BuzzerFrequency, s.BuzzerVolume)
	fmt.Fprintf(out, "Paddle keys    dit %s, dah %s (swapped %t)\n", s.KeyBindings.PaddleDit, s.KeyBindings.PaddleDah, s.SwapPaddle)
	if s.LastLoadedFile != "" {
		fmt.Fprintf(out, "Last file      %s\n", s.LastLoadedFile)
	}
	if extra := s.Extra(); len(extra) > 0 {
		fmt.Fprintf(out, "Preserved keys %s\n", strings.Join(extra, ", "))
	}
}
