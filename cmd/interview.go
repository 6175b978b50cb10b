package cmd

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audiolibrelab/rehearse/internal/service"
	"github.com/audiolibrelab/rehearse/internal/tui"

	"github.com/spf13/cobra"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run a mock interview in the terminal",
	Long: `Open the interview screen, request the camera and microphone and wait
for you to start. Questions, time limits and interview settings come from the
selected profile. Quitting while recording asks for confirmation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if output, _ := cmd.Flags().GetString("output"); output != "" {
			cfg.Output.Directory = output
			cfg.Output.SaveRecordings = true
		}

		slog.Debug("Creating service instance", "questions", len(cfg.Questions))
		svc, err := service.New(cfg, cfgFile, ffmpegLog(), nil)
		if err != nil {
			return fmt.Errorf("failed to start interview: %w", err)
		}
		defer svc.Close()

		program := tea.NewProgram(tui.New(svc), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("interview screen failed: %w", err)
		}

		svc.Wait()
		if sum := svc.Snapshot().Summary; sum != nil {
			fmt.Printf("%s: %d%% overall, %d of %d questions in %s\n",
				sum.Title, sum.OverallScore, sum.QuestionsAnswered, sum.TotalQuestions, formatDuration(sum.ElapsedSeconds))
			fmt.Printf("Session id: %s\n", sum.ID)
		}
		return nil
	},
}

func init() {
	interviewCmd.Flags().StringP("output", "o", "", "save the recording to this directory (overrides config)")
}
