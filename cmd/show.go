package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/audiolibrelab/rehearse/internal/session"
	"github.com/audiolibrelab/rehearse/internal/store"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show the summary of a past session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		st, err := store.Open(cfg.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()

		sum, err := st.Get(context.Background(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no session with id %s", args[0])
		}
		if err != nil {
			return err
		}

		switch format {
		case "yaml":
			return yaml.NewEncoder(os.Stdout).Encode(sum)
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		case "text":
			printSummary(sum)
			return nil
		default:
			return fmt.Errorf("unknown format %q (use text, yaml or json)", format)
		}
	},
}

func printSummary(s *session.Summary) {
	fmt.Printf("%s\n", s.Title)
	fmt.Printf("═══════════════════════════════════════\n")
	fmt.Printf("id:                %s\n", s.ID)
	fmt.Printf("completed:         %s\n", s.CompletedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("difficulty:        %s\n", s.Difficulty)
	fmt.Printf("duration:          %s (planned %d min)\n", formatDuration(s.ElapsedSeconds), s.DurationMinutes)
	fmt.Printf("questions:         %d of %d\n", s.QuestionsAnswered, s.TotalQuestions)
	fmt.Printf("\n")
	fmt.Printf("overall score:     %d%%\n", s.OverallScore)
	fmt.Printf("communication:     %d%%\n", s.Scores.Communication)
	fmt.Printf("technical:         %d%%\n", s.Scores.Technical)
	fmt.Printf("problem solving:   %d%%\n", s.Scores.ProblemSolving)
	fmt.Printf("avg response time: %ds\n", s.AverageResponseTime)
	fmt.Printf("improvement:       +%d%%\n", s.ImprovementScore)
	if s.Recording.Path != "" {
		fmt.Printf("\nrecording:         %s\n", s.Recording.Path)
	}
}

func init() {
	showCmd.Flags().StringP("format", "f", "text", "output format: text, yaml or json")
}
