package cmd

import (
	"context"
	"fmt"

	"github.com/audiolibrelab/rehearse/internal/session"
	"github.com/audiolibrelab/rehearse/internal/store"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past interview sessions",
	Long:  `List completed interview sessions from the local history, newest first by default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interviewType, _ := cmd.Flags().GetString("type")
		sortBy, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := store.Open(cfg.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()

		sessions, err := st.List(context.Background(), store.Filter{
			InterviewType: interviewType,
			SortBy:        sortBy,
			Limit:         limit,
		})
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions yet. Run 'rehearse interview' to record one.")
			return nil
		}

		fmt.Printf("%-36s  %-16s  %-12s  %-5s  %-9s  %s\n", "ID", "DATE", "TYPE", "SCORE", "DURATION", "QUESTIONS")
		for _, s := range sessions {
			fmt.Printf("%-36s  %-16s  %-12s  %4d%%  %-9s  %d/%d\n",
				s.ID,
				s.CompletedAt.Local().Format("2006-01-02 15:04"),
				s.InterviewType,
				s.OverallScore,
				session.FormatClock(s.ElapsedSeconds),
				s.QuestionsAnswered, s.TotalQuestions)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().String("type", "all", "filter by interview type")
	historyCmd.Flags().String("sort", store.SortByDate, "sort by date, score or duration")
	historyCmd.Flags().Int("limit", 20, "maximum number of sessions (0 for all)")
}
