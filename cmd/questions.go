package cmd

import (
	"fmt"

	"github.com/audiolibrelab/rehearse/internal/config"
	"github.com/audiolibrelab/rehearse/internal/session"

	"github.com/spf13/cobra"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Show the resolved questions and settings of a profile",
	Long:  `Display the questions, time limits and settings the selected profile resolves to. Shows which values are inherited from default vs profile-specific.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inh := cfg.Inheritance
		if inh == nil {
			inh = &config.InheritanceInfo{}
		}

		fmt.Printf("=== SETTINGS ===\n")
		fmt.Printf("interview_type: %s %s\n", cfg.Settings.InterviewType, getInheritanceIndicator(inh.Settings.InterviewType))
		fmt.Printf("difficulty: %s %s\n", cfg.Settings.Difficulty, getInheritanceIndicator(inh.Settings.Difficulty))
		fmt.Printf("duration: %d min %s\n", cfg.Settings.Duration, getInheritanceIndicator(inh.Settings.Duration))
		fmt.Printf("video: %t, audio: %t\n", cfg.Settings.VideoEnabled(), cfg.Settings.AudioEnabled())

		total := 0
		fmt.Printf("\n=== QUESTIONS %s ===\n", getInheritanceIndicator(inh.Questions))
		for i, q := range cfg.Questions {
			total += q.TimeLimit
			fmt.Printf("%d. [%s] %s\n", i+1, session.FormatClock(q.TimeLimit), q.Text)
			if q.Category != "" {
				fmt.Printf("   category: %s\n", q.Category)
			}
			if showTips, _ := cmd.Flags().GetBool("tips"); showTips && q.Tips != "" {
				fmt.Printf("   tip: %s\n", q.Tips)
			}
		}
		fmt.Printf("\ntotal time: %s\n", formatDuration(total))

		fmt.Printf("\n=== CAPTURE ===\n")
		fmt.Printf("backend: %s %s\n", cfg.Capture.Backend, getInheritanceIndicator(inh.Capture.Backend))
		fmt.Printf("mime_type: %s %s\n", cfg.Capture.MimeType, getInheritanceIndicator(inh.Capture.MimeType))
		fmt.Printf("video_device: %s\n", cfg.Capture.VideoDevice)
		fmt.Printf("audio_source: %s\n", cfg.Capture.AudioSource)

		fmt.Printf("\n=== OUTPUT ===\n")
		fmt.Printf("directory: %s %s\n", cfg.Output.Directory, getInheritanceIndicator(inh.Output.Directory))
		fmt.Printf("save_recordings: %t\n", cfg.Output.SaveRecordings)
		fmt.Printf("store_path: %s\n", cfg.StorePath)
		return nil
	},
}

// getInheritanceIndicator returns a formatted indicator for inheritance status
func getInheritanceIndicator(status string) string {
	switch status {
	case "inherited":
		return "[inherited]"
	case "profile-specific":
		return "[profile-specific]"
	default:
		return ""
	}
}

// formatDuration renders seconds as mm:ss, or h:mm:ss past an hour
func formatDuration(seconds int) string {
	if seconds >= 3600 {
		return fmt.Sprintf("%d:%s", seconds/3600, session.FormatClock(seconds%3600))
	}
	return session.FormatClock(seconds)
}

func init() {
	questionsCmd.Flags().Bool("tips", false, "show the tip of each question")
}
