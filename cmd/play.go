package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/audiolibrelab/rehearse/internal/play"
	"github.com/audiolibrelab/rehearse/internal/store"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [session-id]",
	Short: "Play back a saved interview recording",
	Long: `Play the recording of a past session with the first video player found
(mpv, vlc or ffplay). Only sessions recorded with save_recordings enabled have
a file to play.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		var path string
		st, err := store.Open(cfg.StorePath)
		if err != nil {
			return err
		}
		sum, err := st.Get(context.Background(), id)
		st.Close()
		switch {
		case err == nil:
			path = sum.Recording.Path
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		player := play.New(cfg)
		file, err := player.Locate(id, path)
		if err != nil {
			return err
		}

		fmt.Printf("Playing %s\n", file)
		if err := player.Play(file); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
		return nil
	},
}
