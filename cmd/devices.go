package cmd

import (
	"fmt"
	"runtime"

	"github.com/audiolibrelab/rehearse/internal/capture"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List cameras and microphones",
	Long:  `List the video devices and PulseAudio/PipeWire sources the ffmpeg capture backend can use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inv := capture.ListDevices()

		fmt.Printf("Capture devices (%s)\n", runtime.GOOS)
		fmt.Printf("═══════════════════════════════════════\n\n")

		fmt.Printf("CAMERAS (%d found):\n", len(inv.Cameras))
		for i, cam := range inv.Cameras {
			fmt.Printf("  %d. %s\n", i+1, cam)
		}
		if inv.CameraErr != nil {
			fmt.Printf("  could not list cameras: %v\n", inv.CameraErr)
		}

		fmt.Printf("\nMICROPHONES (%d found):\n", len(inv.Microphones))
		for i, mic := range inv.Microphones {
			fmt.Printf("  %d. %s [%s, %s]\n", i+1, mic.Name, mic.Driver, mic.State)
		}
		if inv.MicrophoneErr != nil {
			fmt.Printf("  could not list microphones: %v\n", inv.MicrophoneErr)
		}

		fmt.Printf("\nConfigure in capture.video_device and capture.audio_source\n")
		return nil
	},
}
