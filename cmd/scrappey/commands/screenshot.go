package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pim97/scrappey-go/lib/scrappey"

	"github.com/spf13/cobra"
)

var (
	screenshotWidth   int
	screenshotHeight  int
	screenshotSession string
	screenshotOut     string
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot <url> [--out <file.png>]",
	Short: "Takes a screenshot of a page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := &scrappey.ScreenshotOptions{}
		if screenshotWidth > 0 {
			opts.Width = scrappey.Int(screenshotWidth)
		}
		if screenshotHeight > 0 {
			opts.Height = scrappey.Int(screenshotHeight)
		}
		if screenshotSession != "" {
			opts.Session = scrappey.String(screenshotSession)
		}

		res, err := client.Screenshot(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		if res.IsError() {
			return scrappey.RemoteAPIError(res)
		}
		if !res.HasSolution() {
			return fmt.Errorf("response carried no solution")
		}
		if res.Solution.ScreenshotURL != "" {
			slog.Info("screenshot uploaded", "url", res.Solution.ScreenshotURL)
		}

		png, err := res.Solution.ScreenshotBytes()
		if err != nil {
			return err
		}
		err = os.WriteFile(screenshotOut, png, 0644)
		if err != nil {
			return err
		}
		slog.Info("wrote screenshot", "path", screenshotOut, "bytes", len(png))
		return nil
	},
}

func init() {
	screenshotCmd.Flags().IntVar(&screenshotWidth, "width", 0, "The viewport width.")
	screenshotCmd.Flags().IntVar(&screenshotHeight, "height", 0, "The viewport height.")
	screenshotCmd.Flags().StringVar(&screenshotSession, "session", "", "The session to take the screenshot in.")
	screenshotCmd.Flags().StringVarP(&screenshotOut, "out", "o", "screenshot.png", "The file to write the png to.")
	rootCmd.AddCommand(screenshotCmd)
}
