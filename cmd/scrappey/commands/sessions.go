package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/pim97/scrappey-go/lib/scrappey"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manages API sessions.",
}

var (
	createProxy        string
	createProxyCountry string
)

var sessionsCreateCmd = &cobra.Command{
	Use:   "create [--proxy <url>] [--proxy-country <country>]",
	Short: "Creates a session and prints its id.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := &scrappey.SessionOptions{}
		if createProxy != "" {
			opts.Proxy = scrappey.String(createProxy)
		}
		if createProxyCountry != "" {
			opts.ProxyCountry = scrappey.String(createProxyCountry)
		}
		res, err := client.CreateSession(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if res.IsError() {
			return fmt.Errorf("scrappey error: %s", res.Error)
		}
		fmt.Println(res.Session)
		return nil
	},
}

var sessionsDestroyCmd = &cobra.Command{
	Use:   "destroy <session>",
	Short: "Destroys a session.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := client.DestroySession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if res.IsError() {
			return scrappey.RemoteAPIError(res)
		}
		return nil
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the open sessions.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := client.ListSessions(cmd.Context())
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Session", "Last accessed"})
		for _, session := range res.Sessions {
			lastAccessed := "-"
			if session.LastAccessed > 0 {
				lastAccessed = time.UnixMilli(session.LastAccessed).Format(time.ANSIC)
			}
			t.AppendRow(table.Row{session.Session, lastAccessed})
		}
		t.AppendFooter(table.Row{"Open", fmt.Sprintf("%d / %d", res.Open, res.Limit)})
		t.Render()
		return nil
	},
}

var sessionsActiveCmd = &cobra.Command{
	Use:   "active <session>",
	Short: "Prints whether a session is active.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		active, err := client.IsSessionActive(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(active)
		return nil
	},
}

func init() {
	sessionsCreateCmd.Flags().StringVar(&createProxy, "proxy", "", "The proxy the session uses.")
	sessionsCreateCmd.Flags().StringVar(&createProxyCountry, "proxy-country", "", "The country of the proxy.")

	sessionsCmd.AddCommand(sessionsCreateCmd, sessionsDestroyCmd, sessionsListCmd, sessionsActiveCmd)
	rootCmd.AddCommand(sessionsCmd)
}
