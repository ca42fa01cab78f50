package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pim97/scrappey-go/lib/requests"
	"github.com/pim97/scrappey-go/lib/scrappey"

	"github.com/spf13/cobra"
)

type requestFlags struct {
	session      string
	requestType  string
	proxyCountry string
	cloudflare   bool
	headers      map[string]string
	out          string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.session, "session", "", "The session to send the request through.")
	cmd.Flags().StringVar(&f.requestType, "request-type", "", `Either "browser" or "request".`)
	cmd.Flags().StringVar(&f.proxyCountry, "proxy-country", "", "The country of the proxy to use.")
	cmd.Flags().BoolVar(&f.cloudflare, "cloudflare", false, "Enables the cloudflare bypass.")
	cmd.Flags().StringToStringVarP(&f.headers, "header", "H", nil, "Custom request headers, as name=value.")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Writes the response body to a file instead of stdout.")
}

func (f *requestFlags) options() *requests.RequestOptions {
	opts := &requests.RequestOptions{
		RequestType: f.requestType,
		Extra:       scrappey.Fields{},
	}
	if len(f.headers) > 0 {
		opts.Headers = f.headers
	}
	if f.session != "" {
		opts.Extra["session"] = f.session
	}
	if f.proxyCountry != "" {
		opts.Extra["proxyCountry"] = f.proxyCountry
	}
	if f.cloudflare {
		opts.Extra["cloudflareBypass"] = true
	}
	return opts
}

// writeBody prints the status line to stderr so stdout only carries the body.
func (f *requestFlags) writeBody(res *requests.Response) error {
	fmt.Fprintf(os.Stderr, "%d %s %s (%s)\n", res.StatusCode, res.Reason, res.URL, res.Elapsed)

	var out io.Writer = os.Stdout
	if f.out != "" {
		file, err := os.Create(f.out)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}
	_, err := out.Write(res.Content())
	return err
}

var getFlags requestFlags

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Fetches a page through the API.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requester := requests.NewRequester(client, nil)
		res, err := requester.Get(cmd.Context(), args[0], getFlags.options())
		if err != nil {
			return err
		}
		return getFlags.writeBody(res)
	},
}

var (
	postFlags requestFlags
	postData  string
	postJSON  string
)

var postCmd = &cobra.Command{
	Use:   "post <url> [--data <form>] [--json <document>]",
	Short: "Sends a POST request through the API.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := postFlags.options()
		if postData != "" {
			opts.Data = postData
		}
		if postJSON != "" {
			var document any
			err := json.Unmarshal([]byte(postJSON), &document)
			if err != nil {
				return fmt.Errorf("invalid --json: %w", err)
			}
			opts.JSON = document
		}

		requester := requests.NewRequester(client, nil)
		res, err := requester.Post(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		return postFlags.writeBody(res)
	},
}

func init() {
	getFlags.register(getCmd)
	rootCmd.AddCommand(getCmd)

	postFlags.register(postCmd)
	postCmd.Flags().StringVarP(&postData, "data", "d", "", "A form encoded request body.")
	postCmd.Flags().StringVar(&postJSON, "json", "", "A json request body.")
	rootCmd.AddCommand(postCmd)
}
