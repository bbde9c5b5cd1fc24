package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/panelnav/panelnav/internal/errors"
	"github.com/panelnav/panelnav/pkg/capability"
	"github.com/panelnav/panelnav/pkg/client"
	"github.com/panelnav/panelnav/pkg/dashboard"
	"github.com/panelnav/panelnav/pkg/panel"
	"github.com/panelnav/panelnav/pkg/routepath"
	"github.com/panelnav/panelnav/pkg/serverroute"
	"github.com/panelnav/panelnav/pkg/session"
	"github.com/panelnav/panelnav/pkg/view"
)

func resolveCmd() *cobra.Command {
	var (
		flags       configFlags
		rootAdmin   bool
		permissions string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Resolve one path and print the selected view",
		Long: `Resolve one path the way the HTTP surface would.

Server paths load the server from the panel first. The viewer defaults
to the one in panelnav.json; --permissions and --root-admin replace it.

Examples:
  panelnav resolve /account/api
  panelnav resolve /server/1a2b3c4d/files --permissions=file.read
  panelnav resolve /server/1a2b3c4d --root-admin --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := routepath.Canonicalize(path); err != nil {
				return errors.New("P021").WithDetailf("%q: %v", path, err)
			}

			var res view.Resolution
			if _, inside := serverroute.New().ServerID(path); inside {
				cfg, err := flags.load()
				if err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				panelClient, err := client.New(cfg.PanelURL, cfg.APIKey, client.WithTimeout(cfg.HTTPTimeout()))
				if err != nil {
					return errors.New("P003").Wrap(err)
				}

				viewer := configuredViewer(cfg.Viewer)
				if cmd.Flags().Changed("permissions") {
					viewer.Capabilities = capability.Parse(permissions)
				}
				if cmd.Flags().Changed("root-admin") {
					viewer.RootAdmin = rootAdmin
				}
				res = resolveServer(cmd.Context(), panelClient, path, viewer, cfg.HTTPTimeout())
			} else {
				res = dashboard.New().Resolve(path)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResolution(cmd.OutOrStdout(), res)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&rootAdmin, "root-admin", false, "Resolve as a root admin")
	cmd.Flags().StringVar(&permissions, "permissions", "", "Comma separated permission tokens")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the resolution as JSON")
	return cmd
}

func resolveServer(ctx context.Context, loader session.Loader, path string, viewer panel.Viewer, timeout time.Duration) view.Resolution {
	if ctx == nil {
		ctx = context.Background()
	}
	sess := session.New(loader, session.WithFormatter(client.HumanError))
	r := serverroute.New()

	done, _ := r.Navigate(ctx, sess, path)
	select {
	case <-done:
	case <-time.After(timeout):
	case <-ctx.Done():
	}
	return r.Resolve(path, sess.Snapshot(), viewer)
}

func printResolution(w io.Writer, res view.Resolution) {
	fmt.Fprintf(w, "screen: %s\n", res.Screen)
	if res.View != "" {
		fmt.Fprintf(w, "view:   %s\n", res.View)
	}
	fmt.Fprintf(w, "path:   %s\n", res.Path)
	if res.Message != "" {
		fmt.Fprintf(w, "error:  %s\n", res.Message)
	}
	if res.Block != nil {
		fmt.Fprintf(w, "block:  %s: %s\n", res.Block.Title, res.Block.Message)
	}
	if res.ShowSubNav {
		fmt.Fprintln(w, "nav:")
		for _, e := range res.Nav {
			marker := " "
			if e.Active {
				marker = "*"
			}
			suffix := ""
			if e.External {
				suffix = " (external)"
			}
			fmt.Fprintf(w, "  %s %s %s%s\n", marker, padRight(e.Label, 16), e.Href, suffix)
		}
	}
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
