package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/amoylab/catclient/internal/template"
	"github.com/amoylab/catclient/pkg/models"
	"github.com/amoylab/catclient/pkg/realtime"
	"github.com/amoylab/catclient/pkg/version"
	"github.com/spf13/cobra"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// print renders v through --format when it is set, otherwise through plain,
// or as indented JSON when plain is nil.
func (a *app) print(cmd *cobra.Command, v any, plain func(io.Writer) error) error {
	w := cmd.OutOrStdout()
	if a.flags.format == "" {
		if plain != nil {
			return plain(w)
		}
		return writeJSON(w, v)
	}
	if a.render == nil {
		a.render = template.NewRenderer()
	}
	out, err := a.render.Render(a.flags.format, v)
	if err != nil {
		return fmt.Errorf("render --format: %w", err)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of catctl",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "catctl version %s\n", version.Get())
		},
	}
}

func healthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.client.Health.Home(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, out, nil)
		},
	}
}

func tokenCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Exchange username and password for a JWT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := a.client.Auth.Token(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			out := map[string]any{"access_token": tok.AccessToken, "token_type": tok.TokenType}
			if exp, err := tok.ExpiresAt(); err == nil && !exp.IsZero() {
				out["expires_at"] = exp.UTC().Format(time.RFC3339)
			}
			return a.print(cmd, out, nil)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "user name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func chatCmd(a *app) *cobra.Command {
	var (
		overHTTP bool
		stream   bool
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "chat <text>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			msg := models.NewMessageBuilder().SetText(strings.Join(args, " ")).Build()
			id := a.cfg.Identity
			w := cmd.OutOrStdout()

			if overHTTP {
				out, err := a.client.Message.SendHTTPMessage(ctx, msg, id.AgentID, id.UserID, id.ChatID)
				if err != nil {
					return err
				}
				return a.print(cmd, out, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, out.Message.Text)
					return err
				})
			}

			var onFrame func(map[string]any)
			if stream {
				onFrame = func(frame map[string]any) {
					if frame["type"] == models.SocketTypeChatToken {
						fmt.Fprint(w, frame["content"])
					}
				}
			}
			resp, err := a.client.Message.SendWebsocketMessage(ctx, msg, id.AgentID, id.UserID, id.ChatID, onFrame)
			if err != nil {
				return err
			}
			if stream {
				fmt.Fprintln(w)
			}
			return a.print(cmd, resp, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, resp.Text)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&overHTTP, "http", false, "use POST /message instead of the websocket")
	cmd.Flags().BoolVar(&stream, "stream", false, "print streamed tokens as they arrive")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "how long to wait for the reply")
	return cmd
}

func listenCmd(a *app) *cobra.Command {
	var send []string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Keep a websocket session open and print every event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			id := a.cfg.Identity
			sess, err := a.client.Session(id.AgentID, id.UserID, id.ChatID)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			failed := make(chan error, 1)
			sess.On(realtime.EventOpen, func(realtime.Event) {
				fmt.Fprintln(w, "open")
				for _, text := range send {
					if err := sess.SendJSON(models.NewMessage(text)); err != nil {
						fmt.Fprintln(w, "send:", err)
					}
				}
			})
			sess.On(realtime.EventMessage, func(ev realtime.Event) {
				fmt.Fprintf(w, "message %s\n", ev.Raw)
			})
			sess.On(realtime.EventError, func(ev realtime.Event) {
				fmt.Fprintf(w, "error %s\n", ev.Err)
				if ev.Err != nil && ev.Err.Name == realtime.KindFailedRetry {
					select {
					case failed <- ev.Err:
					default:
					}
				}
			})
			sess.On(realtime.EventClose, func(ev realtime.Event) {
				fmt.Fprintf(w, "close %d %s\n", ev.Code, ev.Reason)
			})

			if err := sess.Connect(ctx); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return sess.Close(realtime.CloseNormalClosure, "bye")
			case err := <-failed:
				return err
			case <-sess.Done():
				return nil
			}
		},
	}
	cmd.Flags().StringArrayVar(&send, "send", nil, "message to send on every open, may repeat")
	return cmd
}

func memoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect the agent memory",
	}

	collections := &cobra.Command{
		Use:   "collections",
		Short: "List memory collections and their sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.client.Memory.GetMemoryCollections(cmd.Context(), a.cfg.Identity.AgentID)
			if err != nil {
				return err
			}
			return a.print(cmd, out, nil)
		},
	}

	var k int
	recall := &cobra.Command{
		Use:   "recall <text>",
		Short: "Search the memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := a.cfg.Identity
			out, err := a.client.Memory.GetMemoryRecall(cmd.Context(), strings.Join(args, " "), id.AgentID, id.UserID, k, nil)
			if err != nil {
				return err
			}
			return a.print(cmd, out.Vectors.Collections, nil)
		},
	}
	recall.Flags().IntVarP(&k, "k", "k", 0, "max results per collection, 0 for the server default")

	var limit, offset int
	points := &cobra.Command{
		Use:       "points <collection>",
		Short:     "Page through the points of a collection",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(models.CollectionEpisodic), string(models.CollectionDeclarative), string(models.CollectionProcedural)},
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.client.Memory.GetMemoryPoints(cmd.Context(), models.Collection(args[0]), a.cfg.Identity.AgentID, limit, offset, nil)
			if err != nil {
				return err
			}
			return a.print(cmd, out, nil)
		},
	}
	points.Flags().IntVar(&limit, "limit", 100, "page size")
	points.Flags().IntVar(&offset, "offset", 0, "page offset")

	cmd.AddCommand(collections, recall, points)
	return cmd
}

func pluginsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List and toggle plugins",
	}

	var query string
	list := &cobra.Command{
		Use:   "list",
		Short: "List installed and registry plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.client.Plugins.GetAvailablePlugins(cmd.Context(), query, a.cfg.Identity.AgentID)
			if err != nil {
				return err
			}
			return a.print(cmd, out, func(w io.Writer) error {
				for _, p := range out.Installed {
					state := "inactive"
					if p.Active {
						state = "active"
					}
					fmt.Fprintf(w, "installed\t%s\t%s\t%s\n", p.ID, p.Version, state)
				}
				for _, p := range out.Registry {
					fmt.Fprintf(w, "registry\t%s\t%s\t%s\n", p.ID, p.Version, p.Tags)
				}
				return nil
			})
		},
	}
	list.Flags().StringVarP(&query, "query", "q", "", "filter by name")

	toggle := &cobra.Command{
		Use:   "toggle <plugin_id>",
		Short: "Activate or deactivate a plugin for the agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.client.Plugins.PutTogglePlugin(cmd.Context(), args[0], a.cfg.Identity.AgentID)
			if err != nil {
				return err
			}
			return a.print(cmd, out, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, out.Info)
				return err
			})
		},
	}

	cmd.AddCommand(list, toggle)
	return cmd
}

func agentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage agents",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agents, err := a.client.Utils.GetAgents(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, agents, func(w io.Writer) error {
				for _, ag := range agents {
					fmt.Fprintln(w, ag.AgentID)
				}
				return nil
			})
		},
	})
	return cmd
}
