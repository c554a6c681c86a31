package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	mcp "github.com/MegaGrindStone/go-mcp-streamable"
	"github.com/avast/retry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo MCP server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := cmd.Flags().GetString("addr")
			if err != nil {
				return fmt.Errorf("error reading addr: %s", err)
			}
			pageSize, err := cmd.Flags().GetInt("page-size")
			if err != nil {
				return fmt.Errorf("error reading page-size: %s", err)
			}
			delay, err := cmd.Flags().GetDuration("goodbye-delay")
			if err != nil {
				return fmt.Errorf("error reading goodbye-delay: %s", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return serve(ctx, addr, pageSize, delay)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Int("page-size", 2, "tools and resources per listing page")
	cmd.Flags().Duration("goodbye-delay", 10*time.Second, "delay before the goodbye tool is registered")
	return cmd
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List every tool of the server, page by page.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer disconnect(client)

			page := 0
			for tools, err := range mcp.Pages(cmd.Context(), client.ToolPages()) {
				if err != nil {
					return fmt.Errorf("failed to list tools: %w", err)
				}
				page++
				for _, tool := range tools {
					fmt.Printf("[page %d] %s: %s\n", page, tool.Name, tool.Description)
				}
			}
			return nil
		},
	}
}

func callCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [json-arguments]",
		Short: "Call a tool and print progress updates as they arrive.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := mcp.CallToolParams{Name: args[0]}
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("arguments are not valid json: %s", args[1])
				}
				params.Arguments = json.RawMessage(args[1])
			}

			client, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer disconnect(client)

			result, err := client.CallTool(cmd.Context(), params, mcp.WithProgressObserver(printProgress))
			if err != nil {
				return fmt.Errorf("failed to call %s: %w", params.Name, err)
			}
			printContent(result.Content)
			if result.IsError {
				return fmt.Errorf("tool %s reported an error", params.Name)
			}
			return nil
		},
	}
}

func resourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List the server's resources, optionally reading each one.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			read, err := cmd.Flags().GetBool("read")
			if err != nil {
				return fmt.Errorf("error reading read: %s", err)
			}

			client, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer disconnect(client)

			resources, err := mcp.ListAll(cmd.Context(), client.ResourcePages())
			if err != nil {
				return fmt.Errorf("failed to list resources: %w", err)
			}
			for _, res := range resources {
				fmt.Printf("%s (%s)\n", res.URI, res.Name)
				if !read {
					continue
				}
				contents, err := client.ReadResource(cmd.Context(), mcp.ReadResourceParams{URI: res.URI})
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", res.URI, err)
				}
				for _, c := range contents.Contents {
					fmt.Printf("  %s\n", c.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("read", false, "read the contents of every resource")
	return cmd
}

func pingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Ping the server, retrying timeouts and reconnecting after transport failures.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			count, err := cmd.Flags().GetInt("count")
			if err != nil {
				return fmt.Errorf("error reading count: %s", err)
			}
			bound, err := cmd.Flags().GetDuration("bound")
			if err != nil {
				return fmt.Errorf("error reading bound: %s", err)
			}
			attempts, err := cmd.Flags().GetUint("attempts")
			if err != nil {
				return fmt.Errorf("error reading attempts: %s", err)
			}

			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer func() { disconnect(client) }()

			for i := range count {
				var rtt time.Duration
				err := retry.Do(
					func() error {
						var err error
						rtt, err = client.Ping(ctx, bound)
						if err != nil && reconnectable(err) {
							slog.Warn("reconnecting after failed ping", slog.String("err", err.Error()))
							if fresh, cErr := connect(ctx); cErr == nil {
								client = fresh
							}
						}
						return err
					},
					retry.Context(ctx),
					retry.Attempts(attempts),
					retry.Delay(200*time.Millisecond),
					retry.LastErrorOnly(true),
					retry.RetryIf(func(err error) bool {
						return errors.Is(err, mcp.ErrTimeout) || reconnectable(err)
					}),
					retry.OnRetry(func(n uint, err error) {
						slog.Debug("retrying ping", slog.Uint64("attempt", uint64(n+1)), slog.String("err", err.Error()))
					}),
				)
				if err != nil {
					return fmt.Errorf("ping %d failed: %w", i+1, err)
				}
				fmt.Printf("ping %d: %v\n", i+1, rtt)
				time.Sleep(time.Second)
			}
			return nil
		},
	}
	cmd.Flags().Int("count", 3, "number of pings")
	cmd.Flags().Duration("bound", 5*time.Second, "timeout of a single ping")
	cmd.Flags().Uint("attempts", 3, "attempts per ping")
	return cmd
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the tool list every time it changes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			strategy, err := cmd.Flags().GetString("strategy")
			if err != nil {
				return fmt.Errorf("error reading strategy: %s", err)
			}
			interval, err := cmd.Flags().GetDuration("interval")
			if err != nil {
				return fmt.Errorf("error reading interval: %s", err)
			}
			metricsAddr, err := cmd.Flags().GetString("metrics-addr")
			if err != nil {
				return fmt.Errorf("error reading metrics-addr: %s", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if metricsAddr != "" {
				go serveMetrics(ctx, metricsAddr)
			}

			signals := mcp.NewListChangedSignal()
			client, err := connect(ctx, mcp.WithToolListWatcher(signals))
			if err != nil {
				return err
			}
			defer disconnect(client)

			tools, err := client.ListAllTools(ctx)
			if err != nil {
				return fmt.Errorf("failed to list tools: %w", err)
			}
			printTools(tools)

			switch strategy {
			case "push":
				if !client.ToolListChangedSupported() {
					return errors.New("server does not announce tool list changes, use --strategy poll")
				}
				go func() {
					if err := client.Listen(ctx); err != nil {
						slog.Error("event stream closed", slog.String("err", err.Error()))
						stop()
					}
				}()
				return mcp.WatchToolList(ctx, client, signals.Tools(), printTools)
			case "poll":
				return mcp.PollToolList(ctx, client, interval, printTools)
			default:
				return fmt.Errorf("unknown strategy %q, want push or poll", strategy)
			}
		},
	}
	cmd.Flags().String("strategy", "push", "delivery strategy: push or poll")
	cmd.Flags().Duration("interval", 2*time.Second, "poll interval")
	cmd.Flags().String("metrics-addr", "", "serve client metrics on this address")
	return cmd
}

func sampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample <topic>",
		Short: "Call create_story and answer the server's sampling request locally.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect(cmd.Context(), mcp.WithSamplingHandler(cannedSampler{}))
			if err != nil {
				return err
			}
			defer disconnect(client)

			argsBs, err := json.Marshal(map[string]string{"topic": args[0]})
			if err != nil {
				return err
			}
			result, err := client.CallTool(cmd.Context(), mcp.CallToolParams{Name: "create_story", Arguments: argsBs})
			if err != nil {
				return fmt.Errorf("failed to call create_story: %w", err)
			}
			printContent(result.Content)
			return nil
		},
	}
}

// cannedSampler stands in for a language model.
type cannedSampler struct{}

func (cannedSampler) CreateSampleMessage(_ context.Context, params mcp.SamplingParams) (mcp.SamplingResult, error) {
	var prompt string
	if len(params.Messages) > 0 {
		prompt = params.Messages[len(params.Messages)-1].Content.Text
	}
	return mcp.SamplingResult{
		Role: mcp.RoleAssistant,
		Content: mcp.SamplingContent{
			Type: mcp.ContentTypeText,
			Text: "Once upon a time, someone asked: " + prompt,
		},
		Model:      "canned",
		StopReason: "endTurn",
	}, nil
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server failed", slog.String("err", err.Error()))
	}
}

func printProgress(p mcp.ProgressParams) {
	if p.Total <= 0 {
		fmt.Printf("progress: %v %s\n", p.Progress, p.Message)
		return
	}
	pct := p.Progress / p.Total * 100
	filled := min(max(int(pct)/5, 0), 20)
	fmt.Printf("[%s%s] %5.1f%% %s\n", strings.Repeat("#", filled), strings.Repeat(".", 20-filled), pct, p.Message)
}

func printContent(content []mcp.Content) {
	for _, c := range content {
		switch c.Type {
		case mcp.ContentTypeText:
			fmt.Println(c.Text)
		default:
			fmt.Printf("<%s content>\n", c.Type)
		}
	}
}

func printTools(tools []mcp.Tool) {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	fmt.Printf("%d tools: %s\n", len(tools), strings.Join(names, ", "))
}
