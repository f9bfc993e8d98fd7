package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/careconnect-ai/insights/pkg/analytics"
	"github.com/careconnect-ai/insights/pkg/analytics/chart"
	"github.com/careconnect-ai/insights/pkg/common/config"
	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/notify"
	"github.com/careconnect-ai/insights/pkg/push"
	"github.com/careconnect-ai/insights/pkg/remote"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	logLevel string
	cfg      *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "careconnect",
	Short:   "CareConnect insights operator tool",
	Long:    "careconnect renders dashboard charts offline, emits insight events and previews metric animations.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.InitWithOutput(os.Stderr, logLevel)
		cfg = config.Load()
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level")

	renderCmd.Flags().StringP("input", "i", "", "Saved analytics response (JSON)")
	renderCmd.Flags().StringP("out", "o", ".", "Output directory for the PNG files")
	renderCmd.Flags().String("layout", "", "Chart layout YAML (defaults to CHART_LAYOUT_PATH)")
	_ = renderCmd.MarkFlagRequired("input")

	publishCmd.Flags().String("transport", "", "kafka or redis (defaults to PUSH_TRANSPORT)")
	publishCmd.Flags().String("channel", "", "Push channel (defaults to PUSH_CHANNEL)")
	publishCmd.Flags().String("record", "", "Changed record id carried in the event")

	framesCmd.Flags().String("from", "0,0,0,0", "Starting metrics: total,active,highRisk,engagement")
	framesCmd.Flags().String("to", "", "Target metrics: total,active,highRisk,engagement")
	framesCmd.Flags().Int("frames", 0, "Frame count (defaults to ANIMATION_FRAMES)")
	_ = framesCmd.MarkFlagRequired("to")

	watchCmd.Flags().Bool("push", false, "Also subscribe to the push channel (PUSH_TRANSPORT)")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(framesCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "careconnect", version)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Draw the dashboard charts from a saved analytics response",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		out, _ := cmd.Flags().GetString("out")
		layoutPath, _ := cmd.Flags().GetString("layout")
		if layoutPath == "" {
			layoutPath = cfg.ChartLayoutPath
		}

		written, err := renderCharts(input, out, layoutPath)
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Emit one insight event so running dashboards refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		channel, _ := cmd.Flags().GetString("channel")
		record, _ := cmd.Flags().GetString("record")
		if channel == "" {
			channel = cfg.PushChannel
		}

		publisher, err := push.NewPublisher(cfg, strings.ToLower(transport), channel)
		if err != nil {
			return err
		}
		defer publisher.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		event := push.NewInsightEvent(record)
		if err := publisher.Publish(ctx, event); err != nil {
			return fmt.Errorf("publishing event: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %s on %s\n", event.ID, channel)
		return nil
	},
}

var framesCmd = &cobra.Command{
	Use:   "frames",
	Short: "Print the interpolation frames between two metric sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		fromFlag, _ := cmd.Flags().GetString("from")
		toFlag, _ := cmd.Flags().GetString("to")
		n, _ := cmd.Flags().GetInt("frames")
		if n <= 0 {
			n = cfg.AnimationFrames
		}

		from, err := parseMetrics(fromFlag)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := parseMetrics(toFlag)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		for i, f := range analytics.Frames(from, to, n) {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d  %d %d %d %d\n", i+1,
				f.TotalPatients, f.ActiveCarePlans, f.HighRiskCount, f.EngagementRate)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live analytics feed and print every displayed frame",
	RunE: func(cmd *cobra.Command, args []string) error {
		withPush, _ := cmd.Flags().GetBool("push")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		animator := analytics.NewAnimator(func(m analytics.Metrics) {
			fmt.Fprintf(out, "%s  %d %d %d %d\n", time.Now().Format("15:04:05.000"),
				m.TotalPatients, m.ActiveCarePlans, m.HighRiskCount, m.EngagementRate)
		}, analytics.WithTiming(cfg.AnimationDuration, cfg.AnimationFrames))

		opts := []analytics.ControllerOption{
			analytics.WithNotifier(notify.LogNotifier{}),
			analytics.WithAnimator(animator),
			analytics.WithRefreshInterval(cfg.RefreshInterval),
			analytics.WithPushChannel(cfg.PushChannel),
		}
		if withPush {
			subscriber, err := push.NewSubscriber(cfg)
			if err != nil {
				return err
			}
			if subscriber != nil {
				opts = append(opts, analytics.WithSubscriber(subscriber))
			}
		}

		client := remote.NewClient(cfg.RemoteBaseURL, remote.NewHTTPClient(ctx, cfg))
		controller := analytics.NewController(analytics.NewRemoteSource(client), opts...)
		if err := controller.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		controller.Stop()
		return nil
	},
}

// parseMetrics reads "total,active,highRisk,engagement".
func parseMetrics(s string) (analytics.Metrics, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return analytics.Metrics{}, fmt.Errorf("want 4 comma-separated values, got %q", s)
	}
	values := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return analytics.Metrics{}, fmt.Errorf("value %d: %w", i+1, err)
		}
		values[i] = v
	}
	return analytics.Metrics{
		TotalPatients:   values[0],
		ActiveCarePlans: values[1],
		HighRiskCount:   values[2],
		EngagementRate:  values[3],
	}, nil
}

// renderCharts normalizes a saved response and writes one PNG per mounted
// surface into outDir.
func renderCharts(input, outDir, layoutPath string) ([]string, error) {
	body, err := os.ReadFile(filepath.Clean(input))
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	ds, err := analytics.DecodeAnalytics(body)
	if err != nil {
		return nil, err
	}

	layout, err := chart.LoadLayout(layoutPath)
	if err != nil {
		return nil, fmt.Errorf("loading layout: %w", err)
	}
	board := chart.NewBoard(layout)
	if err := board.Draw(ds); err != nil {
		return nil, fmt.Errorf("drawing charts: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	var written []string
	for _, spec := range layout.Surfaces {
		surface, ok := board.Surface(spec.ID)
		if !ok {
			continue
		}
		path := filepath.Join(outDir, spec.ID+".png")
		if err := writeSurface(surface, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeSurface(surface *chart.Surface, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := surface.WritePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
