package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pulse/internal/api"
	"pulse/internal/cli/style"
	"pulse/internal/domain"
)

var probeHours int

func init() {
	rootCmd.AddCommand(probesCmd)
	probesCmd.AddCommand(probesHistoryCmd, probesStatsCmd)
	probesCmd.PersistentFlags().IntVar(&probeHours, "hours", api.DefaultProbeHours, "Window in hours")
}

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "Inspect probe results of an endpoint",
}

var probesHistoryCmd = &cobra.Command{
	Use:   "history <endpoint-id>",
	Short: "List probe results, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		results, err := a.repos.Probes.History(ctx, args[0], probeHours)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(w, style.DimText.Render(fmt.Sprintf("no probes in the last %dh", probeHours)))
			return nil
		}

		fmt.Fprintln(w, style.TableHeader.Render(fmt.Sprintf("  %-2s  %-14s %-8s %-6s %-10s %s", "", "TIME", "LATENCY", "CODE", "REGION", "ERROR")))
		for _, r := range results {
			dot := style.DotHealthy
			if !r.IsSuccess() {
				dot = style.DotUnhealthy
			}
			latency := "-"
			if r.LatencyMs != nil {
				latency = domain.FormatLatency(*r.LatencyMs)
			}
			code := "-"
			if r.StatusCode != nil {
				code = fmt.Sprint(*r.StatusCode)
			}
			msg := ""
			if r.ErrorMessage != nil {
				msg = style.DimText.Render(*r.ErrorMessage)
			}
			fmt.Fprintf(w, "  %s  %-14s %-8s %-6s %-10s %s\n",
				dot, r.Timestamp.Local().Format("Jan 02 15:04"), latency, code, r.Region, msg)
		}
		return nil
	},
}

var probesStatsCmd = &cobra.Command{
	Use:   "stats <endpoint-id>",
	Short: "Show probe statistics for the window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		stats, err := a.repos.Probes.Stats(ctx, args[0], probeHours)
		if err != nil {
			return err
		}
		printProbeStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func printProbeStats(w io.Writer, s domain.ProbeStatistics) {
	fmt.Fprintln(w, style.Title.Render("probes"))
	fmt.Fprintln(w, style.KV("window", fmt.Sprintf("%s to %s",
		s.PeriodStart.Local().Format("Jan 02 15:04"), s.PeriodEnd.Local().Format("Jan 02 15:04"))))
	fmt.Fprintln(w, style.KV("total", fmt.Sprint(s.TotalProbes)))
	fmt.Fprintln(w, style.KV("success", fmt.Sprintf("%d (%s)", s.SuccessCount, domain.FormatPercent(s.SuccessRate()))))
	fmt.Fprintln(w, style.KV("errors", fmt.Sprintf("%d + %d timeouts (%s)", s.ErrorCount, s.TimeoutCount, domain.FormatPercent(s.ErrorRate()))))

	latencies := []struct {
		label string
		value *float64
	}{
		{"avg", s.AverageLatencyMs},
		{"p50", s.P50LatencyMs},
		{"p95", s.P95LatencyMs},
		{"p99", s.P99LatencyMs},
		{"min", s.MinLatencyMs},
		{"max", s.MaxLatencyMs},
	}
	for _, l := range latencies {
		if l.value != nil {
			fmt.Fprintln(w, style.KV(l.label, domain.FormatLatency(*l.value)))
		}
	}
	fmt.Fprintln(w)
}
