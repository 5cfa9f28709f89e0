package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"pulse/internal/cli/style"
	"pulse/internal/domain"
)

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash", "status"},
	Short:   "Show overall health, endpoint status and recent incidents",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		dash, err := a.repos.Dashboard.Get(ctx)
		if err != nil {
			return err
		}

		printDashboard(cmd.OutOrStdout(), dash)
		return nil
	},
}

func printDashboard(w io.Writer, dash domain.DashboardData) {
	fmt.Fprintln(w, style.Banner.Render(fmt.Sprintf("PULSE  %d%%", dash.OverallHealth))+
		style.Subtitle.Render(fmt.Sprintf("  %d endpoint(s)", dash.EndpointCount)))
	fmt.Fprintf(w, "  %s %d healthy   %s %d degraded   %s %d down   %s\n\n",
		style.DotHealthy, dash.HealthyCount,
		style.DotWarning, dash.DegradedCount,
		style.DotUnhealthy, dash.DownCount,
		style.DimText.Render(fmt.Sprintf("%d active incident(s)", dash.ActiveIncidentCount)),
	)

	if len(dash.Endpoints) > 0 {
		fmt.Fprintln(w, style.TableHeader.Render(fmt.Sprintf("  %-2s  %-28s %-10s %s", "", "ENDPOINT", "STATUS", "LATENCY")))
		for _, ep := range dash.Endpoints {
			latency := style.DimText.Render("-")
			if ms := ep.LatencyMs(); ms != nil {
				latency = domain.FormatLatency(*ms)
			}
			fmt.Fprintf(w, "  %s  %-28s %-10s %s\n",
				style.StatusDot(ep.Status()),
				truncate(ep.Name, 28),
				style.StatusText(ep.Status()),
				latency,
			)
		}
		fmt.Fprintln(w)
	}

	if len(dash.RecentIncidents) > 0 {
		fmt.Fprintln(w, style.Title.Render("recent incidents"))
		printIncidentRows(w, dash.RecentIncidents, time.Now())
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
