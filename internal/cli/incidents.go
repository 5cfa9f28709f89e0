package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"pulse/internal/cli/style"
	"pulse/internal/domain"
)

var (
	incidentStatusFilter string
	incidentMessage      string
)

func init() {
	rootCmd.AddCommand(incidentsCmd)
	incidentsCmd.AddCommand(incidentsListCmd, incidentsGetCmd, incidentsStatusCmd, incidentsStatsCmd)

	incidentsListCmd.Flags().StringVar(&incidentStatusFilter, "status", "", "Only show incidents in this status")
	incidentsStatusCmd.Flags().StringVarP(&incidentMessage, "message", "m", "", "Timeline message for the change")
}

var incidentsCmd = &cobra.Command{
	Use:     "incidents",
	Aliases: []string{"inc"},
	Short:   "Follow and update incidents",
}

// parseStatusArg rejects unknown statuses instead of falling back.
func parseStatusArg(raw string) (domain.IncidentStatus, error) {
	status, ok := domain.ParseIncidentStatus(raw)
	if !ok {
		return "", fmt.Errorf("unknown incident status %q (want one of %v)", raw, domain.AllIncidentStatuses)
	}
	return status, nil
}

var incidentsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List incidents, active first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter *domain.IncidentStatus
		if incidentStatusFilter != "" {
			status, err := parseStatusArg(incidentStatusFilter)
			if err != nil {
				return err
			}
			filter = &status
		}

		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		incidents, err := a.repos.Incidents.List(ctx, filter)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(incidents) == 0 {
			fmt.Fprintln(w, style.DimText.Render("no incidents"))
			return nil
		}

		domain.SortIncidents(incidents)
		printIncidentRows(w, incidents, time.Now())
		return nil
	},
}

func printIncidentRows(w io.Writer, incidents []domain.Incident, now time.Time) {
	fmt.Fprintln(w, style.TableHeader.Render(fmt.Sprintf("  %-36s %-10s %-14s %-8s %s", "ID", "SEVERITY", "STATUS", "FOR", "TITLE")))
	for _, inc := range incidents {
		fmt.Fprintf(w, "  %-36s %s %s %-8s %s\n",
			inc.ID,
			style.SeverityText(inc.Severity)+pad(string(inc.Severity), 10),
			style.IncidentStatusText(inc.Status)+pad(string(inc.Status), 14),
			domain.FormatDuration(inc.DurationAt(now)),
			inc.Title,
		)
	}
}

// pad returns the spaces a styled cell needs to reach width.
func pad(plain string, width int) string {
	n := width - len([]rune(plain))
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%*s", n, "")
}

var incidentsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show an incident and its timeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		detail, err := a.repos.Incidents.Get(ctx, args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		inc := detail.Incident
		fmt.Fprintln(w, style.Title.Render(inc.Title))
		fmt.Fprintln(w, style.KV("id", inc.ID))
		fmt.Fprintln(w, style.KV("endpoint", inc.EndpointID))
		fmt.Fprintln(w, style.KV("type", inc.Type.DisplayName()))
		fmt.Fprintln(w, style.KV("severity", style.SeverityText(inc.Severity)))
		fmt.Fprintln(w, style.KV("status", style.IncidentStatusText(inc.Status)))
		fmt.Fprintln(w, style.KV("started", inc.StartedAt.Local().Format(time.RFC1123)))
		if inc.ResolvedAt != nil {
			fmt.Fprintln(w, style.KV("resolved", inc.ResolvedAt.Local().Format(time.RFC1123)))
		}
		fmt.Fprintln(w, style.KV("duration", domain.FormatDuration(inc.Duration())))
		if len(inc.AffectedRegions) > 0 {
			fmt.Fprintln(w, style.KV("regions", fmt.Sprint(inc.AffectedRegions)))
		}
		if inc.Description != nil {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "  "+*inc.Description)
		}

		if len(detail.Timeline) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, style.Title.Render("timeline"))
			for _, entry := range detail.Timeline {
				fmt.Fprintf(w, "  %s  %s %s\n",
					style.DimText.Render(entry.Timestamp.Local().Format("Jan 02 15:04")),
					style.IncidentStatusText(entry.Status)+pad(string(entry.Status), 14),
					entry.Message,
				)
			}
		}
		return nil
	},
}

var incidentsStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Move an incident to a new status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := parseStatusArg(args[1])
		if err != nil {
			return err
		}

		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		if err := a.repos.Incidents.UpdateStatus(ctx, args[0], status, incidentMessage); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s is now %s\n", style.DotHealthy, args[0], style.IncidentStatusText(status))
		return nil
	},
}

var incidentsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show incident counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		stats, err := a.repos.Incidents.Stats(ctx)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, style.Title.Render("incidents"))
		fmt.Fprintln(w, style.KV("total", fmt.Sprint(stats.Total)))
		fmt.Fprintln(w, style.KV("active", style.Warning.Render(fmt.Sprint(stats.Active))))
		fmt.Fprintln(w, style.KV("resolved", fmt.Sprint(stats.Resolved)))
		fmt.Fprintln(w, style.KV("critical", style.Unhealthy.Render(fmt.Sprint(stats.Critical))))
		fmt.Fprintln(w, style.KV("major", fmt.Sprint(stats.Major)))
		fmt.Fprintln(w, style.KV("minor", fmt.Sprint(stats.Minor)))
		return nil
	},
}
