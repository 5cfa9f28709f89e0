package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pulse/internal/api"
	"pulse/internal/cli/style"
	"pulse/internal/domain"
	"pulse/internal/monitoring"
)

var (
	endpointSearch string
	endpointHours  int
	endpointFlags  endpointFields
)

// endpointFields backs the create and update flags.
type endpointFields struct {
	name     string
	url      string
	method   string
	interval int
	timeout  int
	expect   []int
	headers  map[string]string
	body     string
	inactive bool
}

func init() {
	rootCmd.AddCommand(endpointsCmd)
	endpointsCmd.AddCommand(endpointsListCmd, endpointsGetCmd, endpointsCreateCmd,
		endpointsUpdateCmd, endpointsDeleteCmd, endpointsHealthCmd, endpointsDetailCmd)

	endpointsListCmd.Flags().StringVarP(&endpointSearch, "search", "s", "", "Only show endpoints whose name or URL contains this text")
	endpointsDetailCmd.Flags().IntVar(&endpointHours, "hours", api.DefaultProbeHours, "Probe window in hours")

	for _, c := range []*cobra.Command{endpointsCreateCmd, endpointsUpdateCmd} {
		f := c.Flags()
		f.StringVar(&endpointFlags.name, "name", "", "Display name")
		f.StringVar(&endpointFlags.url, "url", "", "Absolute URL to probe")
		f.StringVar(&endpointFlags.method, "method", string(domain.MethodGet), "HTTP method")
		f.IntVar(&endpointFlags.interval, "interval", domain.DefaultProbeIntervalMinutes, "Probe interval in minutes (1-60)")
		f.IntVar(&endpointFlags.timeout, "timeout-seconds", domain.DefaultTimeoutSeconds, "Probe timeout in seconds")
		f.IntSliceVar(&endpointFlags.expect, "expect", domain.DefaultExpectedStatusCodes, "Accepted status codes")
		f.StringToStringVar(&endpointFlags.headers, "header", nil, "Request header as key=value, repeatable")
		f.StringVar(&endpointFlags.body, "body", "", "Request body")
		f.BoolVar(&endpointFlags.inactive, "inactive", false, "Create or leave the endpoint paused")
	}
}

var endpointsCmd = &cobra.Command{
	Use:     "endpoints",
	Aliases: []string{"ep"},
	Short:   "Manage monitored endpoints",
}

var endpointsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List endpoints",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		endpoints, err := a.repos.Endpoints.List(ctx)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		var shown []domain.Endpoint
		for _, ep := range endpoints {
			if ep.Matches(endpointSearch) {
				shown = append(shown, ep)
			}
		}
		if len(shown) == 0 {
			fmt.Fprintln(w, style.DimText.Render("no endpoints"))
			return nil
		}

		sort.SliceStable(shown, func(i, j int) bool {
			return strings.ToLower(shown[i].Name) < strings.ToLower(shown[j].Name)
		})

		fmt.Fprintln(w, style.TableHeader.Render(fmt.Sprintf("  %-36s %-24s %-6s %-8s %s", "ID", "NAME", "METHOD", "EVERY", "URL")))
		for _, ep := range shown {
			name := truncate(ep.Name, 24)
			if !ep.IsActive {
				name = style.DimText.Render(fmt.Sprintf("%-24s", name))
			} else {
				name = fmt.Sprintf("%-24s", name)
			}
			fmt.Fprintf(w, "  %-36s %s %-6s %-8s %s\n",
				ep.ID, name, ep.Method, fmt.Sprintf("%dm", ep.ProbeIntervalMinutes), ep.URL)
		}
		return nil
	},
}

var endpointsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		ep, err := a.repos.Endpoints.Get(ctx, args[0])
		if err != nil {
			return err
		}
		printEndpoint(cmd.OutOrStdout(), ep)
		return nil
	},
}

var endpointsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		method, ok := domain.ParseHTTPMethod(endpointFlags.method)
		if !ok {
			return fmt.Errorf("unsupported method %q", endpointFlags.method)
		}

		ep := domain.NewEndpoint(endpointFlags.name, endpointFlags.url, method)
		ep.ProbeIntervalMinutes = endpointFlags.interval
		ep.TimeoutSeconds = endpointFlags.timeout
		ep.ExpectedStatusCodes = endpointFlags.expect
		ep.Headers = endpointFlags.headers
		ep.IsActive = !endpointFlags.inactive
		if endpointFlags.body != "" {
			body := endpointFlags.body
			ep.Body = &body
		}

		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		created, err := a.repos.Endpoints.Create(ctx, ep)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, style.SuccessBox.Render("created "+created.Name))
		printEndpoint(w, created)
		return nil
	},
}

var endpointsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change fields of an endpoint; only the flags given are sent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := patchFromFlags(cmd)
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

		updated, err := a.repos.Endpoints.Update(ctx, args[0], patch)
		if err != nil {
			return err
		}
		printEndpoint(cmd.OutOrStdout(), updated)
		return nil
	},
}

func patchFromFlags(cmd *cobra.Command) (domain.EndpointPatch, error) {
	var patch domain.EndpointPatch
	changed := cmd.Flags().Changed

	if changed("name") {
		patch.Name = &endpointFlags.name
	}
	if changed("url") {
		patch.URL = &endpointFlags.url
	}
	if changed("method") {
		method, ok := domain.ParseHTTPMethod(endpointFlags.method)
		if !ok {
			return patch, fmt.Errorf("unsupported method %q", endpointFlags.method)
		}
		patch.Method = &method
	}
	if changed("interval") {
		patch.ProbeIntervalMinutes = &endpointFlags.interval
	}
	if changed("timeout-seconds") {
		patch.TimeoutSeconds = &endpointFlags.timeout
	}
	if changed("expect") {
		patch.ExpectedStatusCodes = endpointFlags.expect
	}
	if changed("header") {
		patch.Headers = endpointFlags.headers
	}
	if changed("body") {
		patch.Body = &endpointFlags.body
	}
	if changed("inactive") {
		active := !endpointFlags.inactive
		patch.IsActive = &active
	}
	return patch, nil
}

var endpointsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an endpoint",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		if err := a.repos.Endpoints.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), style.Healthy.Render("deleted ")+args[0])
		return nil
	},
}

var endpointsHealthCmd = &cobra.Command{
	Use:   "health <id>",
	Short: "Show the health summary of an endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		health, err := a.repos.Endpoints.Health(ctx, args[0])
		if err != nil {
			return err
		}
		printHealth(cmd.OutOrStdout(), health)
		return nil
	},
}

var endpointsDetailCmd = &cobra.Command{
	Use:   "detail <id>",
	Short: "Show an endpoint with its health, probe statistics and recent latency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		detail, err := monitoring.LoadEndpointDetail(ctx, a.repos.Endpoints, a.repos.Probes, args[0], endpointHours)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		printEndpoint(w, detail.Endpoint)
		printHealth(w, detail.Health)
		printProbeStats(w, detail.Stats)

		if len(detail.Latency) > 0 {
			fmt.Fprintln(w, style.Title.Render("latency"))
			for _, p := range detail.Latency {
				fmt.Fprintf(w, "  %s  %s\n", style.DimText.Render(p.Timestamp.Local().Format("Jan 02 15:04")), domain.FormatLatency(p.LatencyMs))
			}
		}
		return nil
	},
}

func printEndpoint(w io.Writer, ep domain.Endpoint) {
	fmt.Fprintln(w, style.Title.Render(ep.Name))
	fmt.Fprintln(w, style.KV("id", ep.ID))
	fmt.Fprintln(w, style.KV("url", fmt.Sprintf("%s %s", ep.Method, ep.URL)))
	fmt.Fprintln(w, style.KV("interval", fmt.Sprintf("every %dm, timeout %ds", ep.ProbeIntervalMinutes, ep.TimeoutSeconds)))
	codes := make([]string, len(ep.ExpectedStatusCodes))
	for i, c := range ep.ExpectedStatusCodes {
		codes[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(w, style.KV("expects", strings.Join(codes, ", ")))
	if len(ep.Headers) > 0 {
		keys := make([]string, 0, len(ep.Headers))
		for k := range ep.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintln(w, style.KV("header", k+": "+ep.Headers[k]))
		}
	}
	active := style.Healthy.Render("active")
	if !ep.IsActive {
		active = style.DimText.Render("paused")
	}
	fmt.Fprintln(w, style.KV("state", active))
	if !ep.UpdatedAt.IsZero() {
		fmt.Fprintln(w, style.KV("updated", ep.UpdatedAt.Local().Format(time.RFC1123)))
	}
	fmt.Fprintln(w)
}

func printHealth(w io.Writer, h domain.HealthSummary) {
	fmt.Fprintln(w, style.Title.Render("health"))
	fmt.Fprintln(w, style.KV("status", style.StatusDot(h.Status)+" "+style.StatusText(h.Status)))
	fmt.Fprintln(w, style.KV("reliability", fmt.Sprintf("%.1f", h.ReliabilityScore)))
	fmt.Fprintln(w, style.KV("uptime", fmt.Sprintf("%.2f%%", h.UptimePercentage)))
	fmt.Fprintln(w, style.KV("error rate", domain.FormatPercent(h.ErrorRate)))
	if h.CurrentLatencyMs != nil {
		latency := domain.FormatLatency(*h.CurrentLatencyMs)
		if delta := h.LatencyDelta(); delta != nil {
			sign := "+"
			if *delta < 0 {
				sign = "-"
			}
			latency += style.DimText.Render(fmt.Sprintf(" (%s%s vs baseline)", sign, domain.FormatLatency(abs(*delta))))
		}
		fmt.Fprintln(w, style.KV("latency", latency))
	}
	if h.LastProbeAt != nil {
		fmt.Fprintln(w, style.KV("last probe", domain.FormatDuration(time.Since(*h.LastProbeAt))+" ago"))
	}
	fmt.Fprintln(w)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
