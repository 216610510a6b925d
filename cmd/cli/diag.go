package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Run server diagnostics",
}

var diagAcceleratorCmd = &cobra.Command{
	Use:   "accelerator",
	Short: "Check that aria2c is usable",
	RunE: func(cmd *cobra.Command, args []string) error {
		var res domain.ProbeResult
		if err := client().get("/api/v1/diagnostics/accelerator", nil, &res); err != nil {
			return err
		}
		return stdout().print(res, func(w *tabwriter.Writer) {
			printProbe(w, "aria2c", res)
		})
	},
}

var diagPerformanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Show tuning and current load",
	RunE: func(cmd *cobra.Command, args []string) error {
		var st domain.PerformanceStatus
		if err := client().get("/api/v1/diagnostics/performance", nil, &st); err != nil {
			return err
		}
		return stdout().print(st, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Workers:\t%d (%d busy, %d queued)\n", st.Workers, st.ActiveWorkers, st.QueueLength)
			fmt.Fprintf(w, "Sessions:\t%d\n", st.Sessions)
			fmt.Fprintf(w, "Extractor:\t%s\n", st.Extractor)
			fmt.Fprintf(w, "Progress throttle:\t%s\n", st.ProgressThrottle)
			fmt.Fprintf(w, "Retries:\t%d (fragments %d)\n", st.Retries, st.FragmentRetries)
			fmt.Fprintf(w, "Concurrent fragments:\t%d\n", st.ConcurrentFragments)
			fmt.Fprintf(w, "Connections/split:\t%d/%d (min %s)\n", st.MaxConnections, st.Split, st.MinSplitSize)
			printProbe(w, "aria2c", st.Accelerator)
			printProbe(w, "ffmpeg", st.FFmpeg)
		})
	},
}

var diagConnectionCmd = &cobra.Command{
	Use:   "connection",
	Short: "Test outbound connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		var res domain.ConnectionResult
		if err := client().get("/api/v1/diagnostics/connection", nil, &res); err != nil {
			return err
		}
		return stdout().print(res, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "URL:\t%s\n", res.URL)
			fmt.Fprintf(w, "Status:\t%s (%d)\n", res.Status, res.StatusCode)
			fmt.Fprintf(w, "Latency:\t%dms\n", res.LatencyMS)
			if res.Message != "" {
				fmt.Fprintf(w, "Message:\t%s\n", res.Message)
			}
		})
	},
}

var diagFormatsCmd = &cobra.Command{
	Use:   "formats [url]",
	Short: "List the formats the extractor reports for a URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var report domain.FormatDebugReport
		if err := client().post("/api/v1/diagnostics/formats", map[string]string{"url": args[0]}, &report); err != nil {
			return err
		}
		return stdout().print(report, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "%s (%s), %d of %d formats directly fetchable\n",
				report.Title, report.Extractor, report.Usable, len(report.Formats))
			fmt.Fprintln(w, "ID\tEXT\tRES\tVCODEC\tACODEC\tPROTOCOL\tDIRECT")
			for _, f := range report.Formats {
				fmt.Fprintf(w, "%s\t%s\t%dx%d\t%s\t%s\t%s\t%v\n",
					f.ID, f.Container, f.Width, f.Height, f.VideoCodec, f.AudioCodec, f.Protocol, f.HasValidURL)
			}
		})
	},
}

var diagFFmpegCmd = &cobra.Command{
	Use:   "ffmpeg",
	Short: "Check that ffmpeg is usable",
	RunE: func(cmd *cobra.Command, args []string) error {
		var res domain.ProbeResult
		if err := client().get("/api/v1/diagnostics/ffmpeg", nil, &res); err != nil {
			return err
		}
		return stdout().print(res, func(w *tabwriter.Writer) {
			printProbe(w, "ffmpeg", res)
		})
	},
}

var diagExtractionCmd = &cobra.Command{
	Use:   "extraction",
	Short: "Resolve the server's test URL without downloading it",
	RunE: func(cmd *cobra.Command, args []string) error {
		var check domain.ExtractionCheck
		if err := client().get("/api/v1/diagnostics/extraction", nil, &check); err != nil {
			return err
		}
		return stdout().print(check, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "URL:\t%s\n", check.URL)
			fmt.Fprintf(w, "Status:\t%s\n", check.Status)
			if check.Title != "" {
				fmt.Fprintf(w, "Title:\t%s (%d formats)\n", check.Title, check.Formats)
			}
			if check.Error != "" {
				fmt.Fprintf(w, "Error:\t%s\n", truncate(check.Error, 120))
			}
			fmt.Fprintf(w, "Message:\t%s\n", check.Message)
		})
	},
}

var diagTroubleshootCmd = &cobra.Command{
	Use:   "troubleshoot",
	Short: "Show remediation steps for refused or failing downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		var guide domain.TroubleshootingGuide
		if err := client().get("/api/v1/diagnostics/troubleshooting", nil, &guide); err != nil {
			return err
		}
		return stdout().print(guide, func(w *tabwriter.Writer) {
			printSteps(w, "HTTP 403 from the site", guide.Forbidden)
			printSteps(w, "Connection problems", guide.Connection)
		})
	},
}

func printSteps(w *tabwriter.Writer, heading string, steps []domain.TroubleshootingStep) {
	fmt.Fprintln(w, heading+":")
	for _, s := range steps {
		detail := s.Description
		if s.Endpoint != "" {
			detail = s.Method + " " + s.Endpoint
		}
		fmt.Fprintf(w, "  %d.\t%s\t%s\n", s.Step, s.Title, detail)
	}
}

func printProbe(w *tabwriter.Writer, name string, res domain.ProbeResult) {
	if res.Available {
		fmt.Fprintf(w, "%s:\tavailable (%s)\n", name, res.Version)
		return
	}
	fmt.Fprintf(w, "%s:\tunavailable (%s)\n", name, res.Message)
}

func init() {
	diagCmd.AddCommand(
		diagAcceleratorCmd,
		diagPerformanceCmd,
		diagConnectionCmd,
		diagFormatsCmd,
		diagFFmpegCmd,
		diagExtractionCmd,
		diagTroubleshootCmd,
	)
}
