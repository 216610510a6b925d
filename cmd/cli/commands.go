package main

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yourusername/mediafetch-go/internal/app"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

var submitCmd = &cobra.Command{
	Use:   "submit [url]",
	Short: "Submit a download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		req := map[string]interface{}{"url": args[0]}
		for _, name := range []string{"type", "format", "quality", "downloader"} {
			if v, _ := f.GetString(name); v != "" {
				req[name] = v
			}
		}
		sessionID, _ := f.GetString("session")
		if sessionID == "" {
			sessionID = uuid.New().String()
		}
		req["session_id"] = sessionID
		if v, _ := f.GetBool("embed-thumbnail"); v {
			req["embed_thumbnail"] = true
		}
		if v, _ := f.GetBool("embed-metadata"); v {
			req["embed_metadata"] = true
		}

		c := client()
		var ack app.Ack
		if err := c.post("/api/v1/downloads", req, &ack); err != nil {
			return err
		}

		p := stdout()
		if err := p.print(ack, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "Download submitted")
			fmt.Fprintf(w, "  Session:\t%s\n", ack.SessionID)
			fmt.Fprintf(w, "  Task:\t%s\n", ack.TaskID)
			fmt.Fprintf(w, "  Type:\t%s\n", ack.MediaKind)
			fmt.Fprintf(w, "  Format:\t%s\n", ack.Format)
			backend := string(ack.Backend)
			if ack.Downgraded {
				backend += " (accelerator unavailable)"
			}
			fmt.Fprintf(w, "  Downloader:\t%s\n", backend)
		}); err != nil {
			return err
		}

		if watch, _ := f.GetBool("watch"); watch {
			return watchSession(cmd.Context(), c, ack.SessionID, p)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [session-id]",
	Short: "Show the latest progress of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ev domain.ProgressEvent
		if err := client().get("/api/v1/sessions/"+url.PathEscape(args[0]), nil, &ev); err != nil {
			return err
		}
		return stdout().print(ev, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, describeEvent(args[0], ev))
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [session-id]",
	Short: "Follow a session live until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchSession(cmd.Context(), client(), args[0], stdout())
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [session-id]",
	Short: "Cancel a running accelerator download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client().post("/api/v1/sessions/"+url.PathEscape(args[0])+"/cancel", nil, nil); err != nil {
			return err
		}
		fmt.Println("Cancellation requested")
		return nil
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List task history",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		for _, name := range []string{"status", "session_id", "downloader", "type"} {
			if v, _ := cmd.Flags().GetString(name); v != "" {
				query.Set(name, v)
			}
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
			query.Set("limit", strconv.Itoa(limit))
		}

		var result struct {
			Tasks []*domain.Task `json:"tasks"`
			Count int            `json:"count"`
		}
		if err := client().get("/api/v1/tasks", query, &result); err != nil {
			return err
		}

		return stdout().print(result, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "ID\tSESSION\tTYPE\tDOWNLOADER\tSTATUS\tURL\tCREATED")
			for _, t := range result.Tasks {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					truncate(t.ID, 8),
					truncate(t.SessionID, 12),
					t.MediaKind,
					t.Backend,
					t.Status,
					truncate(t.URL, 40),
					t.CreatedAt.Format("2006-01-02 15:04:05"))
			}
		})
	},
}

var taskCmd = &cobra.Command{
	Use:   "task [id]",
	Short: "Show a task record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var t domain.Task
		if err := client().get("/api/v1/tasks/"+url.PathEscape(args[0]), nil, &t); err != nil {
			return err
		}
		return stdout().print(t, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "Task Details:")
			fmt.Fprintf(w, "  ID:\t%s\n", t.ID)
			fmt.Fprintf(w, "  Session:\t%s\n", t.SessionID)
			fmt.Fprintf(w, "  URL:\t%s\n", t.URL)
			fmt.Fprintf(w, "  Type:\t%s (%s, %s)\n", t.MediaKind, t.TargetFormat, t.Quality)
			fmt.Fprintf(w, "  Downloader:\t%s\n", t.Backend)
			fmt.Fprintf(w, "  Status:\t%s\n", t.Status)
			if t.Title != "" {
				fmt.Fprintf(w, "  Title:\t%s\n", t.Title)
			}
			if t.FilePath != "" {
				fmt.Fprintf(w, "  File:\t%s\n", t.FilePath)
			}
			if t.ErrorMessage != "" {
				fmt.Fprintf(w, "  Error:\t%s (%s)\n", t.ErrorMessage, t.ErrorKind)
			}
			fmt.Fprintf(w, "  Created:\t%s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		var stats domain.TaskStats
		if err := client().get("/api/v1/tasks/stats", nil, &stats); err != nil {
			return err
		}
		return stdout().print(stats, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "Task Statistics:")
			fmt.Fprintf(w, "  Total:\t%d\n", stats.Total)
			fmt.Fprintf(w, "  Queued:\t%d\n", stats.Queued)
			fmt.Fprintf(w, "  Processing:\t%d\n", stats.Processing)
			fmt.Fprintf(w, "  Completed:\t%d\n", stats.Completed)
			fmt.Fprintf(w, "  Failed:\t%d\n", stats.Failed)
			fmt.Fprintf(w, "  Cancelled:\t%d\n", stats.Cancelled)
		})
	},
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List finished downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result struct {
			Files []domain.MediaFile `json:"files"`
			Count int                `json:"count"`
		}
		if err := client().get("/api/v1/files", nil, &result); err != nil {
			return err
		}
		return stdout().print(result, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "NAME\tTYPE\tSIZE\tMODIFIED")
			for _, f := range result.Files {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					truncate(f.Filename, 60),
					f.MediaKind,
					humanBytes(f.Size),
					f.Modified.Format("2006-01-02 15:04"))
			}
		})
	},
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Clear the yt-dlp cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		var res domain.CacheClearResult
		if err := client().post("/api/v1/maintenance/clear-cache", nil, &res); err != nil {
			return err
		}
		return stdout().print(res, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, res.Message)
			for _, dir := range res.Removed {
				fmt.Fprintf(w, "  removed\t%s\n", dir)
			}
		})
	},
}

var updateExtractorCmd = &cobra.Command{
	Use:   "update-extractor",
	Short: "Update yt-dlp",
	RunE: func(cmd *cobra.Command, args []string) error {
		var res domain.UpdateResult
		if err := client().post("/api/v1/maintenance/update-extractor", nil, &res); err != nil {
			return err
		}
		return stdout().print(res, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "yt-dlp version:\t%s\n", res.Version)
		})
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [category]",
	Short: "Read server logs (dispatch, transfer, error)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client()
		if len(args) == 0 {
			var result struct {
				Categories []logger.LogCategory `json:"categories"`
			}
			if err := c.get("/api/v1/logs/categories", nil, &result); err != nil {
				return err
			}
			return stdout().print(result, func(w *tabwriter.Writer) {
				for _, cat := range result.Categories {
					fmt.Fprintln(w, cat)
				}
			})
		}

		query := url.Values{}
		if v, _ := cmd.Flags().GetString("date"); v != "" {
			query.Set("date", v)
		}
		if v, _ := cmd.Flags().GetString("query"); v != "" {
			query.Set("q", v)
		}
		if v, _ := cmd.Flags().GetInt("limit"); v > 0 {
			query.Set("limit", strconv.Itoa(v))
		}

		var result struct {
			Entries []logger.LogEntry `json:"entries"`
			Count   int               `json:"count"`
		}
		if err := c.get("/api/v1/logs/"+url.PathEscape(args[0]), query, &result); err != nil {
			return err
		}
		return stdout().print(result, func(w *tabwriter.Writer) {
			for _, e := range result.Entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp, e.Level, e.Message, formatFields(e.Fields))
			}
		})
	},
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

func init() {
	submitCmd.Flags().StringP("type", "t", "", "Media type (video, audio)")
	submitCmd.Flags().StringP("format", "f", "", "Target format (original, mp4, mp3, ...)")
	submitCmd.Flags().StringP("quality", "q", "", "Quality (best, 1080p, 192, ...)")
	submitCmd.Flags().StringP("downloader", "d", "", "Downloader (embedded, accelerator)")
	submitCmd.Flags().StringP("session", "s", "", "Session id (generated when empty)")
	submitCmd.Flags().Bool("embed-thumbnail", false, "Embed the thumbnail (mp3 only)")
	submitCmd.Flags().Bool("embed-metadata", false, "Embed metadata")
	submitCmd.Flags().BoolP("watch", "w", false, "Follow progress after submitting")

	tasksCmd.Flags().String("status", "", "Filter by status")
	tasksCmd.Flags().String("session_id", "", "Filter by session")
	tasksCmd.Flags().String("downloader", "", "Filter by downloader")
	tasksCmd.Flags().String("type", "", "Filter by media type")
	tasksCmd.Flags().IntP("limit", "n", 50, "Maximum number of tasks")

	logsCmd.Flags().String("date", "", "Day to read (YYYY-MM-DD, default today)")
	logsCmd.Flags().StringP("query", "q", "", "Only entries containing this text")
	logsCmd.Flags().IntP("limit", "n", 100, "Maximum number of entries")
}
