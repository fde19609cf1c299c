// Package admincli is the operator command line: list users, inspect a
// user's history and print the daily report.
package admincli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"arogya/internal/analytics"
	"arogya/internal/auth"
	"arogya/internal/history"
	"arogya/internal/storage"
	"arogya/internal/triagemcp"
	"arogya/internal/wellness"
)

type UserStore interface {
	List() ([]auth.User, error)
	Get(username string) (auth.User, error)
	SetScore(username string, score int) error
}

type HistoryReader interface {
	ForUser(username string) ([]history.Record, error)
}

type EventLoader interface {
	LoadInteractions() ([]storage.Event, error)
}

type Deps struct {
	Users   UserStore
	History HistoryReader
	Events  EventLoader
}

func NewRoot(d Deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "arogya-admin",
		Short:         "Operator tools for the Arogya triage service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		UsersCmd(d),
		HistoryCmd(d),
		SetScoreCmd(d),
		ReportCmd(d),
		MCPCheckCmd(),
	)
	return root
}

func UsersCmd(d Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List accounts and their wellness scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := d.Users.List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tSCORE\tNEEDS QUIZ\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%d\t%t\t%s\n", u.Username, u.HealthScore, wellness.NeedsQuiz(u.HealthScore), u.Created)
			}
			return w.Flush()
		},
	}
}

func HistoryCmd(d Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "history <username>",
		Short: "Show a user's retained consultation records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := d.Users.Get(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			recs, err := d.History.ForUser(u.Username)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: score %d, %d records\n", u.Username, u.HealthScore, len(recs))
			for _, r := range recs {
				fmt.Fprintf(out, "%s %s %s\n", r.Date, r.Severity.Marker(), r.Symptom)
			}
			return nil
		},
	}
}

func SetScoreCmd(d Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "set-score <username> <score>",
		Short: "Overwrite a user's wellness score (0 sends them back to the quiz)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("score: %w", err)
			}
			score, err := wellness.Clamp(v)
			if err != nil {
				return err
			}
			if err := d.Users.SetScore(args[0], score); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s score set to %d\n", args[0], score)
			return nil
		},
	}
}

func ReportCmd(d Deps) *cobra.Command {
	var (
		date   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the daily triage report",
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().UTC()
			if date != "" {
				parsed, err := time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				day = parsed
			}
			events, err := d.Events.LoadInteractions()
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), analytics.AnalyzeDay(events, day), format)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to report on (YYYY-MM-DD, UTC); defaults to today")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json or yaml")
	return cmd
}

func writeReport(w io.Writer, stats *analytics.DailyStats, format string) error {
	switch format {
	case "text":
		_, err := io.WriteString(w, stats.GenerateReportSummary())
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(stats)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// MCPCheckCmd starts a triage MCP server binary and checks that it answers.
func MCPCheckCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "mcp-check <server-binary>",
		Short: "Start a triage MCP server and list its tools",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			c := triagemcp.NewClient()
			if err := c.Connect(ctx, args[0]); err != nil {
				return err
			}
			defer c.Close()
			return checkServer(ctx, cmd.OutOrStdout(), c, user)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "also fetch this user's wellness score")
	return cmd
}

func checkServer(ctx context.Context, w io.Writer, c *triagemcp.Client, user string) error {
	names, err := c.Tools(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "tools: %s\n", strings.Join(names, ", "))
	if user == "" {
		return nil
	}
	var hs struct {
		HealthScore int  `json:"health_score"`
		NeedsQuiz   bool `json:"needs_quiz"`
	}
	if err := c.Call(ctx, "health_score", map[string]any{"username": user}, &hs); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: score %d, needs quiz %t\n", user, hs.HealthScore, hs.NeedsQuiz)
	return nil
}
