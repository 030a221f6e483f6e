package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/cron"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/tools"
)

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Manage scheduled tool calls",
}

func init() {
	cronCmd.AddCommand(cronListCmd)
	cronCmd.AddCommand(cronAddCmd)
	cronCmd.AddCommand(cronRemoveCmd)
	cronCmd.AddCommand(cronEnableCmd)
	cronCmd.AddCommand(cronRunCmd)
	cronCmd.AddCommand(cronServeCmd)
}

func scheduler() (*cron.Service, error) {
	c, err := buildContainer()
	if err != nil {
		return nil, err
	}
	return c.Scheduler(), nil
}

// ---- list ------------------------------------------------------------------

var cronListAll bool

var cronListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled jobs",
	RunE: func(_ *cobra.Command, _ []string) error {
		svc, err := scheduler()
		if err != nil {
			return err
		}
		jobs := svc.ListJobs(cronListAll)
		if len(jobs) == 0 {
			fmt.Println("No scheduled jobs.")
			return nil
		}
		fmt.Printf("%-10s %-20s %-22s %-22s %-9s %-17s %s\n", "ID", "Name", "Tool", "Schedule", "Status", "Next Run", "Last")
		fmt.Println(strings.Repeat("-", 112))
		for _, j := range jobs {
			status := "enabled"
			if !j.Enabled {
				status = "disabled"
			}
			nextRun := ""
			if j.State.NextRunAtMs != nil {
				nextRun = time.UnixMilli(*j.State.NextRunAtMs).Format("2006-01-02 15:04")
			}
			last := ""
			if j.State.LastStatus != nil {
				last = *j.State.LastStatus
			}
			fmt.Printf("%-10s %-20s %-22s %-22s %-9s %-17s %s\n",
				j.ID, truncStr(j.Name, 19), truncStr(j.Payload.Tool, 21),
				truncStr(formatSchedule(j.Schedule), 21), status, nextRun, last)
		}
		return nil
	},
}

func init() {
	cronListCmd.Flags().BoolVarP(&cronListAll, "all", "a", false, "Include disabled jobs")
}

// ---- add -------------------------------------------------------------------

var (
	cronAddName  string
	cronAddTool  string
	cronAddArgs  string
	cronAddFile  string
	cronAddEvery int
	cronAddCron  string
	cronAddTZ    string
	cronAddAt    string
	cronAddKeep  bool
)

var cronAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Schedule a tool call",
	RunE: func(_ *cobra.Command, _ []string) error {
		if cronAddTZ != "" && cronAddCron == "" {
			return fmt.Errorf("--tz can only be used with --cron")
		}

		var inline []string
		if cronAddArgs != "" {
			inline = []string{cronAddArgs}
		}
		args, err := toolArgs(inline, cronAddFile)
		if err != nil {
			return err
		}

		spec := cron.JobSpec{Name: cronAddName, Tool: cronAddTool, Args: args}
		switch {
		case cronAddEvery > 0:
			spec.Kind = "every"
			spec.EveryMs = int64(cronAddEvery) * 1000
		case cronAddCron != "":
			spec.Kind = "cron"
			spec.Expr = cronAddCron
			spec.TZ = cronAddTZ
		case cronAddAt != "":
			spec.Kind = "at"
			dt, err := time.ParseInLocation("2006-01-02T15:04:05", cronAddAt, time.Local)
			if err != nil {
				dt, err = time.Parse(time.RFC3339, cronAddAt)
				if err != nil {
					return fmt.Errorf("invalid --at value %q: %w", cronAddAt, err)
				}
			}
			spec.AtMs = dt.UnixMilli()
			spec.DeleteAfterRun = !cronAddKeep
		default:
			return fmt.Errorf("must specify --every, --cron, or --at")
		}

		c, err := buildContainer()
		if err != nil {
			return err
		}
		if c.Registry().GetTool(tools.ToolName(cronAddTool)) == nil {
			return fmt.Errorf("unknown or disabled tool %q", cronAddTool)
		}
		job, err := c.Scheduler().AddJob(spec)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Added job '%s' (%s)\n", job.Name, job.ID)
		return nil
	},
}

func init() {
	cronAddCmd.Flags().StringVarP(&cronAddName, "name", "n", "", "Job name (defaults to the tool name)")
	cronAddCmd.Flags().StringVarP(&cronAddTool, "tool", "t", "", "Tool to call (required)")
	cronAddCmd.Flags().StringVar(&cronAddArgs, "args", "", "Tool arguments as a JSON object")
	cronAddCmd.Flags().StringVarP(&cronAddFile, "args-file", "f", "", "Read tool arguments from a JSON or YAML file")
	cronAddCmd.Flags().IntVarP(&cronAddEvery, "every", "e", 0, "Run every N seconds")
	cronAddCmd.Flags().StringVarP(&cronAddCron, "cron", "c", "", "Cron expression (e.g. '0 9 * * *')")
	cronAddCmd.Flags().StringVar(&cronAddTZ, "tz", "", "IANA timezone for --cron")
	cronAddCmd.Flags().StringVar(&cronAddAt, "at", "", "Run once at ISO datetime")
	cronAddCmd.Flags().BoolVar(&cronAddKeep, "keep", false, "Keep a one-time job after it runs")

	_ = cronAddCmd.MarkFlagRequired("tool")
}

// ---- remove / enable -------------------------------------------------------

var cronRemoveCmd = &cobra.Command{
	Use:   "remove <job-id>",
	Short: "Remove a scheduled job",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		svc, err := scheduler()
		if err != nil {
			return err
		}
		if svc.RemoveJob(args[0]) {
			fmt.Printf("✓ Removed job %s\n", args[0])
		} else {
			fmt.Printf("Job %s not found\n", args[0])
		}
		return nil
	},
}

var cronEnableDisable bool

var cronEnableCmd = &cobra.Command{
	Use:   "enable <job-id>",
	Short: "Enable (or disable) a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		svc, err := scheduler()
		if err != nil {
			return err
		}
		job, ok := svc.EnableJob(args[0], !cronEnableDisable)
		if !ok {
			fmt.Printf("Job %s not found\n", args[0])
			return nil
		}
		action := "enabled"
		if cronEnableDisable {
			action = "disabled"
		}
		fmt.Printf("✓ Job '%s' %s\n", job.Name, action)
		return nil
	},
}

func init() {
	cronEnableCmd.Flags().BoolVar(&cronEnableDisable, "disable", false, "Disable instead of enable")
}

// ---- run / serve -----------------------------------------------------------

var cronRunForce bool

var cronRunCmd = &cobra.Command{
	Use:   "run <job-id>",
	Short: "Run a job now",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		svc, err := scheduler()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		job, ok := svc.RunJob(ctx, args[0], cronRunForce)
		if !ok {
			fmt.Printf("Failed to run job %s (not found or disabled; use --force)\n", args[0])
			return nil
		}
		status := ""
		if job.State.LastStatus != nil {
			status = *job.State.LastStatus
		}
		fmt.Printf("✓ Job executed (%s)\n", status)
		if job.State.LastResult != nil {
			return printResult(*job.State.LastResult, "json")
		}
		return nil
	},
}

func init() {
	cronRunCmd.Flags().BoolVarP(&cronRunForce, "force", "f", false, "Run even if disabled")
}

var cronServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler in the foreground",
	RunE: func(_ *cobra.Command, _ []string) error {
		svc, err := scheduler()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("%s scheduler running (%d jobs). Ctrl+C to stop.\n", logo, len(svc.ListJobs(false)))
		if err := svc.Start(ctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

// ---- helpers ---------------------------------------------------------------

func formatSchedule(s cron.Schedule) string {
	switch s.Kind {
	case "every":
		if s.EveryMs != nil {
			return fmt.Sprintf("every %ds", *s.EveryMs/1000)
		}
	case "cron":
		if s.Expr != nil {
			if s.TZ != nil {
				return *s.Expr + " (" + *s.TZ + ")"
			}
			return *s.Expr
		}
	case "at":
		if s.AtMs != nil {
			return "at " + time.UnixMilli(*s.AtMs).Format("2006-01-02 15:04")
		}
	}
	return s.Kind
}

func truncStr(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
