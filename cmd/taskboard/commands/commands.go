package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kingrea/taskboard/internal/board"
	"github.com/kingrea/taskboard/internal/config"
	"github.com/kingrea/taskboard/internal/kanban"
	"github.com/kingrea/taskboard/internal/timer"
	"github.com/kingrea/taskboard/internal/tui"
)

// NewRootCommand builds the taskboard command tree. Without a subcommand it
// opens the terminal UI.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "Single-user kanban board",
		Long:          "taskboard keeps a three-column kanban board per project, with undo/redo, time tracking and an activity log.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withRuntime(func(cmd *cobra.Command, _ []string, rt *runtime) error {
			app := tui.NewApp(cmd.Context(), rt.service,
				tui.WithActivity(rt.activity),
				tui.WithExportDir(rt.cfg.ExportDir()),
				tui.WithLogger(rt.logger.WithComponent("tui")),
			)
			rt.logger.Infow("Session opened", "project", rt.cfg.ProjectDir)
			return tui.Run(cmd.Context(), app)
		}),
	}
	rootCmd.PersistentFlags().StringP("dir", "C", "", "Project directory (defaults to the working directory)")

	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewAddCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewEditCommand())
	rootCmd.AddCommand(NewRemoveCommand())
	rootCmd.AddCommand(NewMoveCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewImportCommand())
	rootCmd.AddCommand(NewLogCommand())
	rootCmd.AddCommand(NewStatsCommand())
	rootCmd.AddCommand(NewTrackCommand())
	rootCmd.AddCommand(NewVersionCommand())
	return rootCmd
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .taskboard directory and default config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(cmd)
			if err != nil {
				return err
			}
			if err := config.InitDir(dir); err != nil {
				return err
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", cfg.DataDir)
			return nil
		},
	}
}

func addTaskFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("description", "d", "", "Task description")
	cmd.Flags().StringP("assignee", "a", "", "Person responsible for the task")
	cmd.Flags().StringP("priority", "p", string(board.PriorityMedium), "Priority (low, medium, high)")
	cmd.Flags().StringSliceP("label", "l", nil, "Label to attach (Bug, Feature, Documentation, Enhancement, Urgent)")
	cmd.Flags().String("due", "", "Due date (YYYY-MM-DD, empty clears)")
	cmd.Flags().String("recurring", "", "Recurrence pattern (daily, weekly, monthly, none)")
}

// applyTaskFlags copies the flags the user set onto task.
func applyTaskFlags(cmd *cobra.Command, task *board.Task, now time.Time) error {
	flags := cmd.Flags()
	if flags.Changed("description") {
		task.Description, _ = flags.GetString("description")
	}
	if flags.Changed("assignee") {
		task.Assignee, _ = flags.GetString("assignee")
	}
	if flags.Changed("priority") || task.Priority == "" {
		p, _ := flags.GetString("priority")
		task.Priority = board.Priority(strings.ToLower(strings.TrimSpace(p)))
	}
	if flags.Changed("label") {
		labels, _ := flags.GetStringSlice("label")
		task.Labels = make([]string, 0, len(labels))
		for _, label := range labels {
			if canonical, ok := canonicalLabel(label); ok {
				task.Labels = append(task.Labels, canonical)
				continue
			}
			return fmt.Errorf("unknown label %q", label)
		}
	}
	if flags.Changed("due") {
		raw, _ := flags.GetString("due")
		task.DueDate = nil
		if raw = strings.TrimSpace(raw); raw != "" {
			due, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return fmt.Errorf("invalid due date %q: want YYYY-MM-DD", raw)
			}
			task.DueDate = &due
		}
	}
	if flags.Changed("recurring") {
		raw, _ := flags.GetString("recurring")
		raw = strings.ToLower(strings.TrimSpace(raw))
		task.IsRecurring = raw != "" && raw != "none"
		task.RecurrencePattern = board.RecurrencePattern(raw)
		*task = board.ScheduleRecurrence(*task, now)
	}
	return nil
}

func canonicalLabel(label string) (string, bool) {
	for _, known := range board.AvailableLabels {
		if strings.EqualFold(known, strings.TrimSpace(label)) {
			return known, true
		}
	}
	return "", false
}

// NewAddCommand creates the add command
func NewAddCommand() *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add a task to the To Do column",
		Args:  cobra.MinimumNArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			task := board.NewTask(strings.Join(args, " "))
			if err := applyTaskFlags(cmd, &task, time.Now()); err != nil {
				return err
			}
			created, err := rt.service.Create(cmd.Context(), task)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q\n", created.ID, created.Title)
			return nil
		}),
	}
	addTaskFlags(addCmd)
	return addCmd
}

// NewEditCommand creates the edit command
func NewEditCommand() *cobra.Command {
	editCmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of an existing task",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			task, _, ok := rt.service.Board().Find(args[0])
			if !ok {
				return fmt.Errorf("task %s not found", args[0])
			}
			if cmd.Flags().Changed("title") {
				title, _ := cmd.Flags().GetString("title")
				if strings.TrimSpace(title) == "" {
					return kanban.ErrEmptyTitle
				}
				task.Title = strings.TrimSpace(title)
			}
			if err := applyTaskFlags(cmd, &task, time.Now()); err != nil {
				return err
			}
			if err := rt.service.Edit(cmd.Context(), task.ID, task); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %q\n", task.ID, task.Title)
			return nil
		}),
	}
	editCmd.Flags().StringP("title", "t", "", "New title")
	addTaskFlags(editCmd)
	return editCmd
}

// NewRemoveCommand creates the rm command
func NewRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			if _, _, ok := rt.service.Board().Find(args[0]); !ok {
				return fmt.Errorf("task %s not found", args[0])
			}
			if err := rt.service.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		}),
	}
}

// NewMoveCommand creates the move command
func NewMoveCommand() *cobra.Command {
	moveCmd := &cobra.Command{
		Use:   "move ID COLUMN",
		Short: "Move a task to a column (todo, inProgress, done)",
		Args:  cobra.ExactArgs(2),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			_, from, ok := rt.service.Board().Find(args[0])
			if !ok {
				return fmt.Errorf("task %s not found", args[0])
			}
			to, err := parseColumn(args[1])
			if err != nil {
				return err
			}
			index, _ := cmd.Flags().GetInt("index")
			if err := rt.service.MoveTask(cmd.Context(), from.ColumnID, from.Index, to, index); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", args[0], to.Title())
			return nil
		}),
	}
	moveCmd.Flags().IntP("index", "i", 0, "Position inside the destination column")
	return moveCmd
}

func parseColumn(raw string) (board.ColumnID, error) {
	normalized := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(raw))
	for _, id := range board.ColumnIDs {
		if strings.ToLower(string(id)) == normalized || strings.ToLower(strings.ReplaceAll(id.Title(), " ", "")) == normalized {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown column %q", raw)
}

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Print the board",
		Args:    cobra.NoArgs,
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			b := rt.service.Board()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				data, err := kanban.EncodeBoard(b)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return printBoard(cmd.OutOrStdout(), b)
		}),
	}
	listCmd.Flags().Bool("json", false, "Print the board as JSON")
	return listCmd
}

func printBoard(out io.Writer, b board.Board) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, col := range b {
		fmt.Fprintf(w, "%s (%d)\n", strings.ToUpper(col.Title), len(col.Tasks))
		for _, task := range col.Tasks {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
				task.ID, task.Priority, task.Title, strings.Join(task.Labels, ","), timer.Format(task.TimeSpent))
		}
	}
	return w.Flush()
}

// NewExportCommand creates the export command
func NewExportCommand() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the board to kanban-board-YYYY-MM-DD.json",
		Args:  cobra.NoArgs,
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			dir, _ := cmd.Flags().GetString("out")
			if dir == "" {
				dir = rt.cfg.ExportDir()
			}
			path, err := rt.service.Export(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		}),
	}
	exportCmd.Flags().StringP("out", "o", "", "Directory to write the export to")
	return exportCmd
}

// NewImportCommand creates the import command
func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the board with an exported file (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			var err error
			if args[0] == "-" {
				err = rt.service.Import(cmd.Context(), cmd.InOrStdin())
			} else {
				err = rt.service.ImportFile(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks\n", rt.service.Board().TaskCount())
			return nil
		}),
	}
}

// NewLogCommand creates the log command
func NewLogCommand() *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Show the activity log, most recent first",
		Args:  cobra.NoArgs,
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			entries, err := rt.activity.List(cmd.Context())
			if err != nil {
				return err
			}
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, entry := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					entry.Timestamp.Local().Format(time.DateTime), entry.Action, entry.TaskID, entry.Details)
			}
			return w.Flush()
		}),
	}
	logCmd.Flags().IntP("limit", "n", 0, "Show at most N entries")
	logCmd.Flags().Bool("json", false, "Print entries as JSON")
	return logCmd
}

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show task counts and tracked hours per column",
		Args:  cobra.NoArgs,
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			stats := kanban.Analytics(rt.service.Board())
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COLUMN\tTASKS\tHOURS")
			for _, stat := range stats {
				fmt.Fprintf(w, "%s\t%d\t%.2f\n", stat.Name, stat.Tasks, stat.TimeSpentHours)
			}
			return w.Flush()
		}),
	}
	statsCmd.Flags().Bool("json", false, "Print statistics as JSON")
	return statsCmd
}

// NewTrackCommand creates the track command
func NewTrackCommand() *cobra.Command {
	trackCmd := &cobra.Command{
		Use:   "track ID",
		Short: "Time a task until interrupted (ctrl+c)",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			task, _, ok := rt.service.Board().Find(args[0])
			if !ok {
				return fmt.Errorf("task %s not found", args[0])
			}
			ctx := cmd.Context()
			if d, _ := cmd.Flags().GetDuration("for"); d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tracking %q, press ctrl+c to stop\n", task.Title)
			var tracker timer.Tracker
			elapsed, err := timer.Run(ctx, &tracker, time.Second, time.Now, func(seconds int) error {
				fmt.Fprintf(out, "\r%s", timer.Format(seconds))
				return rt.service.TrackTime(context.WithoutCancel(ctx), task.ID, seconds)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\rTracked %s on %q\n", timer.Format(elapsed), task.Title)
			return nil
		}),
	}
	trackCmd.Flags().Duration("for", 0, "Stop automatically after this long")
	return trackCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print taskboard version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskboard %s\n", Version)
		},
	}
}

// Version is overridden at build time with -ldflags.
var Version = "dev"
