package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwell/internal/app"
	"inkwell/internal/config"
	"inkwell/internal/inkwell"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "inkwell: %v\n", err)
		if errors.Is(err, inkwell.ErrUsage) {
			fmt.Fprintln(stderr, rootCmd.UsageString())
		}
		return 1
	}
	return 0
}

// loadConfig returns the config path and the effective config. A missing
// config file yields the defaults.
func loadConfig() (string, *config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults.ConfigPath, defaults.BaseDir)
	if err != nil {
		return "", nil, fmt.Errorf("reading config: %w", err)
	}
	return defaults.ConfigPath, cfg, nil
}

// newApp reads the config and creates an App. The caller must defer app.Close().
func newApp() (*app.App, error) {
	_, cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func sourceAndDestination(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return inkwell.ErrUsage
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:           "inkwell SOURCE DESTINATION",
	Short:         "Incremental hard-link snapshot backups",
	Long:          "Copies SOURCE into a new timestamped snapshot under DESTINATION, sharing\nunchanged files with the previous snapshot through hard links.",
	Args:          sourceAndDestination,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		run, err := a.Backup(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		if run.Reference == "" {
			fmt.Printf("Created %s (full copy)\n", run.FinalPath)
		} else {
			fmt.Printf("Created %s (linked against %s)\n", run.FinalPath, run.Reference)
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return app.WriteConfig(os.Stdout, path, cfg)
	},
}

// snapshots command
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots DESTINATION",
	Short: "List committed snapshots in a destination",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		listing, err := a.ListDestination(args[0])
		if err != nil {
			return err
		}

		if len(listing.Snapshots) == 0 {
			fmt.Println("No snapshots.")
		}
		for _, name := range listing.Snapshots {
			marker := "  "
			if name == listing.Current {
				marker = "* "
			}
			taken := ""
			if t, err := inkwell.SnapshotTime(name); err == nil {
				taken = t.Local().Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%s%-26s  %s\n", marker, name, taken)
		}
		if listing.Current != "" && listing.Current != listing.Latest() {
			fmt.Printf("\ncurrent points at %s, latest is %s\n", listing.Current, listing.Latest())
		}
		for _, name := range listing.Staging {
			fmt.Printf("incomplete: %s\n", name)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history [RUN_ID]",
	Short: "View backup run history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			r, err := a.GetRun(args[0])
			if err != nil {
				return err
			}
			printRun(r)
			return nil
		}

		runs, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No backup runs recorded.")
			return nil
		}

		for _, r := range runs {
			printRun(r)
		}
		return nil
	},
}

func printRun(r *inkwell.RunRecord) {
	duration := ""
	if r.FinishedAt.Valid {
		d := r.FinishedAt.Time.Sub(r.StartedAt)
		duration = d.Truncate(time.Millisecond).String()
	}
	fmt.Printf("#%d  %s  %-9s  %-10s  %s -> %s  %s\n",
		r.ID,
		r.StartedAt.Local().Format("2006-01-02 15:04:05"),
		r.Status,
		duration,
		r.Source,
		r.Destination,
		r.Snapshot,
	)
	if r.Error != "" {
		fmt.Printf("    %s\n", r.Error)
	}
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
}
