package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"agriledger/internal/app"
	"agriledger/internal/config"
	"agriledger/internal/ledger"
	"agriledger/internal/picker"
)

func main() {
	if err := app.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a LedgerApp. The caller must defer a.Close().
// operation names the CLI command being run (e.g. "payment add").
func newApp(ctx context.Context, operation string) (*app.LedgerApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config (run `agriledger config init` first): %w", err)
	}

	a, err := app.NewLedgerApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// readPassphrase takes the passphrase from AGRILEDGER_PASSPHRASE, or reads
// it from the terminal without echo.
func readPassphrase(prompt string) (string, error) {
	if p, ok := os.LookupEnv("AGRILEDGER_PASSPHRASE"); ok {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; set AGRILEDGER_PASSPHRASE")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseDate accepts YYYY-MM-DD in local time. Empty means now.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

var rootCmd = &cobra.Command{
	Use:          "agriledger",
	Short:        "Farm ledger: payments, workers and attendance",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Data Dir:   %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Cache Dir:  %s\n", cfg.CacheDir)
		fmt.Printf("Share:      %s\n", cfg.Share.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("History:    %s\n", cfg.History.Type)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the key pair used to seal backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "config keys")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return errors.New("passphrases do not match")
		}

		recipient, err := a.SetupEncryption(cmd.Context(), passphrase)
		if err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Printf("Public key: %s\n", recipient)
		fmt.Println(`Set encryption type = "age" in the config to seal new backups.`)
		return nil
	},
}

// init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data directory and default ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "init")
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.DocumentStatus(cmd.Context())
		fmt.Printf("Ledger: %s (%s)\n", a.DocumentPath(), res.Status)
		if res.Err != nil {
			fmt.Printf("Warning: %v\n", res.Err)
		}
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize payments by category",
	RunE: func(cmd *cobra.Command, args []string) error {
		periodFlag, _ := cmd.Flags().GetString("period")
		paymentType, _ := cmd.Flags().GetString("type")

		period, err := ledger.ParsePeriod(periodFlag)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "stats")
		if err != nil {
			return err
		}
		defer a.Close()

		sum, err := a.ExpenseSummary(cmd.Context(), period, paymentType)
		if err != nil {
			return err
		}

		fmt.Printf("%s %s: %s to %s\n", sum.Type, sum.Period,
			sum.Start.Format("2006-01-02"), sum.End.AddDate(0, 0, -1).Format("2006-01-02"))
		if sum.Count == 0 {
			fmt.Println("No payments recorded.")
			return nil
		}
		for _, c := range sum.Categories {
			fmt.Printf("  %-15s %12s  %5.1f%%  (%d)\n", c.Category, c.Total.StringFixed(2), sum.Share(c)*100, c.Count)
		}
		fmt.Printf("  %-15s %12s  (%d)\n", "Total", sum.Total.StringFixed(2), sum.Count)
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or import backups",
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Package the ledger and media into an archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "backup export")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Export(cmd.Context())
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		sealed := ""
		if res.Sealed {
			sealed = " (sealed)"
		}
		fmt.Printf("Exported %s%s: %d media file(s), %s\n", res.Name, sealed, res.MediaCount, humanize.Bytes(uint64(res.Size)))
		return nil
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore from an archive or a legacy JSON backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var p ledger.Picker
		if file != "" {
			p = picker.NewPathPicker(file)
		} else {
			p = picker.NewPromptPicker(os.Stdin, os.Stdout)
		}

		a, err := newApp(cmd.Context(), "backup import")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Import(cmd.Context(), p, func() (string, error) {
			return readPassphrase("Passphrase: ")
		})
		if res != nil {
			printImport(res)
		}
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		return nil
	},
}

func printImport(res *ledger.ImportResult) {
	switch res.Outcome {
	case ledger.OutcomeUnchanged:
		fmt.Println("Import canceled.")
	case ledger.OutcomeReplaced:
		fmt.Printf("Ledger replaced from %s\n", res.Source)
	case ledger.OutcomeMerged:
		fmt.Printf("Merged %s: %d record(s) added\n", res.Source, res.Merge.TotalAdded())
		fmt.Printf("Media: %d written, %d already present, %d failed\n", res.MediaWritten, res.MediaSkipped, res.MediaFailed)
	}
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-18s  %-14s  %-8s  %-8s  %s\n",
				op.ID,
				op.Operation,
				humanize.Time(op.StartedAt),
				op.Status,
				duration,
				strings.TrimSpace(op.Parameters+" "+op.Detail),
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)

	// backup subcommands
	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupImportCmd)
	backupImportCmd.Flags().StringP("file", "f", "", "Backup file to import (prompted when omitted)")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(paymentCmd)
	rootCmd.AddCommand(newTaxonomyCmd("type", ledger.TaxonomyTypes))
	rootCmd.AddCommand(newTaxonomyCmd("category", ledger.TaxonomyCategories))
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(attendanceCmd)
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringP("period", "p", string(ledger.PeriodMonth), "day, month or year")
	statsCmd.Flags().StringP("type", "t", "", "Payment type to summarize (default Expense)")
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
