package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"agriledger/internal/ledger"
	"agriledger/internal/model"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Manage workers",
}

var workerAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "worker add")
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.AddWorker(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Added worker %q\n", args[0])
		return nil
	},
}

var workerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "worker list")
		if err != nil {
			return err
		}
		defer a.Close()

		workers, err := a.ListWorkers(cmd.Context())
		if err != nil {
			return err
		}
		if len(workers) == 0 {
			fmt.Println("No workers.")
			return nil
		}
		for _, w := range workers {
			fmt.Println(w)
		}
		return nil
	},
}

var workerRenameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename a worker and their attendance records",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "worker rename")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.RenameWorker(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Renamed %q to %q (%d record(s) updated)\n", args[0], args[1], n)
		return nil
	},
}

var workerRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove a worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		purge, _ := cmd.Flags().GetBool("purge")

		a, err := newApp(cmd.Context(), "worker rm")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.DeleteWorker(cmd.Context(), args[0], purge)
		if err != nil {
			return err
		}
		fmt.Printf("Removed worker %q", args[0])
		if purge {
			fmt.Printf(" and %d attendance record(s)", n)
		}
		fmt.Println()
		return nil
	},
}

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Log and review worker attendance",
}

var attendanceLogCmd = &cobra.Command{
	Use:   "log WORKER",
	Short: "Log a day's attendance",
	Long: "Log a day's attendance. --duration takes one of: full, half, ot1, ot2, ot3,\n" +
		"or a label such as \"" + model.DurationFullDay + "\".",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		durationFlag, _ := cmd.Flags().GetString("duration")
		dateFlag, _ := cmd.Flags().GetString("date")

		date, err := parseDate(dateFlag)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "attendance log")
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.LogAttendance(cmd.Context(), ledger.AttendanceInput{
			Worker:   args[0],
			Duration: durationLabel(durationFlag),
			Date:     date,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Logged %s for %s on %s\n", r.Duration, r.WorkerName, r.Date.Local().Format("2006-01-02"))
		return nil
	},
}

// durationLabel expands the short forms accepted by `attendance log`.
func durationLabel(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "":
		return model.DurationFullDay
	case "half":
		return model.DurationHalfDay
	case "ot1":
		return model.DurationLabels[2]
	case "ot2":
		return model.DurationLabels[3]
	case "ot3":
		return model.DurationLabels[4]
	}
	return s
}

var attendanceListCmd = &cobra.Command{
	Use:   "list [WORKER]",
	Short: "List attendance records, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		worker := ""
		if len(args) > 0 {
			worker = args[0]
		}

		a, err := newApp(cmd.Context(), "attendance list")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.ListAttendance(cmd.Context(), worker)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No attendance records.")
			return nil
		}
		for _, r := range records {
			fmt.Printf("%s  %s  %-15s  %s\n", r.ID, r.Date.Local().Format("2006-01-02"), r.WorkerName, r.Duration)
		}
		return nil
	},
}

var attendanceRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete an attendance record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "attendance rm")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteAttendance(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var attendanceClearCmd = &cobra.Command{
	Use:   "clear WORKER",
	Short: "Delete every attendance record of a worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "attendance clear")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.ClearWorkerAttendance(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d record(s) for %q\n", n, args[0])
		return nil
	},
}

var attendanceSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Totals per worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "attendance summary")
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.AttendanceSummary(cmd.Context())
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("No attendance records.")
			return nil
		}
		fmt.Printf("%-15s  %7s  %4s  %4s  %8s  %6s  %s\n", "Worker", "Entries", "Full", "Half", "Overtime", "Hours", "Last")
		for _, s := range summaries {
			fmt.Printf("%-15s  %7d  %4d  %4d  %8d  %6.1f  %s\n",
				s.Worker, s.Entries, s.FullDays, s.HalfDays, s.Overtime, s.Hours, s.LastEntry.Local().Format("2006-01-02"))
		}
		return nil
	},
}

var attendanceReportCmd = &cobra.Command{
	Use:   "report FILE",
	Short: "Write attendance as a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		worker, _ := cmd.Flags().GetString("worker")

		a, err := newApp(cmd.Context(), "attendance report")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("creating report: %w", err)
		}
		if err := a.WriteAttendanceReport(cmd.Context(), f, worker); err != nil {
			f.Close()
			os.Remove(args[0])
			return fmt.Errorf("writing report: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("closing report: %w", err)
		}
		fmt.Printf("Report written to %s\n", args[0])
		return nil
	},
}

func init() {
	workerCmd.AddCommand(workerAddCmd)
	workerCmd.AddCommand(workerListCmd)
	workerCmd.AddCommand(workerRenameCmd)
	workerCmd.AddCommand(workerRmCmd)
	workerRmCmd.Flags().Bool("purge", false, "Also delete the worker's attendance records")

	attendanceCmd.AddCommand(attendanceLogCmd)
	attendanceLogCmd.Flags().StringP("duration", "D", "full", "Duration: full, half, ot1, ot2, ot3 or a label")
	attendanceLogCmd.Flags().StringP("date", "d", "", "Day worked (YYYY-MM-DD, default today)")
	attendanceCmd.AddCommand(attendanceListCmd)
	attendanceCmd.AddCommand(attendanceRmCmd)
	attendanceCmd.AddCommand(attendanceClearCmd)
	attendanceCmd.AddCommand(attendanceSummaryCmd)
	attendanceCmd.AddCommand(attendanceReportCmd)
	attendanceReportCmd.Flags().StringP("worker", "w", "", "Only this worker")
}
