package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"agriledger/internal/ledger"
)

var paymentCmd = &cobra.Command{
	Use:   "payment",
	Short: "Record and browse payments",
}

var paymentAddCmd = &cobra.Command{
	Use:   "add AMOUNT",
	Short: "Record a payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q", args[0])
		}
		typ, _ := cmd.Flags().GetString("type")
		category, _ := cmd.Flags().GetString("category")
		dateFlag, _ := cmd.Flags().GetString("date")
		images, _ := cmd.Flags().GetStringSlice("image")
		audio, _ := cmd.Flags().GetStringSlice("audio")

		date, err := parseDate(dateFlag)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), "payment add")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.AddPayment(cmd.Context(), ledger.PaymentInput{
			Amount:       amount,
			Type:         typ,
			Category:     category,
			Date:         date,
			ImageSources: images,
			AudioSources: audio,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Recorded %s %.2f %s/%s", p.ID, p.Amount, p.Type, p.Category)
		if n := len(p.Attachments()); n > 0 {
			fmt.Printf(" with %d attachment(s)", n)
		}
		fmt.Println()
		if skipped := len(images) + len(audio) - len(p.Attachments()); skipped > 0 {
			fmt.Printf("Warning: %d attachment(s) could not be saved\n", skipped)
		}
		return nil
	},
}

var paymentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List payments, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		category, _ := cmd.Flags().GetString("category")
		fromFlag, _ := cmd.Flags().GetString("from")
		toFlag, _ := cmd.Flags().GetString("to")

		from, err := parseDate(fromFlag)
		if err != nil {
			return err
		}
		to, err := parseDate(toFlag)
		if err != nil {
			return err
		}
		if !to.IsZero() {
			to = to.AddDate(0, 0, 1)
		}

		a, err := newApp(cmd.Context(), "payment list")
		if err != nil {
			return err
		}
		defer a.Close()

		payments, err := a.ListPayments(cmd.Context(), ledger.PaymentFilter{Type: typ, Category: category, From: from, To: to})
		if err != nil {
			return err
		}
		if len(payments) == 0 {
			fmt.Println("No payments found.")
			return nil
		}
		for _, p := range payments {
			media := ""
			if n := len(p.Attachments()); n > 0 {
				media = fmt.Sprintf("  [%d]", n)
			}
			fmt.Printf("%s  %s  %10.2f  %-10s  %s%s\n",
				p.ID, p.Date.Local().Format("2006-01-02"), p.Amount, p.Type, p.Category, media)
		}
		return nil
	},
}

var paymentEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change fields of a payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch ledger.PaymentPatch
		flags := cmd.Flags()

		if flags.Changed("amount") {
			v, _ := flags.GetFloat64("amount")
			patch.Amount = &v
		}
		if flags.Changed("type") {
			v, _ := flags.GetString("type")
			patch.Type = &v
		}
		if flags.Changed("category") {
			v, _ := flags.GetString("category")
			patch.Category = &v
		}
		if flags.Changed("date") {
			v, _ := flags.GetString("date")
			date, err := parseDate(v)
			if err != nil {
				return err
			}
			if !date.IsZero() {
				patch.Date = &date
			}
		}
		if flags.Changed("image") {
			v, _ := flags.GetStringSlice("image")
			patch.ImageSources = &v
		}
		if flags.Changed("audio") {
			v, _ := flags.GetStringSlice("audio")
			patch.AudioSources = &v
		}

		a, err := newApp(cmd.Context(), "payment edit")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.EditPayment(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %s: %.2f %s/%s\n", p.ID, p.Amount, p.Type, p.Category)
		return nil
	},
}

var paymentRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "payment rm")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeletePayment(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var paymentMediaCmd = &cobra.Command{
	Use:   "media ID",
	Short: "Print the file paths of a payment's attachments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "payment media")
		if err != nil {
			return err
		}
		defer a.Close()

		paths, err := a.PaymentAttachments(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Println("No attachments.")
			return nil
		}
		fmt.Println(strings.Join(paths, "\n"))
		return nil
	},
}

// newTaxonomyCmd builds the add/list/rename/rm commands for one of the
// payment lists ("type" or "category").
func newTaxonomyCmd(noun string, t ledger.Taxonomy) *cobra.Command {
	root := &cobra.Command{
		Use:   noun,
		Short: fmt.Sprintf("Manage payment %s names", noun),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List payment %s names", noun),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), noun+" list")
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.ListTaxonomy(cmd.Context(), t)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add NAME",
		Short: fmt.Sprintf("Add a payment %s", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), noun+" add")
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.AddTaxonomyEntry(cmd.Context(), t, args[0]); err != nil {
				return err
			}
			fmt.Printf("Added %s %q\n", noun, args[0])
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename OLD NEW",
		Short: fmt.Sprintf("Rename a payment %s and update its payments", noun),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), noun+" rename")
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.RenameTaxonomyEntry(cmd.Context(), t, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Renamed %s %q to %q (%d payment(s) updated)\n", noun, args[0], args[1], n)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm NAME",
		Short: fmt.Sprintf("Delete a payment %s", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reassign, _ := cmd.Flags().GetString("reassign")

			a, err := newApp(cmd.Context(), noun+" rm")
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.DeleteTaxonomyEntry(cmd.Context(), t, args[0], reassign)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %s %q", noun, args[0])
			if reassign != "" {
				fmt.Printf(" (%d payment(s) moved to %q)", n, reassign)
			}
			fmt.Println()
			return nil
		},
	}
	rm.Flags().String("reassign", "", fmt.Sprintf("Move payments with this %s to another one", noun))

	root.AddCommand(list, add, rename, rm)
	return root
}

func init() {
	paymentCmd.AddCommand(paymentAddCmd)
	paymentCmd.AddCommand(paymentListCmd)
	paymentCmd.AddCommand(paymentEditCmd)
	paymentCmd.AddCommand(paymentRmCmd)
	paymentCmd.AddCommand(paymentMediaCmd)

	for _, c := range []*cobra.Command{paymentAddCmd, paymentEditCmd} {
		c.Flags().StringP("type", "t", "", "Payment type")
		c.Flags().StringP("category", "c", "", "Payment category")
		c.Flags().StringP("date", "d", "", "Payment date (YYYY-MM-DD, default today)")
		c.Flags().StringSlice("image", nil, "Image file to attach (repeatable)")
		c.Flags().StringSlice("audio", nil, "Audio note to attach (repeatable)")
	}
	paymentEditCmd.Flags().Float64("amount", 0, "New amount")

	paymentListCmd.Flags().StringP("type", "t", "", "Only this payment type")
	paymentListCmd.Flags().StringP("category", "c", "", "Only this category")
	paymentListCmd.Flags().String("from", "", "First day to include (YYYY-MM-DD)")
	paymentListCmd.Flags().String("to", "", "Last day to include (YYYY-MM-DD)")
}
