package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/budgetforpublic/budget-api/internal/budget"
	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/i18n"
)

// =============================================================================
// ROOT
// =============================================================================

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Format and summarise Indonesian budget data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newFormatCmd(), newGrowthCmd(), newBreakdownCmd(), newSlugCmd())
	return root
}

// =============================================================================
// FORMAT
// =============================================================================

func newFormatCmd() *cobra.Command {
	format := &cobra.Command{
		Use:   "format",
		Short: "Format amounts and percentages",
	}

	var loc string
	amount := &cobra.Command{
		Use:   "amount <rupiah>",
		Short: "Format an amount with PB/T/M/Jt suffixes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), budget.FormatBudgetAmount(v, loc))
			return nil
		},
	}
	amount.Flags().StringVar(&loc, "locale", budget.DefaultLocale, "BCP 47 locale")

	var decimals int
	percent := &cobra.Command{
		Use:   "percent <value>",
		Short: "Format a percentage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), budget.FormatPercentageN(v, decimals))
			return nil
		},
	}
	percent.Flags().IntVar(&decimals, "decimals", 1, "fraction digits")

	format.AddCommand(amount, percent)
	return format
}

// =============================================================================
// GROWTH
// =============================================================================

func newGrowthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "growth <current> <previous>",
		Short: "Year-over-year growth in percent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			previous, err := parseNumber(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), budget.FormatPercentage(budget.CalculateGrowth(current, previous)))
			return nil
		},
	}
}

// =============================================================================
// BREAKDOWN
// =============================================================================

func newBreakdownCmd() *cobra.Command {
	var (
		top      int
		loc      string
		category string
	)
	cmd := &cobra.Command{
		Use:   "breakdown <document.json>",
		Short: "List the spending categories of a budget document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var doc domain.BudgetDocument
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("decoding %s: %w", args[0], err)
			}

			bundle, err := i18n.NewBundle()
			if err != nil {
				return err
			}
			exp := doc.Expenditure
			if exp.Total <= 0 {
				exp.Total = exp.Categories.Sum()
			}
			if category != "" {
				if _, ok := exp.Categories.Get(category); !ok {
					return fmt.Errorf("no category %q in %s", category, args[0])
				}
			}

			records := budget.AggregateCategories(exp, bundle.For(loc))
			if category != "" {
				records = slices.DeleteFunc(records, func(r domain.CategoryRecord) bool { return r.Key != category })
			}
			if top > 0 {
				records = budget.TopCategories(records, top)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d %s: %s\n", doc.Metadata.Type, doc.Metadata.Year, doc.Metadata.Region,
				budget.FormatBudgetAmount(float64(exp.Total), loc))
			for _, r := range records {
				fmt.Fprintf(out, "%-28s %12s %7s  %s\n", r.Label,
					budget.FormatBudgetAmount(float64(r.Amount), loc),
					budget.FormatPercentage(r.Percentage), r.Color)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only this category key")
	cmd.Flags().IntVar(&top, "top", 0, "only the N largest categories (0 keeps document order)")
	cmd.Flags().StringVar(&loc, "locale", budget.DefaultLocale, "BCP 47 locale")
	return cmd
}

// =============================================================================
// SLUG
// =============================================================================

func newSlugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slug <text...>",
		Short: "Turn text into a URL slug",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), budget.Slugify(strings.Join(args, " ")))
			return nil
		},
	}
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}
