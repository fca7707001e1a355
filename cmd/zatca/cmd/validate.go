package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DoubleH10/zatca-mcp/internal/validator"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate invoice XML against ZATCA business rules",
	Long: `Validate one or more UBL 2.1 XML invoices.

Checks performed:
  - Required fields (invoice number, dates, parties, totals)
  - Seller and buyer VAT number format
  - Invoice type and subtype codes
  - Line and total math, including VAT amounts
  - Credit/debit note references

Examples:
  zatca validate invoice.xml
  zatca validate *.xml --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output results as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	type fileResult struct {
		File      string   `json:"file"`
		IsValid   bool     `json:"is_valid"`
		Errors    []string `json:"errors"`
		Warnings  []string `json:"warnings"`
		ChecksRun int      `json:"checks_run"`
	}

	results := make([]fileResult, 0, len(args))
	allValid := true

	for _, file := range args {
		data, err := os.ReadFile(file)
		if err != nil {
			results = append(results, fileResult{
				File:   file,
				Errors: []string{fmt.Sprintf("failed to read file: %v", err)},
			})
			allValid = false
			continue
		}

		r := validator.Validate(string(data))
		results = append(results, fileResult{
			File:      file,
			IsValid:   r.IsValid,
			Errors:    r.Errors,
			Warnings:  r.Warnings,
			ChecksRun: r.ChecksRun,
		})
		if !r.IsValid {
			allValid = false
		}
	}

	if validateJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.IsValid {
				fmt.Printf("✓ %s: VALID (%d checks)\n", r.File, r.ChecksRun)
			} else {
				fmt.Printf("✗ %s: INVALID\n", r.File)
				for _, e := range r.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}
			for _, w := range r.Warnings {
				fmt.Printf("  ⚠ %s\n", w)
			}
		}
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}
	return nil
}
