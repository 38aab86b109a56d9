package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/mistakelog/internal/core"
	"github.com/JonMunkholm/mistakelog/internal/schema"
	"github.com/JonMunkholm/mistakelog/internal/web/templates"
)

func newExtractCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "extract [file]",
		Short: "Show the fields found in pasted text without saving",
		Long:  "Reads the question text from file, or stdin when no file is given, and prints the extracted fields as JSON.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.service.Extract(text))
		},
	}
}

func newLogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log [file]",
		Short: "Extract and log one mistake",
		Long: `Reads the question text from file, or stdin when no file is given, and
appends it to the log with the given error type. Error types:
  ` + strings.Join(schema.ErrorTypes, "\n  "),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			errorType, _ := cmd.Flags().GetString("error-type")
			notes, _ := cmd.Flags().GetString("notes")

			rec, err := a.service.Log(cmd.Context(), core.LogRequest{
				Text:      text,
				ErrorType: errorType,
				Notes:     notes,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %s: %s (%s)\n",
				rec.Get(schema.Timestamp), rec.Get(schema.Category), rec.Get(schema.ErrorType))
			return nil
		},
	}
	cmd.Flags().StringP("error-type", "t", "", "error type (required)")
	cmd.Flags().StringP("notes", "n", "", "free-form notes")
	cmd.MarkFlagRequired("error-type")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent mistakes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")

			page, err := a.service.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), page)
			}
			return printHistory(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().IntP("limit", "l", 0, "entries to show (default HISTORY_LIMIT)")
	cmd.Flags().Bool("json", false, "print entries as JSON")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete index...",
		Short: "Delete rows by the index shown in history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			indices := make([]int, len(args))
			for i, arg := range args {
				n, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("%w: row index %q", core.ErrInvalidRequest, arg)
				}
				indices[i] = n
			}

			n, err := a.service.DeleteRows(cmd.Context(), indices)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d of %d requested rows\n", n, len(indices))
			return nil
		},
	}
}

// readInput returns the contents of args[0], or of stdin when no file is named.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHistory(w io.Writer, page core.HistoryPage) error {
	if len(page.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No mistakes logged yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "Index")
	for _, c := range templates.HistoryColumns {
		fmt.Fprint(tw, "\t", c)
	}
	fmt.Fprintln(tw)
	for _, e := range page.Entries {
		fmt.Fprint(tw, e.Index)
		for _, c := range templates.HistoryColumns {
			fmt.Fprint(tw, "\t", oneLine(e.Record.Get(c)))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d shown\n", len(page.Entries), page.Total)
	return err
}

// oneLine keeps multi-line cells from breaking the table.
func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return s
}
