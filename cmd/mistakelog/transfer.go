package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/mistakelog/internal/core"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import file...",
		Short: "Merge CSV files into the log",
		Long: `Merges the files into the log in the order given. When several rows share a
Timestamp the last one wins, so importing an edited export replaces the rows
it came from. Nothing is written unless every file parses.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]core.ImportFile, len(args))
			for i, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				files[i] = core.ImportFile{Name: filepath.Base(path), Data: data}
			}

			res, err := a.service.Import(cmd.Context(), files)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, f := range res.Files {
				fmt.Fprintf(out, "%s: %d rows\n", f.Name, f.Rows)
			}
			fmt.Fprintf(out, "Imported %d rows into %d existing; %d replaced, %d total\n",
				res.Incoming, res.Existing, res.Replaced, res.Total)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the log to a CSV file",
		Long:  `Writes the whole log to --out, "-" for stdout. Without --out the file is named <EXPORT_PREFIX>_MMDD.csv in the current directory.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			excel, _ := cmd.Flags().GetBool("excel")
			out, _ := cmd.Flags().GetString("out")

			if out == "-" {
				return a.service.Export(cmd.Context(), cmd.OutOrStdout(), excel)
			}
			if out == "" {
				out = a.service.ExportFilename(excel)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create export: %w", err)
			}
			w := bufio.NewWriter(f)
			if err := a.service.Export(cmd.Context(), w, excel); err != nil {
				f.Close()
				os.Remove(out)
				return err
			}
			if err := w.Flush(); err != nil {
				f.Close()
				return fmt.Errorf("write export: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().Bool("excel", false, "start the file with a byte-order mark for spreadsheet tools")
	cmd.Flags().StringP("out", "o", "", "output path, or - for stdout")
	return cmd
}
