package cli

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/labelstream/internal/domain/record"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) newImportCmd() *cobra.Command {
	var column string
	cmd := &cobra.Command{
		Use:   "import <project> <file>",
		Short: "Replace a project's records with texts from a file",
		Long: `Replace a project's records with texts read from a file ("-" for stdin).
With --column the file is CSV with a header row and texts come from that column;
otherwise every non-blank line is one text. All imported records are unverified.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(cmd, args[1])
			if err != nil {
				return err
			}
			defer in.Close()

			var texts []string
			if column != "" {
				texts, err = readColumn(in, column)
			} else {
				texts, err = readLines(in)
			}
			if err != nil {
				return err
			}

			n, err := a.store.ImportRecords(cmd.Context(), args[0], texts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"ok": true, "imported": n})
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "CSV column holding the texts")
	return cmd
}

func (a *app) newPageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "page <project> <index>",
		Short: "Show the record at index (clamped into range)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			rec, err := a.store.GetPage(cmd.Context(), args[0], index)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func (a *app) newTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <project> <index> [label...]",
		Short: "Set the labels of a record; no labels marks it unverified",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			rec, err := a.store.SetLabels(cmd.Context(), args[0], index, args[2:], time.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func (a *app) newExportCmd() *cobra.Command {
	var (
		verified bool
		format   string
	)
	cmd := &cobra.Command{
		Use:   "export <project>",
		Short: "Export records as csv, json or yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := record.ExportAll
			if verified {
				filter = record.ExportVerified
			}
			rows, err := a.store.ExportRows(cmd.Context(), args[0], filter)
			if err != nil {
				return err
			}
			return writeRows(cmd.OutOrStdout(), format, rows)
		},
	}
	cmd.Flags().BoolVar(&verified, "verified", false, "Only export verified records")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv, json or yaml")
	return cmd
}

func (a *app) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <project>",
		Short: "Recompute the verified counter and repair it if it drifted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			check, err := a.store.VerifyProgress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), check)
		},
	}
}

func parseIndex(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: %w", s, err)
	}
	return index, nil
}

func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func readLines(r io.Reader) ([]string, error) {
	var texts []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		texts = append(texts, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return texts, nil
}

func readColumn(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := -1
	for i, name := range header {
		if strings.TrimSpace(name) == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found in %v", column, header)
	}

	var texts []string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if idx >= len(row) {
			return nil, fmt.Errorf("row %d has no column %q", len(texts)+1, column)
		}
		texts = append(texts, row[idx])
	}
	return texts, nil
}

func writeRows(w io.Writer, format string, rows []record.ExportRow) error {
	switch format {
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"text", "verifiedAt", "label"}); err != nil {
			return err
		}
		for _, row := range rows {
			if err := cw.Write([]string{row.Text, row.VerifiedAt, row.Labels}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case "json":
		return printJSON(w, rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}
