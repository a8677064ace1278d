package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prodline/internal/service"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the production report",
}

var exportPDFCmd = &cobra.Command{
	Use:   "pdf",
	Short: "Export the A4 PDF report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := service.NewReportService(localSource{repo: snapshots}, &cfg.Report, logger.Named("report"))
		return writeExport(cmd, svc.ExportPDF)
	},
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx",
	Short: "Export the partials table as a spreadsheet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := service.NewReportService(localSource{repo: snapshots}, &cfg.Report, logger.Named("report"))
		return writeExport(cmd, svc.ExportXLSX)
	},
}

func writeExport(cmd *cobra.Command, render func(context.Context) (*bytes.Buffer, string, error)) error {
	buf, filename, err := render(cmd.Context())
	if err != nil {
		return err
	}

	out := exportOut
	if out == "" {
		out = filename
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", out, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", out, buf.Len())
	return nil
}
