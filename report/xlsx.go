package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	channelsSheet = "Channels"
	summarySheet  = "Summary"
)

var xlsxHeader = []any{"Channel", "Kind", "Mode", "Pin", "Address", "ID", "Active"}

// XLSX writes the registry as a workbook with a channel sheet and a summary sheet.
func XLSX(w io.Writer, src Source, generated time.Time) error {
	rows := Rows(src)
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", channelsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(channelsSheet, "A1", &xlsxHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(channelsSheet, "A1", "G1", bold); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.Channel, r.Kind, r.Mode, "", "", "", r.Active}
		if r.Pin != nil {
			values[3] = *r.Pin
		}
		if r.Address != nil {
			values[4] = fmt.Sprintf("%#02x", *r.Address)
		}
		if r.ID != 0 {
			values[5] = r.ID
		}
		if err := f.SetSheetRow(channelsSheet, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(channelsSheet, "A", "G", 12); err != nil {
		return err
	}
	summary := [][]any{
		{"Generated", generated.UTC().Format(time.RFC3339)},
		{"Channels", len(rows)},
		{"Active", activeCount(rows)},
	}
	for i, line := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &line); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("could not write workbook: %w", err)
	}
	return nil
}
