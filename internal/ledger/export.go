package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{
	"Source File",
	"Date",
	"Description",
	"Quantity",
	"Unit Price",
	"Total",
	"Discount",
	"Price/lb",
	"Pounds",
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// WriteCSV writes the ledger rows plus a grand-total line as CSV.
func (l *Ledger) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range l.Rows() {
		record := []string{
			row.SourceFile,
			row.Date.Format("2006-01-02"),
			row.Description,
			optional(row.Quantity),
			optional(row.UnitPrice),
			money(row.TotalAmount),
			optional(row.OriginalDiscount),
			optional(row.PricePerPound),
			optional(row.Pounds),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	total := []string{"", "", "GRAND TOTAL", "", "", money(l.GrandTotal()), "", "", ""}
	if err := cw.Write(total); err != nil {
		return fmt.Errorf("writing grand total: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

// ExportXLSX returns the ledger as an XLSX workbook.
func (l *Ledger) ExportXLSX() ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Ledger"

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
	writeOptional := func(col, row int, v *float64) {
		if v != nil {
			write(col, row, *v)
		}
	}

	for i, h := range exportHeaders {
		write(i+1, 1, h)
	}

	rowNum := 2
	for _, row := range l.Rows() {
		write(1, rowNum, row.SourceFile)
		write(2, rowNum, row.Date.Format("2006-01-02"))
		write(3, rowNum, row.Description)
		writeOptional(4, rowNum, row.Quantity)
		writeOptional(5, rowNum, row.UnitPrice)
		write(6, rowNum, row.TotalAmount)
		writeOptional(7, rowNum, row.OriginalDiscount)
		writeOptional(8, rowNum, row.PricePerPound)
		writeOptional(9, rowNum, row.Pounds)
		rowNum++
	}

	write(3, rowNum, "GRAND TOTAL")
	write(6, rowNum, l.GrandTotal())

	_ = f.SetColWidth(sheet, "A", "A", 28) // source file
	_ = f.SetColWidth(sheet, "B", "B", 12) // date
	_ = f.SetColWidth(sheet, "C", "C", 32) // description
	_ = f.SetColWidth(sheet, "D", "I", 11) // numbers

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
