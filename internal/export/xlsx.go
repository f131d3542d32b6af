// Package export renders church data into downloadable documents.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ebenavides/ekklesia/internal/model"
)

var memberHeaders = []string{
	"Name", "Phone", "Email", "Birth Date", "Baptized", "Baptism Date", "Church Role",
}

var memberColumnWidths = []float64{30, 18, 30, 14, 10, 14, 24}

// MembersXLSX builds an XLSX workbook listing the membership roll.
func MembersXLSX(churchName string, members []model.Member) ([]byte, error) {
	f := excelize.NewFile()

	sheetName := "Members"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	// Title row spanning the table.
	if err := f.MergeCell(sheetName, "A1", "G1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("merge title cell: %w", err)
	}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s - Membership Roll (%s)", churchName, time.Now().Format("2006-01-02")))

	for col, header := range memberHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("header cell name: %w", err)
		}
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, width := range memberColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("column name: %w", err)
		}
		f.SetColWidth(sheetName, col, col, width)
	}

	for row, m := range members {
		values := []any{
			m.Name,
			m.Phone,
			m.Email,
			formatDate(m.BirthDate),
			yesNo(m.Baptized),
			formatDate(m.BaptismDate),
			deref(m.ChurchRole),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+3)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("data cell name: %w", err)
			}
			f.SetCellValue(sheetName, cell, v)
		}
	}

	// Keep the title and header rows visible while scrolling.
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      2,
		TopLeftCell: "A3",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
