package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/recurrence"
)

const (
	cellWidth    = 39.0
	cellHeight   = 28.0
	gridLeft     = 10.0
	maxCellItems = 4
)

var weekdayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// CalendarPDF renders one month as a landscape A4 grid with the church's
// one-off events and expanded recurring services.
func CalendarPDF(churchName string, year int, month time.Month, events []model.Event, services []recurrence.Occurrence) ([]byte, error) {
	byDay := make(map[int][]string)
	for _, e := range events {
		day := e.StartsAt.UTC().Day()
		byDay[day] = append(byDay[day], fmt.Sprintf("%s %s", e.StartsAt.UTC().Format("15:04"), e.Title))
	}
	for _, s := range services {
		day := s.Start.Day()
		byDay[day] = append(byDay[day], fmt.Sprintf("%s %s", s.Start.Format("15:04"), s.Title))
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("%s - %s %d", churchName, month.String(), year)), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	// Weekday header row.
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetX(gridLeft)
	for _, name := range weekdayNames {
		pdf.CellFormat(cellWidth, 7, name, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	startOffset := int(first.Weekday())

	day := 1
	for week := 0; day <= daysInMonth; week++ {
		top := pdf.GetY()
		for wd := 0; wd < 7; wd++ {
			x := gridLeft + float64(wd)*cellWidth
			inMonth := !(week == 0 && wd < startOffset) && day <= daysInMonth

			pdf.SetXY(x, top)
			pdf.CellFormat(cellWidth, cellHeight, "", "1", 0, "", false, 0, "")

			if !inMonth {
				continue
			}

			pdf.SetXY(x+1, top+1)
			pdf.SetFont("Helvetica", "B", 8)
			pdf.CellFormat(cellWidth-2, 4, fmt.Sprintf("%d", day), "", 0, "L", false, 0, "")

			pdf.SetFont("Helvetica", "", 6.5)
			items := byDay[day]
			for i, item := range items {
				if i >= maxCellItems {
					pdf.SetXY(x+1, top+5+float64(maxCellItems)*4.5)
					pdf.CellFormat(cellWidth-2, 4, fmt.Sprintf("+%d more", len(items)-maxCellItems), "", 0, "L", false, 0, "")
					break
				}
				pdf.SetXY(x+1, top+5+float64(i)*4.5)
				pdf.CellFormat(cellWidth-2, 4, tr(truncate(item, 32)), "", 0, "L", false, 0, "")
			}

			day++
		}
		pdf.SetY(top + cellHeight)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render calendar pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "..."
}
