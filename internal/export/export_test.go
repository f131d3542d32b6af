package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/recurrence"
)

func TestMembersXLSX(t *testing.T) {
	role := model.RoleOrdainedPreacher
	birth := time.Date(1980, 5, 20, 0, 0, 0, 0, time.UTC)
	members := []model.Member{
		{Name: "Juan Pérez", Phone: "555-0101", Email: "juan@example.com", Baptized: true, BirthDate: &birth, ChurchRole: &role},
		{Name: "María López", Baptized: false},
	}

	data, err := MembersXLSX("Iglesia Central", members)
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Members", "A3")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if got != "Juan Pérez" {
		t.Errorf("A3 = %q, want %q", got, "Juan Pérez")
	}

	got, _ = f.GetCellValue("Members", "E3")
	if got != "Yes" {
		t.Errorf("E3 = %q, want %q", got, "Yes")
	}

	got, _ = f.GetCellValue("Members", "G3")
	if got != model.RoleOrdainedPreacher {
		t.Errorf("G3 = %q, want %q", got, model.RoleOrdainedPreacher)
	}
}

func TestMembersXLSXEmpty(t *testing.T) {
	data, err := MembersXLSX("Iglesia Central", nil)
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty workbook")
	}
}

func TestCalendarPDF(t *testing.T) {
	events := []model.Event{
		{Title: "Reunión de Jóvenes", StartsAt: time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)},
	}
	services := []recurrence.Occurrence{
		{Title: "Culto Dominical", Start: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), DurationMinutes: 120},
	}

	data, err := CalendarPDF("Iglesia Central", 2026, time.March, events, services)
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}

	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output does not start with PDF header")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	got := truncate("Estudio Bíblico de los Miércoles por la Noche", 20)
	if len([]rune(got)) > 22 {
		t.Errorf("truncated length = %d runes", len([]rune(got)))
	}
}
