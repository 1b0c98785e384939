// Package export renders stored teams as an Excel workbook for contest staff.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/okian/teamalloc/internal/domain/model"
)

// SheetName is the name of the single worksheet.
const SheetName = "Teams"

// Headers are the column titles in order.
var Headers = []string{"Team", "University", "Member 1", "Member 2", "Member 3", "Student IDs", "Score", "Flagged"}

var colWidths = []float64{28, 28, 24, 24, 24, 30, 10, 10}

// WriteTeams writes one row per team. universities maps IDs to display
// names; unknown IDs are written as-is.
func WriteTeams(w io.Writer, teams []model.StoredTeam, universities map[string]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	flaggedStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("flagged style: %w", err)
	}

	for i, h := range Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return err
	}

	for i := range teams {
		t := &teams[i]
		row := i + 2
		uni := t.UniversityID
		if name, ok := universities[uni]; ok && name != "" {
			uni = name
		}
		values := []any{t.Name, uni, member(t, 0), member(t, 1), member(t, 2), strings.Join(t.Members, ", "), t.Score, flaggedText(t.Flagged)}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, start, &values); err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		if t.Flagged {
			end, _ := excelize.CoordinatesToCellName(len(Headers), row)
			if err := f.SetCellStyle(SheetName, start, end, flaggedStyle); err != nil {
				return err
			}
		}
	}

	for i, width := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return err
		}
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func member(t *model.StoredTeam, i int) string {
	if i < len(t.Names) {
		return t.Names[i]
	}
	if i < len(t.Members) {
		return t.Members[i]
	}
	return ""
}

func flaggedText(flagged bool) string {
	if flagged {
		return "yes"
	}
	return "no"
}
