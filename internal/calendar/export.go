package calendar

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/captainjaypee01/cloud-haven-api-sub000/internal/domain"

	"github.com/xuri/excelize/v2"
)

// ExportGridXLSX 月历导出为 Excel：一行一个单元（按房型分组），一列一天
// 单元格：B + 来源首字母（B-O 线上 / B-W 到店）表示已订，X 表示封锁，空白表示可订
func ExportGridXLSX(grid *domain.CalendarGrid) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := fmt.Sprintf("%04d-%02d", grid.Year, grid.Month)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	bookedStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create booked style: %w", err)
	}
	blockedStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#BFBFBF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create blocked style: %w", err)
	}

	// 表头：Room Type | Unit | Status | 1..N
	header := []any{"Room Type", "Unit", "Status"}
	for d := 1; d <= grid.DaysInMonth; d++ {
		header = append(header, d)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return nil, fmt.Errorf("failed to convert column number: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "A", 20); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "D", lastCol, 5); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	row := 2
	for _, rt := range grid.RoomTypes {
		for _, unit := range rt.Units {
			values := []any{rt.Name, unit.UnitNumber, string(unit.Status)}
			for _, cell := range unit.Cells {
				values = append(values, cellText(cell))
			}
			start, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(sheetName, start, &values); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
			for i, cell := range unit.Cells {
				style := 0
				switch cell.Status {
				case domain.CellBooked:
					style = bookedStyle
				case domain.CellBlocked:
					style = blockedStyle
				default:
					continue
				}
				name, _ := excelize.CoordinatesToCellName(i+4, row)
				if err := f.SetCellStyle(sheetName, name, name, style); err != nil {
					return nil, fmt.Errorf("failed to set cell style: %w", err)
				}
			}
			row++
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func cellText(cell domain.CalendarCell) string {
	switch cell.Status {
	case domain.CellBooked:
		if cell.Source == "" {
			return "B"
		}
		return "B-" + strings.ToUpper(string(cell.Source)[:1])
	case domain.CellBlocked:
		return "X"
	}
	return ""
}
