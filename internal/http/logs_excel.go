package httpapi

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"chai-api/internal/service"
)

// LogExportHeader 导出表头
var LogExportHeader = []string{"Timestamp", "Category", "Parameters"}

const logSheet = "Logs"

// GenerateLogExport 审计日志导出为 Excel
func GenerateLogExport(entries []service.LogEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(logSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	// 删除默认的 Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]any, 0, len(LogExportHeader))
	for _, h := range LogExportHeader {
		header = append(header, h)
	}
	if err := f.SetSheetRow(logSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetCellStyle(logSheet, "A1", "C1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(logSheet, "A", "A", 25); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(logSheet, "B", "B", 20); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(logSheet, "C", "C", 50); err != nil {
		return nil, err
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{e.Timestamp.UTC().Format("2006-01-02 15:04:05"), e.Category, string(e.Parameters)}
		if err := f.SetSheetRow(logSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
