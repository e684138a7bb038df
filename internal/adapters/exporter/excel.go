package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"tutor-chat/internal/domain"
	"tutor-chat/internal/ports"
)

// SheetName — имя листа с лентой диалога.
const SheetName = "Conversation"

// ExcelExporter выгружает ленту диалога в .xlsx: одна строка на запись.
type ExcelExporter struct {
	logger *slog.Logger
}

// NewExcelExporter создает новый экземпляр ExcelExporter.
func NewExcelExporter(logger *slog.Logger) ports.Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelExporter{logger: logger}
}

// Export записывает книгу Excel в w.
func (e *ExcelExporter) Export(w io.Writer, entries []domain.Entry) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Error("failed to close excel file", slog.String("error", err.Error()))
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []string{"Date", "Rôle", "Message", "Exercice", "Terminé"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, entry := range entries {
		row := i + 2
		values := entryRow(entry)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	if err := f.SetColWidth(SheetName, "C", "C", 100); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write excel: %w", err)
	}
	return nil
}

func entryRow(entry domain.Entry) []any {
	switch {
	case entry.Notice != nil:
		n := entry.Notice
		return []any{n.CreatedAt.Format("2006-01-02 15:04:05"), "erreur", n.Text, "", ""}
	case entry.Bubble != nil:
		b := entry.Bubble
		completed := ""
		if b.Completed {
			completed = "oui"
		}
		return []any{b.CreatedAt.Format("2006-01-02 15:04:05"), RoleLabel(b.Role), b.RawTextForReplay, b.ExerciseID, completed}
	}
	return nil
}
