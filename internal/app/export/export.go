package export

import (
	"fmt"
	"time"

	"github.com/tealeg/xlsx"

	"transcribe4all/internal/app/model"
)

const SheetName = "Runs"

var header = []string{
	"ID", "Name", "Engine", "Started At", "Duration (s)", "Results", "Words",
	"Transcription", "Output", "Output URL", "Error Message",
}

// ToExcel writes runs to a single-sheet workbook at outputFilePath.
func ToExcel(runs []model.Run, outputFilePath string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(SheetName)
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, title := range header {
		headerRow.AddCell().Value = title
	}

	for _, r := range runs {
		row := sheet.AddRow()
		row.AddCell().SetInt64(r.ID)
		row.AddCell().Value = r.Name
		row.AddCell().Value = r.Engine
		row.AddCell().Value = r.StartedAt.Format(time.RFC3339)
		row.AddCell().Value = fmt.Sprintf("%.2f", r.Duration().Seconds())
		row.AddCell().SetInt(r.ResultCount)
		row.AddCell().SetInt(r.WordCount)
		row.AddCell().Value = r.Text
		row.AddCell().Value = r.OutputPath
		row.AddCell().Value = r.OutputURL
		row.AddCell().Value = r.ErrorMessage
	}

	if err := file.Save(outputFilePath); err != nil {
		return fmt.Errorf("save %s: %w", outputFilePath, err)
	}
	return nil
}
