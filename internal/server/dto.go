package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/xuri/excelize/v2"

	"taskdesk/internal/domain"
	"taskdesk/internal/engine"
	"taskdesk/internal/events"
)

type activityOutput struct {
	Body []events.Event
}

type exportOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

const (
	spreadsheetContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType         = "text/csv; charset=utf-8"
	exportSheet            = "Tasks"
)

var exportHeader = []string{"Id", "Title", "Description", "Status", "Assignee", "Priority", "Due Date", "Category", "Created At"}

func exportRow(t domain.Task) []string {
	status := "Pending"
	if t.IsCompleted {
		status = "Completed"
	}
	assignee := ""
	if t.Assignee != nil {
		assignee = t.Assignee.Name
	}
	due := ""
	if t.DueDate != nil {
		due = t.DueDate.String()
	}
	return []string{
		strconv.FormatInt(t.ID, 10),
		t.Title,
		domain.StringValue(t.Description),
		status,
		assignee,
		t.PriorityInfo().Label,
		due,
		domain.StringValue(t.Category),
		t.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

func writeCSV(tasks []domain.Task) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if err := w.Write(exportRow(t)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func writeSpreadsheet(tasks []domain.Task) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(tasks)+1)
	rows = append(rows, exportHeader)
	for _, t := range tasks {
		rows = append(rows, exportRow(t))
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, err
			}
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "B", "C", 40); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("tasks_%s.%s", now.UTC().Format("20060102_150405"), ext)
}

func registerExports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "export-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/export",
		Summary:     "Download matching tasks as a spreadsheet",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *filterQuery) (*exportOutput, error) {
		tasks, err := e.ListTasks(ctx, input.filter())
		if err != nil {
			return nil, handleError(err)
		}
		data, err := writeSpreadsheet(tasks)
		if err != nil {
			return nil, handleError(err)
		}
		return &exportOutput{
			ContentType:        spreadsheetContentType,
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", exportFilename(e.Clock(), "xlsx")),
			Body:               data,
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "export-tasks-csv",
		Method:      http.MethodGet,
		Path:        "/tasks/export/csv",
		Summary:     "Download matching tasks as CSV",
		Errors:      defaultErrors,
	}, func(ctx context.Context, input *filterQuery) (*exportOutput, error) {
		tasks, err := e.ListTasks(ctx, input.filter())
		if err != nil {
			return nil, handleError(err)
		}
		data, err := writeCSV(tasks)
		if err != nil {
			return nil, handleError(err)
		}
		return &exportOutput{
			ContentType:        csvContentType,
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", exportFilename(e.Clock(), "csv")),
			Body:               data,
		}, nil
	})
}
