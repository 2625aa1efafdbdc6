// Package preview renders bounded document previews, locally from downloaded
// bytes or through the server-side renderer.
package preview

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"github.com/fieldtrace/fieldtrace/internal/models"
	"github.com/fieldtrace/fieldtrace/internal/service"
)

const (
	maxDownloadBytes = 3 << 20 // 3 MB
	maxRows          = 60
	maxCols          = 20
)

// LocalBuilder renders previews on-device from downloaded bytes. Only
// tabular kinds are parseable locally; images and PDFs pass through as URL
// previews, everything else needs the remote renderer.
type LocalBuilder struct {
	client     *http.Client
	scratchDir string
}

func NewLocalBuilder() *LocalBuilder {
	return &LocalBuilder{
		client:     &http.Client{Timeout: 30 * time.Second},
		scratchDir: os.TempDir(),
	}
}

// Build renders a preview for the attachment.
func (b *LocalBuilder) Build(ctx context.Context, att *models.AttachmentMeta) (*models.PreviewResult, error) {
	switch att.Kind {
	case models.AttachmentImage, models.AttachmentPDF:
		return &models.PreviewResult{
			Mode:  models.PreviewURL,
			URL:   att.URL,
			Title: att.Name,
		}, nil
	case models.AttachmentCSV, models.AttachmentExcel:
		return b.buildTable(ctx, att)
	default:
		return nil, service.PreviewUnavailable(
			fmt.Sprintf("no local renderer for %s documents", att.Kind))
	}
}

func (b *LocalBuilder) buildTable(ctx context.Context, att *models.AttachmentMeta) (*models.PreviewResult, error) {
	path, err := b.download(ctx, att.URL)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	var table sheetTable
	if att.Kind == models.AttachmentCSV {
		table, err = parseCSV(path)
	} else {
		table, err = parseExcel(path)
	}
	if err != nil {
		return nil, service.PreviewUnavailable("could not parse document")
	}

	html, err := renderTable(att.Name, table)
	if err != nil {
		return nil, service.Internal("preview render failed")
	}

	return &models.PreviewResult{
		Mode:  models.PreviewHTML,
		HTML:  html,
		Title: att.Name,
	}, nil
}

// download fetches the document into scratch storage, enforcing the size
// cap. A file of exactly the cap is accepted; one byte more is rejected.
func (b *LocalBuilder) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", service.PreviewUnavailable("bad attachment URL")
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", service.NetworkFailure("attachment download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", service.PreviewUnavailable("attachment not fetchable")
	}
	if resp.ContentLength > maxDownloadBytes {
		return "", service.ResourceTooLarge("document exceeds the 3 MB preview cap")
	}

	f, err := os.CreateTemp(b.scratchDir, "preview-*")
	if err != nil {
		return "", service.Internal("scratch storage unavailable")
	}

	n, err := io.Copy(f, io.LimitReader(resp.Body, maxDownloadBytes+1))
	cerr := f.Close()
	if err != nil || cerr != nil {
		os.Remove(f.Name())
		return "", service.NetworkFailure("attachment download failed")
	}
	if n > maxDownloadBytes {
		os.Remove(f.Name())
		return "", service.ResourceTooLarge("document exceeds the 3 MB preview cap")
	}
	return f.Name(), nil
}

// sheetTable is a parsed, bounded view of a tabular document. The first row
// becomes headers.
type sheetTable struct {
	Headers   []string
	Rows      [][]string
	Truncated bool
}

func parseCSV(path string) (sheetTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return sheetTable{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var table sheetTable
	first := true
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sheetTable{}, err
		}
		if first {
			table.Headers = capCols(record)
			first = false
			continue
		}
		if len(table.Rows) == maxRows {
			table.Truncated = true
			break
		}
		table.Rows = append(table.Rows, capCols(record))
	}
	return table, nil
}

func parseExcel(path string) (sheetTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return sheetTable{}, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return sheetTable{}, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return sheetTable{}, err
	}

	var table sheetTable
	for i, record := range rows {
		if i == 0 {
			table.Headers = capCols(record)
			continue
		}
		if len(table.Rows) == maxRows {
			table.Truncated = true
			break
		}
		table.Rows = append(table.Rows, capCols(record))
	}
	return table, nil
}

func capCols(record []string) []string {
	if len(record) > maxCols {
		return record[:maxCols]
	}
	return record
}

// The render target may be a constrained embedded view, so the fragment is
// self-contained: inline styles, no external stylesheet. All cell content is
// escaped by html/template.
var tableTemplate = template.Must(template.New("table").Parse(strings.TrimSpace(`
<div style="font-family:sans-serif;font-size:13px;overflow-x:auto">
<h3 style="margin:4px 0">{{.Title}}</h3>
<table style="border-collapse:collapse;width:100%">
<thead><tr>{{range .Table.Headers}}<th style="border:1px solid #ccc;padding:4px;text-align:left;background:#f2f2f2">{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Table.Rows}}<tr>{{range .}}<td style="border:1px solid #ccc;padding:4px">{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{if .Table.Truncated}}<p style="color:#888;margin:4px 0">Preview truncated to the first {{.MaxRows}} rows.</p>{{end}}
</div>
`)))

func renderTable(title string, table sheetTable) (string, error) {
	var sb strings.Builder
	err := tableTemplate.Execute(&sb, struct {
		Title   string
		Table   sheetTable
		MaxRows int
	}{Title: title, Table: table, MaxRows: maxRows})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
