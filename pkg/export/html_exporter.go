package export

import (
	"bytes"
	"fmt"
	"html/template"
)

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, Helvetica, sans-serif; margin: 24px; }
h1 { text-align: center; font-size: 20px; margin-bottom: 4px; }
h2 { text-align: center; font-size: 14px; font-weight: normal; margin-top: 0; }
table { border-collapse: collapse; width: 100%; font-size: 12px; }
th, td { border: 1px solid #444; padding: 4px 6px; }
th { background: #e6e6e6; }
ul.notes { margin-top: 16px; font-size: 12px; }
@media print { body { margin: 0; } }
</style>
</head>
<body>
{{if .Title}}<h1>{{.Title}}</h1>{{end}}
{{if .Subtitle}}<h2>{{.Subtitle}}</h2>{{end}}
<table>
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Cells}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{if .Notes}}<ul class="notes">{{range .Notes}}<li>{{.}}</li>{{end}}</ul>{{end}}
</body>
</html>
`))

// HTMLExporter renders datasets as a printable HTML page.
type HTMLExporter struct{}

// NewHTMLExporter constructs an HTML exporter.
func NewHTMLExporter() *HTMLExporter {
	return &HTMLExporter{}
}

// ContentType is the MIME type of Render's output.
func (e *HTMLExporter) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render executes the print template. Values are escaped by html/template.
func (e *HTMLExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("html requires at least one header")
	}
	cells := make([][]string, len(data.Rows))
	for i, row := range data.Rows {
		cells[i] = make([]string, len(data.Headers))
		for j, h := range data.Headers {
			cells[i][j] = row[h]
		}
	}
	view := struct {
		Dataset
		Cells [][]string
	}{Dataset: data, Cells: cells}

	buf := &bytes.Buffer{}
	if err := printTemplate.Execute(buf, view); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}
