// Package report dumps the contents of partitions after a run.
//
// The text format reproduces the classic console dump: a blank line, the
// table name, a blank line, one tab-joined line per row and a trailing blank
// line. NULL values print as "None".
package report

import (
	"bufio"
	"context"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/henil-shah-98/incubyte-test/internal/partition"
	"github.com/henil-shah-98/incubyte-test/internal/records"
	"github.com/henil-shah-98/incubyte-test/internal/storage"
)

type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
	FormatNone Format = "none"
)

// ParseFormat maps a config value to a Format. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatHTML, FormatNone:
		return f, nil
	default:
		return "", fmt.Errorf("report: unknown format %q (text|html|none)", s)
	}
}

// NullText is how a NULL column value is rendered.
const NullText = "None"

type Options struct {
	Format Format

	// TablePrefix is used to print table names. Empty means
	// partition.DefaultTablePrefix.
	TablePrefix string
}

// Write reads every listed partition from src and renders it to w in order.
// FormatNone writes nothing and does not read src.
func Write(ctx context.Context, w io.Writer, src storage.PartitionReader, partitions []string, opt Options) error {
	if opt.Format == FormatNone {
		return nil
	}
	prefix := opt.TablePrefix
	if prefix == "" {
		prefix = partition.DefaultTablePrefix
	}

	tables := make([]tableData, 0, len(partitions))
	for _, key := range partitions {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := src.ReadPartition(ctx, key)
		if err != nil {
			return fmt.Errorf("report: read %s: %w", key, err)
		}
		name, err := partition.TableName(prefix, key)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		tables = append(tables, tableData{Key: key, Name: name, Rows: formatRows(rows)})
	}

	switch opt.Format {
	case FormatText, "":
		return writeText(w, tables)
	case FormatHTML:
		return writeHTML(w, tables)
	default:
		return fmt.Errorf("report: unknown format %q", opt.Format)
	}
}

type tableData struct {
	Key  string
	Name string
	Rows [][]string
}

func formatRows(rows [][]any) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = FormatValue(v)
		}
		out[i] = cells
	}
	return out
}

// FormatValue renders one column value.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return NullText
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func writeText(w io.Writer, tables []tableData) error {
	bw := bufio.NewWriter(w)
	for _, t := range tables {
		fmt.Fprintf(bw, "\n%s\n\n", t.Name)
		for _, row := range t.Rows {
			bw.WriteString(strings.Join(row, "\t"))
			bw.WriteByte('\n')
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

var htmlTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Customer partitions</title></head>
<body>
{{- range .Tables}}
<section class="partition" data-partition="{{.Key}}">
<h2>{{.Name}}</h2>
<table>
<thead><tr>{{range $.Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
</section>
{{- end}}
</body>
</html>
`))

func writeHTML(w io.Writer, tables []tableData) error {
	return htmlTmpl.Execute(w, struct {
		Columns []string
		Tables  []tableData
	}{
		Columns: records.FieldNames(),
		Tables:  tables,
	})
}
