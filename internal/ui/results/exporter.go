package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sadopc/dbnav/internal/adapter"
)

// Export writes the columns and rows to path in the given format ("csv" or
// "json") and returns the number of rows written.
func Export(format, path string, columns []adapter.ColumnMeta, rows [][]string) (int64, error) {
	switch format {
	case "csv":
		if err := ExportCSV(path, columns, rows); err != nil {
			return 0, err
		}
	case "json":
		if err := ExportJSON(path, columns, rows); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("unknown export format %q", format)
	}
	return int64(len(rows)), nil
}

// ExportCSV writes the columns and rows to a CSV file at path.
func ExportCSV(path string, columns []adapter.ColumnMeta, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ExportJSON writes the columns and rows as a JSON array of objects to a
// file at path. Each object maps column names to string values.
func ExportJSON(path string, columns []adapter.ColumnMeta, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	colNames := make([]string, len(columns))
	for i, c := range columns {
		colNames[i] = c.Name
	}

	objects := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]string, len(colNames))
		for j, name := range colNames {
			if j < len(row) {
				obj[name] = row[j]
			} else {
				obj[name] = ""
			}
		}
		objects = append(objects, obj)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(objects)
}
