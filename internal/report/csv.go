package report

import (
	"encoding/csv"
	"os"
)

// writeCSV writes a table with a header row.
func writeCSV(path string, t table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(t.Headers); err != nil {
		return err
	}
	if err := writer.WriteAll(t.stringRows()); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}
