package report

import (
	"archive/zip"
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
)

const (
	KeyFilename    = "videoanalytics_key.csv"
	ValuesFilename = "videoanalytics_values.csv"
)

// File is a named report file, written on demand.
type File struct {
	Name  string
	Write func(w io.Writer) error
}

// CSVFile returns a File streaming rows as CSV.
func CSVFile(name string, rows *Rows) File {
	return File{Name: name, Write: func(w io.Writer) error { return WriteCSV(w, rows) }}
}

// WriteCSV drains rows into w.
func WriteCSV(w io.Writer, rows *Rows) error {
	cw := csv.NewWriter(w)
	for {
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// WriteZip writes an archive holding files, in order.
func WriteZip(w io.Writer, files ...File) error {
	zw := zip.NewWriter(w)
	for _, f := range files {
		fw, err := zw.Create(f.Name)
		if err != nil {
			return errors.Wrapf(err, "creating %s", f.Name)
		}
		if err := f.Write(fw); err != nil {
			return errors.Wrapf(err, "writing %s", f.Name)
		}
	}
	return errors.Wrap(zw.Close(), "closing zip")
}
