package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// Reader parses the wide per-patient extract table. One row per patient, a
// patient_id column, and any number of *_date columns holding ISO dates or
// numeric day offsets from 1970-01-01.
type Reader struct {
	logger *logrus.Logger
}

// NewReader creates a dataset reader.
func NewReader(logger *logrus.Logger) *Reader {
	return &Reader{logger: logger}
}

// ReadFile reads and parses the table at the given path.
func (r *Reader) ReadFile(path string) (*domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input dataset: %w", err)
	}
	defer f.Close()

	ds, err := r.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ds, nil
}

// Read parses the table from a reader. A missing patient_id column or a table
// with no *_date columns is a structural error and fails the run immediately;
// empty cells are simply absent values.
func (r *Reader) Read(src io.Reader) (*domain.Dataset, error) {
	cr := csv.NewReader(src)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	patientCol := -1
	dateCols := make(map[int]string)
	var dateColumns []string
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case name == "patient_id":
			patientCol = i
		case strings.HasSuffix(name, "_date"):
			dateCols[i] = name
			dateColumns = append(dateColumns, name)
		}
	}

	if patientCol < 0 {
		return nil, domain.ErrMissingPatientID
	}
	if len(dateCols) == 0 {
		return nil, domain.ErrNoEventColumns
	}

	seen := make(map[string]int)
	var rows []domain.PatientRow
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		patientID := strings.TrimSpace(record[patientCol])
		if patientID == "" {
			r.logger.WithField("line", line).Warn("Skipping row with empty patient_id")
			continue
		}

		values := make(map[string]string)
		for i, col := range dateCols {
			if i >= len(record) {
				continue
			}
			v := strings.TrimSpace(record[i])
			if v != "" {
				values[col] = v
			}
		}

		row := domain.PatientRow{PatientID: patientID, Values: values}
		if prev, ok := seen[patientID]; ok {
			// Last row wins; the extract is one row per patient by contract.
			r.logger.WithFields(logrus.Fields{
				"patient_id": patientID,
				"line":       line,
			}).Warn("Duplicate patient_id, keeping the later row")
			rows[prev] = row
			continue
		}
		seen[patientID] = len(rows)
		rows = append(rows, row)
	}

	r.logger.WithFields(logrus.Fields{
		"patients":     len(rows),
		"date_columns": len(dateColumns),
	}).Info("Parsed input dataset")

	return &domain.Dataset{DateColumns: dateColumns, Rows: rows}, nil
}
