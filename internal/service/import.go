package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/octobees/leads-prospector/internal/entity"
	"github.com/octobees/leads-prospector/internal/ledger"
)

// CSVValidationError indicates that the provided CSV payload is invalid.
type CSVValidationError struct {
	Message string
}

// Error implements the error interface.
func (e CSVValidationError) Error() string {
	return e.Message
}

// ImportSummary reports how the rows of an imported file were admitted.
type ImportSummary struct {
	Saved      int `json:"saved"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Total      int `json:"total"`
}

// Importer admits businesses from a CSV file in the export layout.
type Importer struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

// NewImporter constructs an Importer.
func NewImporter(l *ledger.Ledger, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{ledger: l, logger: logger}
}

var requiredImportHeaders = []string{"nome", "telefone"}

// ImportCSV reads rows with the export header and admits each business
// through the ledger, so re-importing an export stores nothing new.
func (i *Importer) ImportCSV(ctx context.Context, r io.Reader) (ImportSummary, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ImportSummary{}, CSVValidationError{Message: "csv file is empty"}
		}
		return ImportSummary{}, fmt.Errorf("read csv header: %w", err)
	}

	index, err := buildHeaderIndex(header)
	if err != nil {
		return ImportSummary{}, err
	}

	var (
		summary    ImportSummary
		businesses []entity.Business
		rowNum     = 1
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ImportSummary{}, fmt.Errorf("read csv row: %w", err)
		}
		rowNum++
		summary.Total++

		business, err := businessFromRow(row, index)
		if err != nil {
			return ImportSummary{}, CSVValidationError{Message: fmt.Sprintf("%v on row %d", err, rowNum)}
		}
		if business.Name == "" {
			summary.Skipped++
			continue
		}
		businesses = append(businesses, business)
	}

	// Nothing is stored until every row has parsed.
	for n := range businesses {
		outcome, err := i.ledger.AdmitBusiness(ctx, &businesses[n])
		if err != nil {
			return summary, fmt.Errorf("admit %q: %w", businesses[n].Name, err)
		}
		switch outcome {
		case ledger.AdmitSaved:
			summary.Saved++
		case ledger.AdmitDuplicate:
			summary.Duplicates++
		}
	}

	i.logger.Info("csv imported",
		zap.Int("total", summary.Total),
		zap.Int("saved", summary.Saved),
		zap.Int("duplicates", summary.Duplicates),
	)
	return summary, nil
}

func buildHeaderIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}

	missing := make([]string, 0)
	for _, required := range requiredImportHeaders {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, CSVValidationError{Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}
	return index, nil
}

func businessFromRow(row []string, index map[string]int) (entity.Business, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	b := entity.Business{
		Name:       field("nome"),
		Phone:      field("telefone"),
		Address:    field("endereço"),
		Category:   field("categoria"),
		Website:    field("website"),
		SearchTerm: field("palavra-chave"),
	}

	var err error
	if b.Rating, err = parseOptionalFloat(field("avaliação")); err != nil {
		return b, errors.New("invalid rating value")
	}
	if b.ReviewCount, err = parseOptionalInt(field("número de avaliações")); err != nil {
		return b, errors.New("invalid reviews value")
	}
	if captured := field("data captura"); captured != "" {
		at, err := time.ParseInLocation(exportTimeLayout, captured, time.Local)
		if err != nil {
			return b, errors.New("invalid capture date")
		}
		b.CreatedAt = at.UTC()
	}
	return b, nil
}

func parseOptionalFloat(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
}

func parseOptionalInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
