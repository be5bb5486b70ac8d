package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/octobees/leads-prospector/internal/dto"
	"github.com/octobees/leads-prospector/internal/entity"
	"github.com/octobees/leads-prospector/internal/repository"
)

var exportHeader = []string{
	"Nome",
	"Telefone",
	"Endereço",
	"Categoria",
	"Avaliação",
	"Número de Avaliações",
	"Website",
	"Palavra-chave",
	"Data Captura",
}

const (
	exportTimeLayout = "02/01/2006 15:04"
	exportFileLayout = "20060102_150405"
)

// Exporter serializes the business table to CSV.
type Exporter struct {
	businesses repository.BusinessesRepository
	dir        string
	now        func() time.Time
}

// NewExporter writes export files under dir.
func NewExporter(businesses repository.BusinessesRepository, dir string) *Exporter {
	if dir == "" {
		dir = "export"
	}
	return &Exporter{businesses: businesses, dir: dir, now: time.Now}
}

// Export writes every stored business to a new negocios_<timestamp>.csv file and returns its path.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(e.dir, "negocios_"+e.now().Format(exportFileLayout)+".csv")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := e.WriteCSV(ctx, f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

// WriteCSV streams every stored business, in discovery order, to w.
func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer) error {
	businesses, err := e.businesses.List(ctx, dto.BusinessFilter{})
	if err != nil {
		return fmt.Errorf("load businesses for export: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, b := range businesses {
		if err := writer.Write(exportRow(b)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func exportRow(b entity.Business) []string {
	return []string{
		b.Name,
		b.Phone,
		b.Address,
		b.Category,
		strconv.FormatFloat(b.Rating, 'f', -1, 64),
		strconv.Itoa(b.ReviewCount),
		b.Website,
		b.SearchTerm,
		b.CreatedAt.Local().Format(exportTimeLayout),
	}
}
