// Package importer loads menu items from CSV files.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"coffeeshop/internal/domain"
)

// CatalogWriter is implemented by the catalog service.
type CatalogWriter interface {
	UpsertCategory(ctx context.Context, c domain.Category) (*domain.Category, error)
	UpsertItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
}

// CSVImporter reads rows of category,name,description,price,available,image
// and upserts them into the catalog. Columns are matched by header name, so
// their order is free and an optional emoji column sets the category emoji.
type CSVImporter struct {
	reader  *csv.Reader
	catalog CatalogWriter
}

func NewCSVImporter(r io.Reader, catalog CatalogWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:  csvr,
		catalog: catalog,
	}
}

type csvRow struct {
	Line      int
	Category  string
	Emoji     string
	Name      string
	Desc      string
	Cents     int64
	Available bool
	ImageURL  string
}

var requiredColumns = []string{"category", "name", "price"}

// Run upserts every row and returns how many items were written. It stops at
// the first invalid row; rows before it stay imported.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("missing column %q", col)
		}
	}

	categories := make(map[string]string)
	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		row, err := parseRow(record, index, line)
		if err != nil {
			return imported, err
		}
		if row == nil {
			continue
		}
		if err := i.save(ctx, row, categories); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow, categories map[string]string) error {
	key := strings.ToLower(row.Category)
	categoryID, ok := categories[key]
	if !ok {
		cat, err := i.catalog.UpsertCategory(ctx, domain.Category{Name: row.Category, Emoji: row.Emoji, SortOrder: len(categories)})
		if err != nil {
			return fmt.Errorf("line %d: upsert category %q: %w", row.Line, row.Category, err)
		}
		categoryID = cat.ID
		categories[key] = categoryID
	}

	_, err := i.catalog.UpsertItem(ctx, domain.MenuItem{
		CategoryID:  categoryID,
		Name:        row.Name,
		Description: row.Desc,
		PriceCents:  row.Cents,
		IsAvailable: row.Available,
		ImageURL:    row.ImageURL,
	})
	if err != nil {
		return fmt.Errorf("line %d: upsert item %q: %w", row.Line, row.Name, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// parseRow returns nil for blank rows.
func parseRow(record []string, index map[string]int, line int) (*csvRow, error) {
	row := &csvRow{
		Line:     line,
		Category: pick(record, index, "category"),
		Emoji:    pick(record, index, "emoji"),
		Name:     pick(record, index, "name"),
		Desc:     pick(record, index, "description"),
		ImageURL: pick(record, index, "image"),
	}
	price := pick(record, index, "price")
	if row.Category == "" && row.Name == "" && price == "" {
		return nil, nil
	}
	if row.Category == "" || row.Name == "" {
		return nil, fmt.Errorf("line %d: %w: category and name are required", line, domain.ErrValidation)
	}

	cents, err := parsePrice(price)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	row.Cents = cents

	row.Available = true
	if v := pick(record, index, "available"); v != "" {
		row.Available, err = parseBool(v)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return row, nil
}

// parsePrice converts a decimal amount such as "3.5" into cents.
func parsePrice(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: price required", domain.ErrValidation)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: price %q has more than two decimals", domain.ErrValidation, s)
	}
	units, err := strconv.ParseUint(whole, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid price %q", domain.ErrValidation, s)
	}
	var cents uint64
	if frac != "" {
		cents, err = strconv.ParseUint(frac+strings.Repeat("0", 2-len(frac)), 10, 8)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid price %q", domain.ErrValidation, s)
		}
	}
	return int64(units*100 + cents), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("%w: invalid available value %q", domain.ErrValidation, s)
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
