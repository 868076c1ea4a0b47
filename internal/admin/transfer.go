package admin

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/ummitifli/storefront/internal/apperr"
	"github.com/ummitifli/storefront/internal/domain"
)

// exportRow is one line of the catalog export.
type exportRow struct {
	ID              string  `csv:"id"`
	Name            string  `csv:"name"`
	Description     string  `csv:"description"`
	Price           float64 `csv:"price"`
	OriginalPrice   string  `csv:"original_price"`
	DiscountPercent int     `csv:"discount_percent"`
	ImageURL        string  `csv:"image_url"`
	Category        string  `csv:"category"`
	InStock         bool    `csv:"in_stock"`
	CreatedAt       string  `csv:"created_at"`
}

var exportHeader = []string{
	"id", "name", "description", "price", "original_price",
	"discount_percent", "image_url", "category", "in_stock", "created_at",
}

func toExportRow(p domain.Product) exportRow {
	r := exportRow{
		ID:              p.ID,
		Name:            p.Name,
		Price:           p.Price,
		DiscountPercent: p.DiscountPercent(),
		Category:        p.Category,
		InStock:         p.InStock,
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.OriginalPrice != nil {
		r.OriginalPrice = cast.ToString(*p.OriginalPrice)
	}
	if p.ImageURL != nil {
		r.ImageURL = *p.ImageURL
	}
	if p.CreatedAt != nil {
		r.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	return r
}

// ExportCSV writes products as CSV with a header line.
func ExportCSV(w io.Writer, products []domain.Product) error {
	rows := make([]*exportRow, 0, len(products))
	for _, p := range products {
		r := toExportRow(p)
		rows = append(rows, &r)
	}
	return gocsv.Marshal(rows, w)
}

// ExportXLSX writes products to the first sheet of a workbook.
func ExportXLSX(w io.Writer, products []domain.Product) error {
	const sheet = "Sheet1"
	f := excelize.NewFile()
	for i, h := range exportHeader {
		f.SetCellValue(sheet, cellRef(i, 1), h)
	}
	for n, p := range products {
		r := toExportRow(p)
		line := n + 2
		values := []interface{}{
			r.ID, r.Name, r.Description, r.Price, r.OriginalPrice,
			r.DiscountPercent, r.ImageURL, r.Category, r.InStock, r.CreatedAt,
		}
		for i, v := range values {
			f.SetCellValue(sheet, cellRef(i, line), v)
		}
	}
	return errors.Wrap(f.Write(w), "write workbook")
}

// cellRef converts a zero based column and a one based row to "A1" notation.
func cellRef(col, row int) string {
	name := ""
	for col >= 0 {
		name = string(rune('A'+col%26)) + name
		col = col/26 - 1
	}
	return fmt.Sprintf("%s%d", name, row)
}

// importRow is one line of a bulk import file.
type importRow struct {
	Name          string `csv:"name"`
	Description   string `csv:"description"`
	Price         string `csv:"price"`
	OriginalPrice string `csv:"original_price"`
	ImageURL      string `csv:"image_url"`
	Category      string `csv:"category"`
	InStock       string `csv:"in_stock"`
}

func (r importRow) fields() Fields {
	inStock := true
	if r.InStock != "" {
		inStock = cast.ToBool(r.InStock)
	}
	return Fields{
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		OriginalPrice: r.OriginalPrice,
		ImageURL:      r.ImageURL,
		Category:      r.Category,
		InStock:       inStock,
	}
}

// RowError reports why an import line was skipped. Line counts the header as 1.
type RowError struct {
	Line   int               `json:"line"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Created  int        `json:"created"`
	Failed   []RowError `json:"failed"`
	Products []string   `json:"products"`
}

// Import reads a CSV file and creates one product per valid line using a
// bounded worker pool. The catalog is refreshed once at the end.
func (g *Gateway) Import(ctx context.Context, r io.Reader, workers int) (ImportResult, error) {
	var rows []*importRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return ImportResult{}, apperr.Invalid("file", "ملف CSV غير صالح: "+err.Error())
	}
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "import pool")
	}
	defer pool.Release()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		res = ImportResult{Failed: []RowError{}, Products: []string{}}
	)
	fail := func(line int, err error) {
		re := RowError{Line: line, Error: err.Error()}
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			re.Fields = ve.Fields
		}
		mu.Lock()
		res.Failed = append(res.Failed, re)
		mu.Unlock()
	}

	for i, row := range rows {
		line, fields := i+2, row.fields()
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := fields.Validate(); err != nil {
				fail(line, err)
				return
			}
			p, err := g.create(ctx, fields.Input())
			if err != nil {
				fail(line, err)
				return
			}
			mu.Lock()
			res.Created++
			res.Products = append(res.Products, p.ID)
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			fail(line, err)
		}
	}
	wg.Wait()

	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Line < res.Failed[j].Line })
	zap.L().Info("product import finished", zap.Int("created", res.Created),
		zap.Int("failed", len(res.Failed)), zap.String("namespace", "admin"))
	if res.Created > 0 {
		g.audit.Record(ctx, ActionImport, "", fmt.Sprintf("import %d products", res.Created))
		g.refresh(ctx, "import")
	}
	return res, nil
}
