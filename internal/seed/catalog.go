package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmpos/m/domain"
	"pharmpos/m/internal/store"
)

// Catalog CSV columns, after a header row:
//
//	name,unit_price,dosage,form,manufacturer,batch_number,quantity,expiry_date,reorder_level
const catalogColumns = 9

// Result counts what a catalog import changed.
type Result struct {
	Medicines int
	Batches   int
	Skipped   int
}

// LoadCatalogFile imports the catalog at path. A missing file is logged and
// ignored.
func LoadCatalogFile(ctx context.Context, s *store.Store, path string, logger *zap.Logger) (Result, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("catalog_not_found", zap.String("path", path))
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()
	return LoadCatalog(ctx, s, file, logger)
}

// LoadCatalog ingests medicines and their opening batches in one
// transaction. Known medicines and batch numbers are left untouched so the
// import can run on every start. Malformed rows are logged and skipped.
func LoadCatalog(ctx context.Context, s *store.Store, r io.Reader, logger *zap.Logger) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("read catalog header: %w", err)
	}

	var res Result
	err := s.Transact(ctx, func(ctx context.Context, tx *store.Tx) error {
		line := 1
		for {
			record, err := reader.Read()
			if err == io.EOF {
				return nil
			}
			line++
			if err != nil {
				logger.Warn("catalog_row_unreadable", zap.Int("line", line), zap.Error(err))
				res.Skipped++
				continue
			}

			med, batch, err := parseRow(record)
			if err != nil {
				logger.Warn("catalog_row_invalid", zap.Int("line", line), zap.Error(err))
				res.Skipped++
				continue
			}

			created, err := tx.UpsertMedicine(ctx, &med)
			if err != nil {
				return fmt.Errorf("line %d: upsert medicine %s: %w", line, med.Name, err)
			}
			if created {
				res.Medicines++
			}

			batch.MedicineID = med.ID
			err = tx.AddBatch(ctx, &batch)
			switch {
			case errors.Is(err, store.ErrDuplicate):
			case err != nil:
				return fmt.Errorf("line %d: add batch %s: %w", line, batch.BatchNumber, err)
			default:
				res.Batches++
			}
		}
	})
	if err != nil {
		return Result{}, err
	}

	logger.Info("catalog_seeded",
		zap.Int("medicines", res.Medicines),
		zap.Int("batches", res.Batches),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func parseRow(record []string) (domain.Medicine, domain.InventoryBatch, error) {
	if len(record) < catalogColumns {
		return domain.Medicine{}, domain.InventoryBatch{}, fmt.Errorf("want %d columns, got %d", catalogColumns, len(record))
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	name := record[0]
	if name == "" {
		return domain.Medicine{}, domain.InventoryBatch{}, errors.New("name is empty")
	}
	price, err := decimal.NewFromString(record[1])
	if err != nil || price.IsNegative() {
		return domain.Medicine{}, domain.InventoryBatch{}, fmt.Errorf("invalid unit_price %q", record[1])
	}
	qty, err := strconv.ParseInt(record[6], 10, 64)
	if err != nil || qty < 0 {
		return domain.Medicine{}, domain.InventoryBatch{}, fmt.Errorf("invalid quantity %q", record[6])
	}
	expiry, err := time.Parse(time.DateOnly, record[7])
	if err != nil {
		return domain.Medicine{}, domain.InventoryBatch{}, fmt.Errorf("invalid expiry_date %q", record[7])
	}
	var reorder int64
	if record[8] != "" {
		if reorder, err = strconv.ParseInt(record[8], 10, 64); err != nil || reorder < 0 {
			return domain.Medicine{}, domain.InventoryBatch{}, fmt.Errorf("invalid reorder_level %q", record[8])
		}
	}
	batchNumber := record[5]
	if batchNumber == "" {
		return domain.Medicine{}, domain.InventoryBatch{}, errors.New("batch_number is empty")
	}

	med := domain.Medicine{
		Name:         name,
		UnitPrice:    price.Round(2),
		Dosage:       record[2],
		Form:         record[3],
		Manufacturer: record[4],
	}
	batch := domain.InventoryBatch{
		BatchNumber:  batchNumber,
		Quantity:     qty,
		ExpiryDate:   expiry,
		ReorderLevel: reorder,
	}
	return med, batch, nil
}
