// internal/ledger/excel.go
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/charityrun/runproof/internal/config"
	"github.com/charityrun/runproof/internal/utils"
)

var submissionHeaders = []string{"Email", "Activity", "Distance (km)", "Duration", "Submitted At"}

// ExcelStore keeps the roster and submission log in one workbook: the
// registrations sheet holds emails in column A, the submissions sheet
// holds one row per accepted entry. The event organizers edit the same
// file by hand, so every append saves the workbook back to disk.
type ExcelStore struct {
	mu       sync.Mutex
	file     *excelize.File
	path     string
	regSheet string
	subSheet string
	logger   utils.Logger
}

// NewExcelStore opens the workbook at cfg.Path, creating it with both
// sheets when it does not exist yet.
func NewExcelStore(cfg config.ExcelLedger, logger utils.Logger) (*ExcelStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("excel ledger path is required")
	}
	if !strings.HasSuffix(strings.ToLower(cfg.Path), ".xlsx") {
		return nil, fmt.Errorf("excel ledger path must end with .xlsx")
	}

	store := &ExcelStore{
		path:     cfg.Path,
		regSheet: cfg.RegistrationsSheet,
		subSheet: cfg.SubmissionsSheet,
		logger:   logger,
	}

	if _, err := os.Stat(cfg.Path); os.IsNotExist(err) {
		if err := store.create(); err != nil {
			return nil, err
		}
		return store, nil
	}

	file, err := excelize.OpenFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel ledger: %w", err)
	}
	store.file = file

	for _, sheet := range []string{store.regSheet, store.subSheet} {
		if _, err := file.GetSheetIndex(sheet); err != nil {
			return nil, fmt.Errorf("excel ledger is missing sheet %q: %w", sheet, err)
		}
	}

	return store, nil
}

func (s *ExcelStore) create() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	file := excelize.NewFile()
	file.SetSheetName(file.GetSheetName(0), s.regSheet)
	if err := file.SetCellValue(s.regSheet, "A1", "Email"); err != nil {
		return err
	}

	if _, err := file.NewSheet(s.subSheet); err != nil {
		return err
	}
	for col, header := range submissionHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(s.subSheet, cell, header); err != nil {
			return err
		}
	}

	if err := file.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to create excel ledger: %w", err)
	}

	s.file = file
	s.logger.Infof("created excel ledger at %s", s.path)
	return nil
}

// IsRegistered scans column A of the registrations sheet.
func (s *ExcelStore) IsRegistered(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.file.GetRows(s.regSheet)
	if err != nil {
		return false, fmt.Errorf("failed to read registrations sheet: %w", err)
	}

	needle := utils.NormalizeEmail(email)
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		if utils.NormalizeEmail(row[0]) == needle {
			return true, nil
		}
	}
	return false, nil
}

// ListEntries reads the full submission log. Rows with an unparseable
// distance are skipped with a warning rather than failing the read.
func (s *ExcelStore) ListEntries(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.file.GetRows(s.subSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read submissions sheet: %w", err)
	}

	var entries []Entry
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		entry := Entry{
			Email:       utils.NormalizeEmail(row[0]),
			ActivityRef: strings.TrimSpace(row[1]),
		}
		if len(row) > 2 {
			dist, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
			if err != nil {
				s.logger.Warnf("skipping unparseable distance %q in submissions row %d", row[2], i+1)
				continue
			}
			entry.DistanceKm = dist
		}
		if len(row) > 3 {
			entry.Duration = strings.TrimSpace(row[3])
		}
		if len(row) > 4 {
			if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(row[4])); err == nil {
				entry.SubmittedAt = ts
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Append writes one submission row and saves the workbook.
func (s *ExcelStore) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.file.GetRows(s.subSheet)
	if err != nil {
		return fmt.Errorf("failed to read submissions sheet: %w", err)
	}
	next := len(rows) + 1

	values := []interface{}{
		entry.Email,
		entry.ActivityRef,
		entry.DistanceKm,
		entry.Duration,
		entry.SubmittedAt.Format(time.RFC3339),
	}
	for col, value := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, next)
		if err := s.file.SetCellValue(s.subSheet, cell, value); err != nil {
			return fmt.Errorf("failed to write submission cell: %w", err)
		}
	}

	if err := s.file.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to save excel ledger: %w", err)
	}
	return nil
}

// Ping verifies the workbook is still readable.
func (s *ExcelStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.GetRows(s.regSheet); err != nil {
		return fmt.Errorf("excel ledger unavailable: %w", err)
	}
	return nil
}

// Close releases the workbook handle.
func (s *ExcelStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
