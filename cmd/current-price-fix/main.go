package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/mmdatafocus/quoting_backend/models"
	"gorm.io/gorm"
)

// Repair tool for the price history current-flag invariant: every component
// must have at most one is_current_price = 1 row. Duplicates can appear after
// a partially-failed import; this keeps the newest row (quote_date, then id)
// and clears the rest. With --adopt-missing it also promotes the newest row
// for components that have history but no current row at all.
func main() {
	businessID := flag.String("business-id", "", "Required: business id (uuid)")
	componentID := flag.Int("component-id", 0, "Limit to one component (0 = scan all)")
	adoptMissing := flag.Bool("adopt-missing", false, "Also flag the newest row for components with no current row")
	dryRun := flag.Bool("dry-run", true, "Report only (no writes)")
	confirm := flag.String("confirm", "", "Type FIX_CURRENT_PRICE to proceed when dry-run=false")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "--business-id is required")
		os.Exit(1)
	}
	if !*dryRun && strings.TrimSpace(*confirm) != "FIX_CURRENT_PRICE" {
		fmt.Fprintln(os.Stderr, "set --confirm=FIX_CURRENT_PRICE to proceed")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	duplicates, err := findDuplicateComponents(db, *businessID, *componentID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		os.Exit(1)
	}

	var missing []int
	if *adoptMissing {
		missing, err = findMissingComponents(db, *businessID, *componentID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
			os.Exit(1)
		}
	}

	if len(duplicates) == 0 && len(missing) == 0 {
		fmt.Println("✓ No violations found")
		return
	}

	fmt.Printf("Components with duplicate current rows: %v\n", duplicates)
	if *adoptMissing {
		fmt.Printf("Components with history but no current row: %v\n", missing)
	}
	if *dryRun {
		fmt.Println("dry-run: no changes written")
		return
	}

	fixed := 0
	for _, id := range duplicates {
		if err := keepNewestCurrent(db, *businessID, id); err != nil {
			fmt.Fprintf(os.Stderr, "component %d: %v\n", id, err)
			continue
		}
		fixed++
	}
	for _, id := range missing {
		if err := promoteNewest(db, *businessID, id); err != nil {
			fmt.Fprintf(os.Stderr, "component %d: %v\n", id, err)
			continue
		}
		fixed++
	}

	fmt.Printf("✓ Repaired %d component(s)\n", fixed)
}

func findDuplicateComponents(db *gorm.DB, businessID string, componentID int) ([]int, error) {
	q := db.Model(&models.PriceHistory{}).
		Select("component_id").
		Where("business_id = ? AND is_current_price = 1", businessID).
		Group("component_id").
		Having("COUNT(*) > 1")
	if componentID > 0 {
		q = q.Where("component_id = ?", componentID)
	}
	var ids []int
	if err := q.Pluck("component_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func findMissingComponents(db *gorm.DB, businessID string, componentID int) ([]int, error) {
	q := db.Model(&models.PriceHistory{}).
		Select("component_id").
		Where("business_id = ?", businessID).
		Group("component_id").
		Having("SUM(is_current_price) = 0")
	if componentID > 0 {
		q = q.Where("component_id = ?", componentID)
	}
	var ids []int
	if err := q.Pluck("component_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// keepNewestCurrent clears every current flag for the component and re-flags
// only the newest row, all inside one transaction.
func keepNewestCurrent(db *gorm.DB, businessID string, componentID int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var newest models.PriceHistory
		if err := tx.
			Where("business_id = ? AND component_id = ?", businessID, componentID).
			Order("quote_date DESC, id DESC").
			First(&newest).Error; err != nil {
			return fmt.Errorf("load newest row: %w", err)
		}
		if err := tx.Model(&models.PriceHistory{}).
			Where("business_id = ? AND component_id = ? AND is_current_price = 1", businessID, componentID).
			Update("is_current_price", false).Error; err != nil {
			return fmt.Errorf("clear flags: %w", err)
		}
		if err := tx.Model(&models.PriceHistory{}).
			Where("id = ?", newest.ID).
			Update("is_current_price", true).Error; err != nil {
			return fmt.Errorf("flag newest: %w", err)
		}
		fmt.Printf("✓ component %d: kept history row %d as current\n", componentID, newest.ID)
		return nil
	})
}

func promoteNewest(db *gorm.DB, businessID string, componentID int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var newest models.PriceHistory
		if err := tx.
			Where("business_id = ? AND component_id = ?", businessID, componentID).
			Order("quote_date DESC, id DESC").
			First(&newest).Error; err != nil {
			return fmt.Errorf("load newest row: %w", err)
		}
		if err := tx.Model(&models.PriceHistory{}).
			Where("id = ?", newest.ID).
			Update("is_current_price", true).Error; err != nil {
			return fmt.Errorf("flag newest: %w", err)
		}
		fmt.Printf("✓ component %d: promoted history row %d to current\n", componentID, newest.ID)
		return nil
	})
}
