package models_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/mmdatafocus/quoting_backend/models"
	"github.com/mmdatafocus/quoting_backend/utils"
	"github.com/shopspring/decimal"
)

// Search path check against a real MySQL.
//
// Usage: INTEGRATION_TESTS=1 go test ./models -run SearchComponents -v

func TestSearchComponentsLimit(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run against a real database")
	}

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	businessId := "it-search-" + time.Now().UTC().Format("20060102150405")
	ctx := utils.SetBusinessIdInContext(context.Background(), businessId)

	for i := 0; i < config.SearchLimit+2; i++ {
		_, err := models.CreateComponent(ctx, &models.NewComponent{
			Name:         fmt.Sprintf("Relay Module %02d", i),
			Manufacturer: "Schneider",
			Currency:     models.CurrencyUSD,
			UnitPriceUsd: decimal.NewFromInt(10),
		})
		if err != nil {
			t.Fatalf("create component %d: %v", i, err)
		}
	}
	if _, err := models.CreateComponent(ctx, &models.NewComponent{
		Name:         "Cable Tray",
		Manufacturer: "Schneider",
		Currency:     models.CurrencyUSD,
		UnitPriceUsd: decimal.NewFromInt(5),
	}); err != nil {
		t.Fatalf("create component: %v", err)
	}

	results, err := models.SearchComponents(ctx, "Relay")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != config.SearchLimit {
		t.Errorf("search returned %d rows, want the %d-row cap", len(results), config.SearchLimit)
	}
	for _, c := range results {
		if !strings.Contains(c.Name, "Relay") {
			t.Errorf("non-matching component in results: %s", c.Name)
		}
	}
}
