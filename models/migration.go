package models

import (
	"log"

	"github.com/mmdatafocus/quoting_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Component{}, &ComponentCategory{},
		&PriceHistory{},
		&Quote{},
		&ExchangeRate{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
