package models

import (
	"context"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/mmdatafocus/quoting_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrorDuplicateComponent = errors.New("a component with this name already exists")

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// Component is a persisted library part. Unit prices carry the full
// three-currency record; Currency tags which one was authoritative at the
// last price update.
type Component struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"not null;uniqueIndex:idx_components_business_name" json:"business_id" binding:"required"`
	Name           string          `gorm:"size:255;not null;uniqueIndex:idx_components_business_name" json:"name" binding:"required"`
	Manufacturer   string          `gorm:"index;size:100" json:"manufacturer"`
	ManufacturerPN string          `gorm:"index;size:100" json:"manufacturer_pn"`
	CategoryId     int             `gorm:"index;not null;default:0" json:"category_id"`
	ComponentType  ComponentType   `gorm:"size:20;not null;default:'hardware'" json:"component_type"`
	LaborSubtype   string          `gorm:"size:50" json:"labor_subtype"`
	UnitPriceNis   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price_nis"`
	UnitPriceUsd   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price_usd"`
	UnitPriceEur   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price_eur"`
	Currency       CurrencyCode    `gorm:"size:3" json:"currency"`
	Description    string          `gorm:"type:text" json:"description"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewComponent struct {
	Name           string          `json:"name" binding:"required"`
	Manufacturer   string          `json:"manufacturer"`
	ManufacturerPN string          `json:"manufacturer_pn"`
	CategoryId     int             `json:"category_id"`
	ComponentType  ComponentType   `json:"component_type"`
	LaborSubtype   string          `json:"labor_subtype"`
	UnitPriceNis   decimal.Decimal `json:"unit_price_nis"`
	UnitPriceUsd   decimal.Decimal `json:"unit_price_usd"`
	UnitPriceEur   decimal.Decimal `json:"unit_price_eur"`
	Currency       CurrencyCode    `json:"currency"`
	Description    string          `json:"description"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewComponent) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Component](ctx, businessId, id); err != nil {
			return err
		}
	}
	if input.ComponentType != "" && !input.ComponentType.IsValid() {
		return errors.New("invalid component type")
	}
	if input.Currency != "" && !input.Currency.IsValid() {
		return errors.New("invalid currency")
	}
	if input.CategoryId > 0 {
		if err := utils.ValidateResourceId[ComponentCategory](ctx, businessId, input.CategoryId); err != nil {
			return err
		}
	}
	return nil
}

func CreateComponent(ctx context.Context, input *NewComponent) (*Component, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	categoryId := input.CategoryId
	if categoryId == 0 {
		defaultCategory, err := GetOrCreateDefaultCategory(ctx, businessId)
		if err != nil {
			return nil, err
		}
		categoryId = defaultCategory.ID
	}

	componentType := input.ComponentType
	if componentType == "" {
		componentType = ComponentTypeHardware
	}

	component := Component{
		BusinessId:     businessId,
		Name:           input.Name,
		Manufacturer:   input.Manufacturer,
		ManufacturerPN: input.ManufacturerPN,
		CategoryId:     categoryId,
		ComponentType:  componentType,
		LaborSubtype:   input.LaborSubtype,
		UnitPriceNis:   input.UnitPriceNis,
		UnitPriceUsd:   input.UnitPriceUsd,
		UnitPriceEur:   input.UnitPriceEur,
		Currency:       input.Currency,
		Description:    input.Description,
		IsActive:       utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&component).Error
	if err != nil {
		if isDuplicateKeyErr(err) {
			return nil, ErrorDuplicateComponent
		}
		return nil, err
	}
	return &component, nil
}

type ComponentPrices struct {
	UnitPriceNis decimal.Decimal `json:"unit_price_nis"`
	UnitPriceUsd decimal.Decimal `json:"unit_price_usd"`
	UnitPriceEur decimal.Decimal `json:"unit_price_eur"`
	Currency     CurrencyCode    `json:"currency"`
}

// UpdateComponentPrices overwrites the component's live price fields.
// History bookkeeping is the caller's concern (see AppendPriceHistory).
func UpdateComponentPrices(ctx context.Context, id int, prices ComponentPrices) error {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}

	if err := utils.ValidateResourceId[Component](ctx, businessId, id); err != nil {
		return err
	}

	db := config.GetDB()
	return db.WithContext(ctx).Model(&Component{}).
		Where("business_id = ? AND id = ?", businessId, id).
		Updates(map[string]interface{}{
			"unit_price_nis": prices.UnitPriceNis,
			"unit_price_usd": prices.UnitPriceUsd,
			"unit_price_eur": prices.UnitPriceEur,
			"currency":       prices.Currency,
		}).Error
}

func GetComponent(ctx context.Context, id int) (*Component, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var component Component
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessId, id).
		First(&component).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &component, nil
}

// ListActiveComponents returns the full active library for the business.
// The matcher scans this list in insertion order (stable tie-break).
func ListActiveComponents(ctx context.Context) ([]Component, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var components []Component
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("business_id = ? AND is_active = 1", businessId).
		Order("id").
		Find(&components).Error
	if err != nil {
		return nil, err
	}
	return components, nil
}

// SearchComponents returns active components whose name or manufacturer part
// number matches the query, capped at config.SearchLimit rows.
func SearchComponents(ctx context.Context, query string) ([]Component, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	like := "%" + query + "%"
	var components []Component
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("business_id = ? AND is_active = 1", businessId).
		Where("name LIKE ? OR manufacturer_pn LIKE ?", like, like).
		Order("id").
		Limit(config.SearchLimit).
		Find(&components).Error
	if err != nil {
		return nil, err
	}
	return components, nil
}
