package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/mmdatafocus/quoting_backend/utils"
	"gorm.io/gorm"
)

type ComponentCategory struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id" binding:"required"`
	Name       string    `gorm:"size:100;not null" json:"name" binding:"required"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewComponentCategory struct {
	Name string `json:"name" binding:"required"`
}

func CreateComponentCategory(ctx context.Context, input *NewComponentCategory) (*ComponentCategory, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateUnique[ComponentCategory](ctx, businessId, "name", input.Name, 0); err != nil {
		return nil, err
	}

	category := ComponentCategory{
		BusinessId: businessId,
		Name:       input.Name,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func ListComponentCategories(ctx context.Context) ([]ComponentCategory, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var categories []ComponentCategory
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("business_id = ? AND is_active = 1", businessId).
		Order("name").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// GetOrCreateDefaultCategory returns the sentinel "Other" bucket, creating it
// on first use for a business.
func GetOrCreateDefaultCategory(ctx context.Context, businessId string) (*ComponentCategory, error) {

	var category ComponentCategory
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("business_id = ? AND name = ?", businessId, DefaultCategoryName).
		First(&category).Error
	if err == nil {
		return &category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	category = ComponentCategory{
		BusinessId: businessId,
		Name:       DefaultCategoryName,
		IsActive:   utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}
