package models

import (
	"strings"

	"gorm.io/gorm"
)

// Ingredient is reference data; (Name, MeasurementUnit) is unique
type Ingredient struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	Name            string `gorm:"size:100;not null;index;uniqueIndex:idx_ingredient_name_unit" json:"name"`
	MeasurementUnit string `gorm:"size:30;not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`
	// SearchName is Name lowercased with Unicode rules, for prefix search
	SearchName string `gorm:"size:100;not null;default:''" json:"-"`
}

// BeforeSave keeps SearchName in step with Name
func (i *Ingredient) BeforeSave(*gorm.DB) error {
	i.SearchName = strings.ToLower(i.Name)
	return nil
}

// Tag is reference data managed by staff
type Tag struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Name  string `gorm:"size:8;not null;uniqueIndex" json:"name"`
	Slug  string `gorm:"size:50;not null;uniqueIndex" json:"slug"`
	Color string `gorm:"size:7;not null;uniqueIndex" json:"color"`
}
