package domain

import "time"

// FoodCategory classifies catalog entries.
type FoodCategory string

const (
	CategoryMeat             FoodCategory = "MEAT"
	CategoryFish             FoodCategory = "FISH"
	CategoryGrain            FoodCategory = "GRAIN"
	CategoryVegetable        FoodCategory = "VEGETABLE"
	CategoryFruit            FoodCategory = "FRUIT"
	CategoryDairy            FoodCategory = "DAIRY"
	CategoryDairyAlternative FoodCategory = "DAIRY_ALTERNATIVE"
	CategoryFat              FoodCategory = "FAT"
	CategoryNightshades      FoodCategory = "NIGHTSHADES"
	CategoryOil              FoodCategory = "OIL"
	CategorySpiceHerb        FoodCategory = "SPICE_HERB"
	CategorySweetener        FoodCategory = "SWEETENER"
	CategoryCondiment        FoodCategory = "CONDIMENT"
	CategorySnack            FoodCategory = "SNACK"
	CategoryBeverage         FoodCategory = "BEVERAGE"
	CategoryOther            FoodCategory = "OTHER"
)

var foodCategories = map[FoodCategory]struct{}{
	CategoryMeat: {}, CategoryFish: {}, CategoryGrain: {}, CategoryVegetable: {},
	CategoryFruit: {}, CategoryDairy: {}, CategoryDairyAlternative: {}, CategoryFat: {},
	CategoryNightshades: {}, CategoryOil: {}, CategorySpiceHerb: {}, CategorySweetener: {},
	CategoryCondiment: {}, CategorySnack: {}, CategoryBeverage: {}, CategoryOther: {},
}

// Valid reports whether c is a known FoodCategory value.
func (c FoodCategory) Valid() bool {
	_, ok := foodCategories[c]
	return ok
}

// Food is a catalog entry with per-serving nutrition.
type Food struct {
	ID       int64        `json:"id"`
	Name     string       `json:"name"`
	Category FoodCategory `json:"category"`

	// Macros per serving, grams except calories.
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`

	ServingSize string `json:"servingSize"`
	Unit        string `json:"unit"`

	NonInflammatory bool `json:"nonInflammatory"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FoodLike marks a food as a favorite of a user. One row per (user, food).
type FoodLike struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	FoodID    int64     `json:"foodId"`
	CreatedAt time.Time `json:"createdAt"`
}
