package plan

import (
	"fmt"
	"time"
)

// SkillLevel is the cooking skill a plan is tailored to.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// Default daily macro targets substituted when the request omits them.
const (
	DefaultCalories = 2200
	DefaultProtein  = 150
	DefaultCarbs    = 200
	DefaultFats     = 80
)

// MacroTargets are daily nutrition targets for a plan.
type MacroTargets struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

// Request holds the user-specified parameters for one plan generation.
type Request struct {
	Days                int           `json:"dayCount"`
	MealsPerDay         int           `json:"mealsPerDay"`
	DailyTargets        *MacroTargets `json:"dailyTargets,omitempty"`
	DietaryRestrictions []string      `json:"dietaryRestrictions,omitempty"`
	PreferredCuisines   string        `json:"preferredCuisines,omitempty"`
	ExcludedIngredients string        `json:"excludedIngredients,omitempty"`
	SkillLevel          SkillLevel    `json:"skillLevel,omitempty"`
}

// Validate checks the request parameters that the schema builder depends on.
func (r Request) Validate() error {
	if r.Days <= 0 {
		return fmt.Errorf("dayCount must be a positive integer, got %d", r.Days)
	}
	if r.MealsPerDay <= 0 {
		return fmt.Errorf("mealsPerDay must be a positive integer, got %d", r.MealsPerDay)
	}
	switch r.SkillLevel {
	case "", SkillBeginner, SkillIntermediate, SkillAdvanced:
	default:
		return fmt.Errorf("unknown skill level %q", r.SkillLevel)
	}
	return nil
}

// Targets returns the daily macro targets, substituting defaults when absent.
func (r Request) Targets() MacroTargets {
	if r.DailyTargets != nil {
		return *r.DailyTargets
	}
	return MacroTargets{
		Calories: DefaultCalories,
		Protein:  DefaultProtein,
		Carbs:    DefaultCarbs,
		Fats:     DefaultFats,
	}
}

// Macros holds per-meal macro amounts in grams.
type Macros struct {
	P float64 `json:"p"`
	C float64 `json:"c"`
	F float64 `json:"f"`
}

// Meal is a single meal in a day of the plan.
type Meal struct {
	Name   string  `json:"name"`
	Title  string  `json:"title"`
	Cals   float64 `json:"cals"`
	Macros Macros  `json:"macros"`
}

// DayPlan is the set of meals for one day. Day numbers are 1-indexed and
// contiguous.
type DayPlan struct {
	Day   int    `json:"day"`
	Meals []Meal `json:"meals"`
}

// ShoppingItem is a single entry on the shopping list.
type ShoppingItem struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// ShoppingCategory groups shopping list items under a category name.
type ShoppingCategory struct {
	Category string         `json:"category"`
	Items    []ShoppingItem `json:"items"`
}

// GeneratedPlan is the validated output of one generation. It is never
// mutated after validation; regeneration always produces a new object.
type GeneratedPlan struct {
	Days         []DayPlan          `json:"days"`
	ShoppingList []ShoppingCategory `json:"shoppingList,omitempty"`
}

// SavedPlan is a persisted plan belonging to a user.
type SavedPlan struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Plan      GeneratedPlan `json:"plan"`
	CreatedAt time.Time     `json:"created_at"`
}
