package plan

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func compileSchema(t *testing.T, doc []byte) *jsonschema.Schema {
	t.Helper()
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", bytes.NewReader(doc)); err != nil {
		t.Fatalf("Failed to add schema resource: %v", err)
	}
	s, err := c.Compile("schema.json")
	if err != nil {
		t.Fatalf("Failed to compile schema: %v", err)
	}
	return s
}

func validPlanJSON(days, mealsPerDay int) map[string]any {
	p := GeneratedPlan{
		ShoppingList: []ShoppingCategory{
			{Category: "Produce", Items: []ShoppingItem{{Name: "Spinach", Quantity: "200g"}}},
		},
	}
	for d := 1; d <= days; d++ {
		dp := DayPlan{Day: d}
		for m := 0; m < mealsPerDay; m++ {
			dp.Meals = append(dp.Meals, Meal{
				Name:   "Breakfast",
				Title:  "Tofu Scramble",
				Cals:   450,
				Macros: Macros{P: 30, C: 40, F: 18},
			})
		}
		p.Days = append(p.Days, dp)
	}

	b, _ := json.Marshal(p)
	var doc map[string]any
	_ = json.Unmarshal(b, &doc)
	return doc
}

func TestBuildPromptSchemaLengths(t *testing.T) {
	req := Request{Days: 3, MealsPerDay: 2, DietaryRestrictions: []string{"vegan"}}
	prompt, err := BuildPrompt(req)
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}

	schema := compileSchema(t, prompt.JSONSchema)

	t.Run("ExactShapeValidates", func(t *testing.T) {
		if err := schema.Validate(validPlanJSON(3, 2)); err != nil {
			t.Errorf("Expected a 3x2 plan to validate, got %v", err)
		}
	})

	t.Run("TooFewDaysFails", func(t *testing.T) {
		if err := schema.Validate(validPlanJSON(2, 2)); err == nil {
			t.Error("Expected a 2-day plan to fail validation against a 3-day schema")
		}
	})

	t.Run("TooManyDaysFails", func(t *testing.T) {
		if err := schema.Validate(validPlanJSON(4, 2)); err == nil {
			t.Error("Expected a 4-day plan to fail validation against a 3-day schema")
		}
	})

	t.Run("TooManyMealsFails", func(t *testing.T) {
		if err := schema.Validate(validPlanJSON(3, 3)); err == nil {
			t.Error("Expected 3 meals per day to fail validation against a 2-meal schema")
		}
	})

	t.Run("NegativeMacroFails", func(t *testing.T) {
		doc := validPlanJSON(3, 2)
		days := doc["days"].([]any)
		meal := days[0].(map[string]any)["meals"].([]any)[0].(map[string]any)
		meal["macros"].(map[string]any)["p"] = -1.0
		if err := schema.Validate(doc); err == nil {
			t.Error("Expected a negative protein value to fail validation")
		}
	})

	t.Run("MissingMealTitleFails", func(t *testing.T) {
		doc := validPlanJSON(3, 2)
		days := doc["days"].([]any)
		meal := days[1].(map[string]any)["meals"].([]any)[0].(map[string]any)
		delete(meal, "title")
		if err := schema.Validate(doc); err == nil {
			t.Error("Expected a meal without a title to fail validation")
		}
	})
}

func TestBuildPromptResponseSchema(t *testing.T) {
	prompt, err := BuildPrompt(Request{Days: 5, MealsPerDay: 4})
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}

	daysSchema := prompt.ResponseSchema.Properties["days"]
	if daysSchema == nil {
		t.Fatal("Response schema has no days property")
	}
	if daysSchema.MinItems == nil || *daysSchema.MinItems != 5 {
		t.Errorf("Expected days minItems 5, got %v", daysSchema.MinItems)
	}
	if daysSchema.MaxItems == nil || *daysSchema.MaxItems != 5 {
		t.Errorf("Expected days maxItems 5, got %v", daysSchema.MaxItems)
	}

	mealsSchema := daysSchema.Items.Properties["meals"]
	if mealsSchema.MinItems == nil || *mealsSchema.MinItems != 4 {
		t.Errorf("Expected meals minItems 4, got %v", mealsSchema.MinItems)
	}
	if mealsSchema.MaxItems == nil || *mealsSchema.MaxItems != 4 {
		t.Errorf("Expected meals maxItems 4, got %v", mealsSchema.MaxItems)
	}
}

func TestBuildPromptRestrictionsClause(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		prompt, err := BuildPrompt(Request{Days: 2, MealsPerDay: 3})
		if err != nil {
			t.Fatalf("BuildPrompt failed: %v", err)
		}
		if strings.Contains(prompt.User, "Must follow") {
			t.Error("Expected no 'Must follow' clause for empty restrictions")
		}
	})

	t.Run("Multiple", func(t *testing.T) {
		prompt, err := BuildPrompt(Request{
			Days:                2,
			MealsPerDay:         3,
			DietaryRestrictions: []string{"vegan", "gluten-free"},
		})
		if err != nil {
			t.Fatalf("BuildPrompt failed: %v", err)
		}
		if !strings.Contains(prompt.User, "Must follow these dietary restrictions: vegan, gluten-free") {
			t.Errorf("Expected joined restrictions clause, got:\n%s", prompt.User)
		}
	})
}

func TestBuildPromptDefaults(t *testing.T) {
	prompt, err := BuildPrompt(Request{Days: 1, MealsPerDay: 1})
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}
	for _, want := range []string{"Calories: 2200 kcal", "Protein: 150g", "Carbs: 200g", "Fats: 80g"} {
		if !strings.Contains(prompt.User, want) {
			t.Errorf("Expected default target %q in prompt, got:\n%s", want, prompt.User)
		}
	}
}

func TestBuildPromptCountsRestated(t *testing.T) {
	prompt, err := BuildPrompt(Request{Days: 3, MealsPerDay: 2})
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}
	// Counts must appear in the user instruction, not only in the schema.
	if !strings.Contains(prompt.User, "exactly 3 days") {
		t.Error("Expected day count restated in user prompt")
	}
	if !strings.Contains(prompt.User, "exactly 2 meals") {
		t.Error("Expected meal count restated in user prompt")
	}
	if prompt.System == "" {
		t.Error("Expected a non-empty system instruction")
	}
}

func TestBuildPromptInvalidRequest(t *testing.T) {
	if _, err := BuildPrompt(Request{Days: 0, MealsPerDay: 2}); err == nil {
		t.Error("Expected error for zero days")
	}
	if _, err := BuildPrompt(Request{Days: 2, MealsPerDay: -1}); err == nil {
		t.Error("Expected error for negative mealsPerDay")
	}
	if _, err := BuildPrompt(Request{Days: 2, MealsPerDay: 2, SkillLevel: "wizard"}); err == nil {
		t.Error("Expected error for unknown skill level")
	}
}

func TestCheckPlan(t *testing.T) {
	good := &GeneratedPlan{Days: []DayPlan{
		{Day: 1, Meals: []Meal{{}, {}}},
		{Day: 2, Meals: []Meal{{}, {}}},
	}}
	if err := CheckPlan(good, 2, 2); err != nil {
		t.Errorf("Expected valid plan, got %v", err)
	}

	badNumbering := &GeneratedPlan{Days: []DayPlan{
		{Day: 1, Meals: []Meal{{}, {}}},
		{Day: 3, Meals: []Meal{{}, {}}},
	}}
	if err := CheckPlan(badNumbering, 2, 2); err == nil {
		t.Error("Expected error for non-contiguous day numbers")
	}

	badMeals := &GeneratedPlan{Days: []DayPlan{
		{Day: 1, Meals: []Meal{{}}},
		{Day: 2, Meals: []Meal{{}, {}}},
	}}
	if err := CheckPlan(badMeals, 2, 2); err == nil {
		t.Error("Expected error for wrong meal count")
	}
}
