package plan

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// systemPrompt defines the model's role. The exact day and meal counts are
// restated here and in the user prompt: the response schema validates the
// output shape but does not by itself steer the model to the right lengths.
const systemPrompt = `You are a professional nutritionist and meal planning expert.
You create practical, varied meal plans that hit the user's daily macro targets.
You MUST return a JSON object matching the requested schema exactly: the plan
must contain exactly the requested number of days, each day exactly the
requested number of meals, and day numbers must be sequential starting at 1.
All calorie and macro values must be non-negative numbers.`

// Prompt is the deterministic output of the prompt/schema builder: the
// instructions sent to the model plus the schema the response must satisfy.
type Prompt struct {
	System string
	User   string

	// ResponseSchema is enforced by the provider during generation.
	ResponseSchema *genai.Schema

	// JSONSchema is the same contract as a JSON Schema document, used to
	// validate the final object locally.
	JSONSchema []byte
}

// BuildPrompt translates a Request into the instructions and schemas for a
// structured generation call. It is a pure function of the request.
func BuildPrompt(req Request) (*Prompt, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	jsonSchema, err := json.Marshal(planJSONSchema(req.Days, req.MealsPerDay))
	if err != nil {
		return nil, fmt.Errorf("build prompt: marshal json schema: %w", err)
	}

	return &Prompt{
		System:         systemPrompt,
		User:           buildUserPrompt(req),
		ResponseSchema: planResponseSchema(req.Days, req.MealsPerDay),
		JSONSchema:     jsonSchema,
	}, nil
}

func buildUserPrompt(req Request) string {
	targets := req.Targets()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a meal plan spanning exactly %d days with exactly %d meals per day.\n\n", req.Days, req.MealsPerDay)

	sb.WriteString("DAILY MACRO TARGETS:\n")
	fmt.Fprintf(&sb, "- Calories: %.0f kcal\n", targets.Calories)
	fmt.Fprintf(&sb, "- Protein: %.0fg\n", targets.Protein)
	fmt.Fprintf(&sb, "- Carbs: %.0fg\n", targets.Carbs)
	fmt.Fprintf(&sb, "- Fats: %.0fg\n", targets.Fats)
	sb.WriteString("\n")

	if len(req.DietaryRestrictions) > 0 {
		fmt.Fprintf(&sb, "Must follow these dietary restrictions: %s\n", strings.Join(req.DietaryRestrictions, ", "))
	}
	if req.PreferredCuisines != "" {
		fmt.Fprintf(&sb, "Preferred cuisines: %s\n", req.PreferredCuisines)
	}
	if req.ExcludedIngredients != "" {
		fmt.Fprintf(&sb, "Never use these ingredients: %s\n", req.ExcludedIngredients)
	}
	if req.SkillLevel != "" {
		fmt.Fprintf(&sb, "Cooking skill level: %s\n", req.SkillLevel)
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Return exactly %d day entries, each containing exactly %d meals, with day numbers 1 through %d. ", req.Days, req.MealsPerDay, req.Days)
	sb.WriteString("Also return a categorized shopping list covering every ingredient in the plan.")

	return sb.String()
}

// planResponseSchema is the provider-side schema: exact-length days and
// meals arrays, non-negative calorie and macro values.
func planResponseSchema(days, mealsPerDay int) *genai.Schema {
	mealSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":  {Type: genai.TypeString, Description: "The meal slot label, e.g. Breakfast."},
			"title": {Type: genai.TypeString, Description: "The descriptive name of the dish."},
			"cals":  {Type: genai.TypeNumber, Minimum: genai.Ptr(0.0)},
			"macros": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"p": {Type: genai.TypeNumber, Minimum: genai.Ptr(0.0)},
					"c": {Type: genai.TypeNumber, Minimum: genai.Ptr(0.0)},
					"f": {Type: genai.TypeNumber, Minimum: genai.Ptr(0.0)},
				},
				Required: []string{"p", "c", "f"},
			},
		},
		Required: []string{"name", "title", "cals", "macros"},
	}

	daySchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"day": {Type: genai.TypeInteger, Minimum: genai.Ptr(1.0)},
			"meals": {
				Type:     genai.TypeArray,
				Items:    mealSchema,
				MinItems: genai.Ptr(int64(mealsPerDay)),
				MaxItems: genai.Ptr(int64(mealsPerDay)),
			},
		},
		Required: []string{"day", "meals"},
	}

	shoppingSchema := &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category": {Type: genai.TypeString},
				"items": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"name":     {Type: genai.TypeString},
							"quantity": {Type: genai.TypeString},
						},
						Required: []string{"name", "quantity"},
					},
				},
			},
			Required: []string{"category", "items"},
		},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"days": {
				Type:        genai.TypeArray,
				Description: "The days of the meal plan.",
				Items:       daySchema,
				MinItems:    genai.Ptr(int64(days)),
				MaxItems:    genai.Ptr(int64(days)),
			},
			"shoppingList": shoppingSchema,
		},
		Required: []string{"days", "shoppingList"},
	}
}

// planJSONSchema is the equivalent JSON Schema document for local
// validation of the final object.
func planJSONSchema(days, mealsPerDay int) map[string]any {
	nonNegative := func() map[string]any {
		return map[string]any{"type": "number", "minimum": 0}
	}

	mealSchema := map[string]any{
		"type":     "object",
		"required": []string{"name", "title", "cals", "macros"},
		"properties": map[string]any{
			"name":  map[string]any{"type": "string"},
			"title": map[string]any{"type": "string"},
			"cals":  nonNegative(),
			"macros": map[string]any{
				"type":     "object",
				"required": []string{"p", "c", "f"},
				"properties": map[string]any{
					"p": nonNegative(),
					"c": nonNegative(),
					"f": nonNegative(),
				},
			},
		},
	}

	daySchema := map[string]any{
		"type":     "object",
		"required": []string{"day", "meals"},
		"properties": map[string]any{
			"day": map[string]any{"type": "integer", "minimum": 1},
			"meals": map[string]any{
				"type":     "array",
				"items":    mealSchema,
				"minItems": mealsPerDay,
				"maxItems": mealsPerDay,
			},
		},
	}

	return map[string]any{
		"type":     "object",
		"required": []string{"days"},
		"properties": map[string]any{
			"days": map[string]any{
				"type":     "array",
				"items":    daySchema,
				"minItems": days,
				"maxItems": days,
			},
			"shoppingList": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"category", "items"},
					"properties": map[string]any{
						"category": map[string]any{"type": "string"},
						"items": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type":     "object",
								"required": []string{"name", "quantity"},
								"properties": map[string]any{
									"name":     map[string]any{"type": "string"},
									"quantity": map[string]any{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}
}

// CheckPlan verifies the structural invariants that the schema cannot
// express: contiguous 1-indexed day numbers.
func CheckPlan(p *GeneratedPlan, days, mealsPerDay int) error {
	if len(p.Days) != days {
		return fmt.Errorf("plan has %d days, want %d", len(p.Days), days)
	}
	for i, d := range p.Days {
		if d.Day != i+1 {
			return fmt.Errorf("day %d is numbered %d, want %d", i, d.Day, i+1)
		}
		if len(d.Meals) != mealsPerDay {
			return fmt.Errorf("day %d has %d meals, want %d", d.Day, len(d.Meals), mealsPerDay)
		}
	}
	return nil
}
