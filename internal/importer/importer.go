package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"platewise/internal/llm"
)

// Recipe is a recipe extracted from an external page.
type Recipe struct {
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	PrepTime    string   `json:"prep_time"`
	Servings    string   `json:"servings"`
	SourceURL   string   `json:"source_url"`
}

// Importer fetches a recipe page and extracts its structured content.
type Importer struct {
	httpClient *http.Client
	textGen    llm.TextGenerator
}

// NewImporter creates a new Importer instance.
func NewImporter(textGen llm.TextGenerator) *Importer {
	return &Importer{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		textGen:    textGen,
	}
}

// ImportURL fetches the URL and extracts the recipe from its content.
func (i *Importer) ImportURL(ctx context.Context, url string) (*Recipe, error) {
	content, err := i.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	prompt := fmt.Sprintf(`
You are a recipe extraction expert. Extract the recipe details from the following page content.
Return the result strictly as a JSON object with this structure:
{
  "title": "Recipe Title",
  "ingredients": ["item 1", "item 2", ...],
  "steps": ["Step 1 description", "Step 2 description", ...],
  "prep_time": "e.g. 30 mins",
  "servings": "e.g. 4 people"
}

Page Content:
%s
`, content)

	res, err := i.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("ai extraction failed: %w", err)
	}

	var recipe Recipe
	raw := stripCodeFences(res.Content)
	if err := json.Unmarshal([]byte(raw), &recipe); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w. Response: %s", err, res.Content)
	}
	if recipe.Title == "" || len(recipe.Ingredients) == 0 {
		return nil, fmt.Errorf("page does not contain a recipe")
	}
	recipe.SourceURL = url

	return &recipe, nil
}

func (i *Importer) fetchAndCleanHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	// Remove noise to save LLM tokens.
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	return doc.Find("body").Text(), nil
}

// stripCodeFences removes a markdown code fence if the model wrapped its
// JSON in one.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
