package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"platewise/internal/llm"
)

type mockTextGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (m *mockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.lastPrompt = prompt
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{Content: m.response}, nil
}

const recipePage = `<html><head><script>tracking();</script><style>.x{}</style></head>
<body>
<nav>Menu</nav>
<h1>Lentil Soup</h1>
<ul><li>200g lentils</li><li>1 onion</li></ul>
<p>Simmer everything for 30 minutes.</p>
<footer>Copyright</footer>
</body></html>`

const recipeJSON = `{
  "title": "Lentil Soup",
  "ingredients": ["200g lentils", "1 onion"],
  "steps": ["Simmer everything for 30 minutes."],
  "prep_time": "30 mins",
  "servings": "2 people"
}`

func TestImportURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(recipePage))
	}))
	defer server.Close()

	t.Run("Success", func(t *testing.T) {
		gen := &mockTextGenerator{response: recipeJSON}
		imp := NewImporter(gen)

		recipe, err := imp.ImportURL(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("ImportURL failed: %v", err)
		}
		if recipe.Title != "Lentil Soup" {
			t.Errorf("Expected title Lentil Soup, got %q", recipe.Title)
		}
		if len(recipe.Ingredients) != 2 {
			t.Errorf("Expected 2 ingredients, got %d", len(recipe.Ingredients))
		}
		if recipe.SourceURL != server.URL {
			t.Errorf("Expected source URL %s, got %s", server.URL, recipe.SourceURL)
		}
	})

	t.Run("NoiseStrippedFromPrompt", func(t *testing.T) {
		gen := &mockTextGenerator{response: recipeJSON}
		imp := NewImporter(gen)

		if _, err := imp.ImportURL(context.Background(), server.URL); err != nil {
			t.Fatalf("ImportURL failed: %v", err)
		}
		if strings.Contains(gen.lastPrompt, "tracking()") {
			t.Error("Expected script content to be stripped from the prompt")
		}
		if !strings.Contains(gen.lastPrompt, "200g lentils") {
			t.Error("Expected page text to be present in the prompt")
		}
	})

	t.Run("FencedResponse", func(t *testing.T) {
		gen := &mockTextGenerator{response: "```json\n" + recipeJSON + "\n```"}
		imp := NewImporter(gen)

		recipe, err := imp.ImportURL(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("ImportURL failed: %v", err)
		}
		if recipe.Title != "Lentil Soup" {
			t.Errorf("Expected title Lentil Soup, got %q", recipe.Title)
		}
	})

	t.Run("NotARecipe", func(t *testing.T) {
		gen := &mockTextGenerator{response: `{"title": "", "ingredients": []}`}
		imp := NewImporter(gen)

		if _, err := imp.ImportURL(context.Background(), server.URL); err == nil {
			t.Error("Expected error for a page without a recipe")
		}
	})

	t.Run("MalformedAIResponse", func(t *testing.T) {
		gen := &mockTextGenerator{response: "sorry, I cannot do that"}
		imp := NewImporter(gen)

		if _, err := imp.ImportURL(context.Background(), server.URL); err == nil {
			t.Error("Expected error for a non-JSON AI response")
		}
	})

	t.Run("UpstreamError", func(t *testing.T) {
		errServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer errServer.Close()

		gen := &mockTextGenerator{response: recipeJSON}
		imp := NewImporter(gen)

		if _, err := imp.ImportURL(context.Background(), errServer.URL); err == nil {
			t.Error("Expected error for a 404 page")
		}
	})
}
