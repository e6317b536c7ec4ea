package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCategory_UnknownFallsBackToElectronics(t *testing.T) {
	assert.Equal(t, "electronics", ResolveCategory("spacecraft_parts"))
	assert.Equal(t, "fashion", ResolveCategory(" Fashion "))
}

func TestFocusAreas_UnknownCategoryFallsBackToElectronics(t *testing.T) {
	focus := FocusAreas("quality", "unknown_category")
	assert.Equal(t, focusCatalogue["electronics"]["quality"], focus)
}

func TestFocusAreas_KnownCategoriesHaveAllAgentTypes(t *testing.T) {
	for _, cat := range KnownCategories() {
		for _, agentType := range []string{"quality", "experience", "user_experience", "business", "technical"} {
			focus := FocusAreas(agentType, cat)
			assert.NotEmpty(t, focus, "category %s agent_type %s", cat, agentType)
		}
	}
}

func TestCategoryDescription(t *testing.T) {
	assert.Contains(t, CategoryDescription("books_media"), "Books")
	assert.Equal(t, "Consumer electronics, gadgets, and appliances", CategoryDescription("totally_unknown"))
}
