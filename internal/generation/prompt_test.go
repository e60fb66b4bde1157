package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateRender(t *testing.T) {
	tpl := Template("Info:\n{{context}}\nQ: {{question}}")
	assert.Equal(t, "Info:\nankara\nQ: What is the capital?", tpl.Render("ankara", "What is the capital?"))
}

func TestTemplateDefault(t *testing.T) {
	out := Template("").Render("CTX", "QUESTION")
	assert.Contains(t, out, "Information:\nCTX")
	assert.Contains(t, out, "Question: QUESTION")
	assert.NotContains(t, out, "{{")
}

func TestTemplateDoesNotExpandInsideValues(t *testing.T) {
	out := Template("{{context}}|{{question}}").Render("{{question}}", "q")
	assert.Equal(t, "{{question}}|q", out)
}
