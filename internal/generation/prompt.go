// Package generation composes prompts and defines the gateway to the external
// text-generation service.
package generation

import "strings"

// DefaultTemplate is the instruction wrapped around the retrieved context.
const DefaultTemplate = `Below is some information and a user question.
Answer the question using only this information.
Keep the answer natural, short and informative.

Information:
{{context}}

Question: {{question}}`

// Template renders prompts from a text containing {{context}} and {{question}}.
type Template string

// Render substitutes the context block and question into the template.
func (t Template) Render(context, question string) string {
	tpl := string(t)
	if strings.TrimSpace(tpl) == "" {
		tpl = DefaultTemplate
	}
	r := strings.NewReplacer("{{context}}", context, "{{question}}", question)
	return r.Replace(tpl)
}
