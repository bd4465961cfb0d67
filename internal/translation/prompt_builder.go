package translation

import (
	"fmt"
	"strings"

	"md2lang-oai/internal/locale"
)

// PromptBuilder constructs system and user prompts for translation.
type PromptBuilder struct{}

// NewPromptBuilder creates a new prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

const systemPrompt = `You are a professional translator. Translate the Markdown or plain text the user sends into {{targetLang}} ({{targetCode}}).

Rules:
1. Output ONLY the translated text. No explanations, notes or surrounding code fences.
2. The text contains placeholders like {{example0}} and {{example1}}. Copy every placeholder exactly as written, once each, where it belongs in the translated sentence. Never translate, split or drop a placeholder.
3. Keep the Markdown structure: headings, list markers, emphasis, tables, block quotes, blank lines and line breaks.
4. Translate link text and image alt text.
5. Keep the tone and register of the original. Use terminology from the reference section when one is given.
6. If a passage is already in {{targetLang}}, keep it unchanged.`

// SystemPrompt returns the system prompt for translating into loc. tag is the
// placeholder tag used in the text.
func (pb *PromptBuilder) SystemPrompt(loc locale.Locale, tag string) string {
	if tag == "" {
		tag = "md"
	}
	r := strings.NewReplacer(
		"{{targetLang}}", loc.DisplayName(),
		"{{targetCode}}", loc.String(),
		"{{example0}}", "{{"+tag+"_0}}",
		"{{example1}}", "{{"+tag+"_1}}",
	)
	return r.Replace(systemPrompt)
}

// UserPrompt wraps the text to translate, preceded by reference context when
// there is any.
func (pb *PromptBuilder) UserPrompt(text, reference string) string {
	if strings.TrimSpace(reference) == "" {
		return text
	}
	var sb strings.Builder
	sb.WriteString(reference)
	if !strings.HasSuffix(reference, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("=== Text to translate ===\n%s", text))
	return sb.String()
}
