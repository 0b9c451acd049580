package parser

import (
	"fmt"
	"strings"
)

// PromptVersion 系統提示詞版本，隨提示詞內容變更而遞增
const PromptVersion = "v5"

// SourceKind 輸入來源
type SourceKind string

const (
	SourceText SourceKind = "text"
	SourceURL  SourceKind = "url"
)

const systemPrompt = `You convert recipes into a structured bakery workflow.

Respond with a single JSON object and nothing else. Do not wrap it in markdown.

Schema:
{
  "recipeName": string,
  "description": string,
  "servings": string or null,
  "ingredients": [ { "name": string, "amount": string, "unit": string } ],
  "steps": [
    {
      "order": integer starting at 1,
      "title": short imperative title,
      "description": full instruction text,
      "duration_minutes": number or null,
      "temperature": number or null,
      "temperature_unit": "C" or "F" or null,
      "notes": string or null,
      "ingredients_for_step": [ "name: amount unit" ]
    }
  ]
}

Rules:
- Keep amounts as written, as strings, with no spaces inside the amount. Fractions such as "1/2" or "½" are fine. Write mixed numbers as "1½" or "1.5", never "1 1/2". Use "" for amounts like "to taste" and put the phrase in the unit.
- Use an empty unit for countable items ("3 eggs" -> amount "3", unit "").
- duration_minutes is the active or waiting time the step states (bake, rise, rest, chill). Convert hours to minutes. Use the lower bound of a range. Use null when no time is given.
- Extract oven or liquid temperatures into temperature and temperature_unit. Use "C" or "F" only.
- ingredients_for_step lists only the ingredients used in that step, each encoded as "name: amount unit".
- Never include a "Prepare Ingredients", "Gather ingredients" or "Mise en place" step. Start with the first real action.
- Do not invent ingredients or steps that are not in the source.

If the text is not a recipe, respond with exactly:
{"error": "not_a_recipe", "message": "<one sentence explaining why>"}`

// SystemPrompt 回傳目前版本的系統提示詞
func SystemPrompt() string {
	return systemPrompt
}

// BuildUserContent 組合使用者訊息
func BuildUserContent(source string, kind SourceKind) string {
	var b strings.Builder
	switch kind {
	case SourceURL:
		b.WriteString("Convert the recipe found in this web page text.\n\n")
	default:
		b.WriteString("Convert this recipe.\n\n")
	}
	fmt.Fprintf(&b, "<recipe>\n%s\n</recipe>", strings.TrimSpace(source))
	return b.String()
}
