package fetch

import (
	"fmt"
	"strings"

	"recipe-parser/internal/pkg/common"
)

// structuredRecipe 從 JSON-LD 找出 schema.org Recipe，整理成精簡文字；找不到時回傳空字串
func structuredRecipe(raw string) string {
	var doc interface{}
	if err := common.ParseJSON(strings.TrimSpace(raw), &doc); err != nil {
		return ""
	}

	recipe := findRecipe(doc)
	if recipe == nil {
		return ""
	}

	var b strings.Builder
	if name := textOf(recipe["name"]); name != "" {
		fmt.Fprintf(&b, "Name: %s\n", name)
	}
	if yield := textOf(recipe["recipeYield"]); yield != "" {
		fmt.Fprintf(&b, "Yield: %s\n", yield)
	}
	if ingredients := listOf(recipe["recipeIngredient"]); len(ingredients) > 0 {
		b.WriteString("Ingredients:\n")
		for _, ing := range ingredients {
			fmt.Fprintf(&b, "- %s\n", ing)
		}
	}
	if steps := instructions(recipe["recipeInstructions"]); len(steps) > 0 {
		b.WriteString("Instructions:\n")
		for i, step := range steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}
	return strings.TrimSpace(b.String())
}

func findRecipe(v interface{}) map[string]interface{} {
	switch node := v.(type) {
	case []interface{}:
		for _, item := range node {
			if r := findRecipe(item); r != nil {
				return r
			}
		}
	case map[string]interface{}:
		if hasType(node["@type"], "Recipe") {
			return node
		}
		if graph, ok := node["@graph"]; ok {
			return findRecipe(graph)
		}
	}
	return nil
}

func hasType(v interface{}, want string) bool {
	switch t := v.(type) {
	case string:
		return t == want
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

// textOf 字串、數字或陣列（取第一個）轉成文字
func textOf(v interface{}) string {
	switch t := v.(type) {
	case string:
		return common.CollapseWhitespace(t)
	case []interface{}:
		if len(t) > 0 {
			return textOf(t[0])
		}
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
	return ""
}

func listOf(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		if s := textOf(v); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := textOf(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// instructions 攤平 HowToStep / HowToSection
func instructions(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if s := common.CollapseWhitespace(t); s != "" {
			return []string{s}
		}
	case []interface{}:
		var out []string
		for _, item := range t {
			out = append(out, instructions(item)...)
		}
		return out
	case map[string]interface{}:
		if list, ok := t["itemListElement"]; ok {
			return instructions(list)
		}
		if s := textOf(t["text"]); s != "" {
			return []string{s}
		}
		if s := textOf(t["name"]); s != "" {
			return []string{s}
		}
	}
	return nil
}
