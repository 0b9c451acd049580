package parser

import (
	"fmt"
	"regexp"
	"strings"

	"recipe-parser/internal/core/workflow"
	"recipe-parser/internal/pkg/common"
)

// NotARecipeSentinel 模型判定輸入不是食譜時回傳的 error 欄位值
const NotARecipeSentinel = "not_a_recipe"

var (
	leadingFence  = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")
	trailingFence = regexp.MustCompile("\r?\n?```$")
)

// ValidationError 單一欄位的結構問題
type ValidationError struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

// ValidationErrors 結構驗證失敗的欄位清單
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Field + " " + e.Problem
	}
	return "invalid recipe structure: " + strings.Join(parts, "; ")
}

// Fields 回傳有問題的欄位名稱
func (v ValidationErrors) Fields() []string {
	fields := make([]string, len(v))
	for i, e := range v {
		fields[i] = e.Field
	}
	return fields
}

// StripFences 移除開頭（可含語言標記）與結尾的 markdown 程式碼區塊標記
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// SanitizeAndParse 清理模型輸出並解析成 RawRecipe。
// 語法錯誤與結構缺漏回傳可重試的 PARSE_FAILURE，模型的非食譜回覆回傳 NOT_A_RECIPE。
func SanitizeAndParse(raw string) (*workflow.RawRecipe, error) {
	text := StripFences(raw)
	if text == "" {
		return nil, errParseFailure(msgParseFailure, fmt.Errorf("empty model response"))
	}
	if !strings.HasPrefix(text, "{") {
		// 去除 JSON 物件前後的對話文字
		text = common.ExtractJSONObject(text)
	}

	var obj map[string]any
	if err := common.ParseJSON(text, &obj); err != nil {
		// 正常解析失敗後才嘗試修補
		if repairErr := common.ParseJSON(common.RepairJSON(text), &obj); repairErr != nil {
			return nil, errParseFailure(msgParseFailure, fmt.Errorf("invalid JSON: %w", err))
		}
	}
	if obj == nil {
		return nil, errParseFailure(msgParseFailure, fmt.Errorf("model response is not an object"))
	}

	if sentinel, ok := obj["error"].(string); ok && sentinel == NotARecipeSentinel {
		message, _ := obj["message"].(string)
		return nil, errNotARecipe(message)
	}

	recipe, verrs := validate(obj)
	if len(verrs) > 0 {
		return nil, errParseFailure(
			fmt.Sprintf("The AI response was incomplete (%s). Please try again.", strings.Join(verrs.Fields(), ", ")),
			verrs,
		)
	}
	return recipe, nil
}

func validate(obj map[string]any) (*workflow.RawRecipe, ValidationErrors) {
	var verrs ValidationErrors
	recipe := &workflow.RawRecipe{
		Description:           obj["description"],
		Servings:              obj["servings"],
		TotalEstimatedMinutes: obj["totalEstimatedMinutes"],
	}

	switch name := obj["recipeName"].(type) {
	case string:
		if strings.TrimSpace(name) == "" {
			verrs = append(verrs, ValidationError{Field: "recipeName", Problem: "is empty"})
		}
		recipe.RecipeName = strings.TrimSpace(name)
	case nil:
		verrs = append(verrs, ValidationError{Field: "recipeName", Problem: "is missing"})
	default:
		verrs = append(verrs, ValidationError{Field: "recipeName", Problem: fmt.Sprintf("must be a string, got %T", name)})
	}

	recipe.Ingredients, verrs = requireArray(obj, "ingredients", verrs)
	recipe.Steps, verrs = requireArray(obj, "steps", verrs)

	return recipe, verrs
}

func requireArray(obj map[string]any, field string, verrs ValidationErrors) ([]any, ValidationErrors) {
	switch v := obj[field].(type) {
	case []any:
		return v, verrs
	case nil:
		return nil, append(verrs, ValidationError{Field: field, Problem: "is missing"})
	default:
		return nil, append(verrs, ValidationError{Field: field, Problem: fmt.Sprintf("must be an array, got %T", v)})
	}
}
