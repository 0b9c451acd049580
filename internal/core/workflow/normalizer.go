package workflow

import (
	"fmt"
	"sort"
	"strings"
)

const (
	unknownIngredientName = "Unknown ingredient"
	unknownUnit           = "unknown"
)

// Normalize 把結構合法但內容可能殘缺的模型輸出整理成符合不變量的食譜：
// 補齊預設值、移除模型自行產生的備料步驟、合成第 0 步、重新編號並重算總時長。
func Normalize(raw *RawRecipe) *ParsedRecipe {
	ingredients := make([]ParsedIngredient, 0, len(raw.Ingredients))
	for _, item := range raw.Ingredients {
		if ing, ok := coerceIngredient(item); ok {
			ingredients = append(ingredients, ing)
		}
	}

	modelSteps := make([]ParsedStep, 0, len(raw.Steps))
	for i, item := range raw.Steps {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		step := coerceStep(m, i)
		// 備料步驟只能由正規化器產生
		if strings.EqualFold(strings.TrimSpace(step.Title), PrepareStepTitle) {
			continue
		}
		modelSteps = append(modelSteps, step)
	}

	// 穩定排序：序號相同時維持模型給出的先後
	sort.SliceStable(modelSteps, func(a, b int) bool {
		return modelSteps[a].Order < modelSteps[b].Order
	})

	steps := make([]ParsedStep, 0, len(modelSteps)+1)
	steps = append(steps, prepareStep(ingredients))
	for i, step := range modelSteps {
		step.Order = i + 1
		if step.Title == "" {
			step.Title = fmt.Sprintf("Step %d", step.Order)
		}
		steps = append(steps, step)
	}

	recipe := &ParsedRecipe{
		RecipeName:            strings.TrimSpace(raw.RecipeName),
		Ingredients:           ingredients,
		Steps:                 steps,
		TotalEstimatedMinutes: TotalMinutes(steps),
		Servings:              coerceServings(raw.Servings),
	}
	if desc, ok := asString(raw.Description); ok {
		recipe.Description = desc
	}
	return recipe
}

// TotalMinutes 重新計算 Order >= 1 的步驟時長總和
func TotalMinutes(steps []ParsedStep) float64 {
	total := 0.0
	for _, s := range steps {
		if s.Order >= 1 {
			total += s.DurationMinutes
		}
	}
	return total
}

func prepareStep(ingredients []ParsedIngredient) ParsedStep {
	return ParsedStep{
		Order:              0,
		Title:              PrepareStepTitle,
		Description:        PrepareStepDescription,
		DurationMinutes:    0,
		IngredientsForStep: EncodeAll(ingredients),
	}
}

func coerceIngredient(item any) (ParsedIngredient, bool) {
	switch t := item.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return ParsedIngredient{}, false
		}
		ing := Decode(t)
		if ing.Name == "" {
			ing.Name = unknownIngredientName
		}
		return ing, true
	case map[string]any:
		ing := ParsedIngredient{Name: unknownIngredientName, Unit: unknownUnit}
		if v, ok := lookup(t, "name"); ok {
			if name, ok := asString(v); ok && name != "" {
				ing.Name = name
			}
		}
		if v, ok := lookup(t, "amount"); ok {
			if amount, ok := asString(v); ok {
				ing.Amount = amount
			}
		}
		if v, ok := lookup(t, "unit"); ok {
			if unit, ok := asString(v); ok {
				ing.Unit = unit
			}
		}
		return ing, true
	default:
		return ParsedIngredient{}, false
	}
}

func coerceStep(m map[string]any, index int) ParsedStep {
	step := ParsedStep{Order: index + 1, IngredientsForStep: []string{}}

	if v, ok := lookup(m, "order"); ok {
		if order, ok := asOrder(v); ok {
			step.Order = order
		}
	}
	if v, ok := lookup(m, "title"); ok {
		if title, ok := asString(v); ok {
			step.Title = title
		}
	}
	if v, ok := lookup(m, "description"); ok {
		if desc, ok := asString(v); ok {
			step.Description = desc
		}
	}
	if v, ok := lookup(m, "duration_minutes"); ok {
		if d, ok := asNumber(v); ok && d > 0 {
			step.DurationMinutes = d
		}
	}
	if v, ok := lookup(m, "temperature"); ok {
		if temp, ok := asNumber(v); ok {
			step.Temperature = &temp
		}
	}
	if step.Temperature != nil {
		if v, ok := lookup(m, "temperature_unit"); ok {
			if s, ok := v.(string); ok {
				switch unit := TemperatureUnit(strings.TrimSpace(s)); unit {
				case Celsius, Fahrenheit:
					step.TemperatureUnit = &unit
				}
			}
		}
	}
	if v, ok := lookup(m, "notes"); ok {
		if notes, ok := asString(v); ok && notes != "" {
			step.Notes = &notes
		}
	}
	if v, ok := lookup(m, "ingredients_for_step"); ok {
		if items, ok := v.([]any); ok {
			for _, item := range items {
				switch t := item.(type) {
				case string:
					if s := strings.TrimSpace(t); s != "" {
						step.IngredientsForStep = append(step.IngredientsForStep, s)
					}
				case map[string]any:
					if ing, ok := coerceIngredient(t); ok {
						step.IngredientsForStep = append(step.IngredientsForStep, Encode(ing))
					}
				}
			}
		}
	}
	return step
}

func coerceServings(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &t
	default:
		if s, ok := asString(t); ok {
			return &s
		}
		return nil
	}
}
