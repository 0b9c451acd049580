// Package workflow 定義解析後的食譜資料模型，以及把模型輸出整理成合法工作流程的正規化器。
package workflow

// TemperatureUnit 溫度單位，只接受 C 或 F
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "C"
	Fahrenheit TemperatureUnit = "F"
)

// PrepareStepTitle 第 0 步固定標題
const PrepareStepTitle = "Prepare Ingredients"

// PrepareStepDescription 第 0 步固定說明
const PrepareStepDescription = "Gather and measure every ingredient on this list before you begin. Check each one off as it is ready."

// ParsedIngredient 單一食材
type ParsedIngredient struct {
	Name   string `json:"name" yaml:"name"`
	Amount string `json:"amount" yaml:"amount"`
	Unit   string `json:"unit" yaml:"unit"`
}

// ParsedStep 單一步驟；IngredientsForStep 為編碼後的食材字串
type ParsedStep struct {
	Order              int              `json:"order" yaml:"order"`
	Title              string           `json:"title" yaml:"title"`
	Description        string           `json:"description" yaml:"description"`
	DurationMinutes    float64          `json:"duration_minutes" yaml:"duration_minutes"`
	Temperature        *float64         `json:"temperature" yaml:"temperature"`
	TemperatureUnit    *TemperatureUnit `json:"temperature_unit" yaml:"temperature_unit"`
	Notes              *string          `json:"notes" yaml:"notes"`
	IngredientsForStep []string         `json:"ingredients_for_step" yaml:"ingredients_for_step"`
}

// ParsedRecipe 正規化後的完整食譜，Steps 依 Order 排序且第 0 步為備料
type ParsedRecipe struct {
	RecipeName            string             `json:"recipeName" yaml:"recipeName"`
	Description           string             `json:"description" yaml:"description"`
	Ingredients           []ParsedIngredient `json:"ingredients" yaml:"ingredients"`
	Steps                 []ParsedStep       `json:"steps" yaml:"steps"`
	TotalEstimatedMinutes float64            `json:"totalEstimatedMinutes" yaml:"totalEstimatedMinutes"`
	Servings              *string            `json:"servings" yaml:"servings"`
}

// RawRecipe 通過結構驗證、但欄位內容尚未整理的模型輸出。
// Ingredients 與 Steps 的元素保留解碼後的原始型別（通常是 map[string]any）。
type RawRecipe struct {
	RecipeName  string
	Description any
	Ingredients []any
	Steps       []any
	Servings    any
	// TotalEstimatedMinutes 僅供記錄，正規化時一律重新計算
	TotalEstimatedMinutes any
}
