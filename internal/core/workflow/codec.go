package workflow

import "strings"

// Encode 將食材編碼為 "name: amount unit" 字串。
// amount 為空時仍保留冒號，讓 Decode 能還原。
func Encode(ing ParsedIngredient) string {
	if ing.Amount == "" && ing.Unit == "" {
		return ing.Name + ":"
	}
	s := ing.Name + ": " + ing.Amount
	if ing.Unit != "" {
		s += " " + ing.Unit
	}
	return s
}

// EncodeAll 依序編碼多個食材
func EncodeAll(ings []ParsedIngredient) []string {
	out := make([]string, 0, len(ings))
	for _, ing := range ings {
		out = append(out, Encode(ing))
	}
	return out
}

// Decode 解析編碼後的食材字串。
// 只以第一個冒號分隔；名稱本身含冒號時會失真，這是編碼格式的已知限制。
func Decode(raw string) ParsedIngredient {
	idx := strings.Index(raw, ":")
	if idx < 0 {
		return ParsedIngredient{Name: strings.TrimSpace(raw)}
	}

	name := strings.TrimSpace(raw[:idx])
	rest := strings.TrimRight(raw[idx+1:], " \t\r\n")
	rest = strings.TrimPrefix(rest, " ")

	amount, unit, found := strings.Cut(rest, " ")
	if !found {
		return ParsedIngredient{Name: name, Amount: amount}
	}
	return ParsedIngredient{Name: name, Amount: amount, Unit: strings.TrimSpace(unit)}
}
