package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ParseJSON 解析 JSON 字符串到結構體
func ParseJSON(data string, v interface{}) error {
	return decodeJSON(strings.NewReader(data), v)
}

// ParseJSONBytes 解析 JSON 位元組切片到結構體
func ParseJSONBytes(data []byte, v interface{}) error {
	return decodeJSON(bytes.NewReader(data), v)
}

func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

var (
	unquotedKeyPattern   = regexp.MustCompile(`([{\[,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)
)

// QuoteJSONKeys 將未加雙引號的鍵補上雙引號
func QuoteJSONKeys(raw string) string {
	return unquotedKeyPattern.ReplaceAllString(raw, `$1"$2":`)
}

// RemoveTrailingCommas 移除物件或陣列結尾多餘的逗號
func RemoveTrailingCommas(raw string) string {
	return trailingCommaPattern.ReplaceAllString(raw, `$1`)
}

// RepairJSON 修補模型常見的語法錯誤；只應在正常解析失敗後使用
func RepairJSON(raw string) string {
	return RemoveTrailingCommas(QuoteJSONKeys(raw))
}

// ExtractJSONObject 取第一個 { 到最後一個 } 之間的內容，找不到時原樣返回
func ExtractJSONObject(raw string) string {
	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start != -1 && end != -1 && end > start {
		return raw[start : end+1]
	}
	return raw
}
