package i18n

import "strings"

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "section" or "expected_type").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator. Templates use
// {key} placeholders filled from data; missing keys are left as-is.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		"malformed_input":     "input is not well-formed markup",
		"truncated":           "input exceeds {max_bytes} bytes",
		"read_failed":         "input could not be read",
		"missing_section":     "entry has no <{section}> section",
		"schema_mismatch":     "{schema} does not match its layout",
		"field_decode":        "cannot decode {token} as {expected_type}",
		"invariant_violation": "histogram violates the {kind} invariant",
	},
	"ja": {
		"malformed_input":     "入力が整形式のマークアップではありません",
		"truncated":           "入力が {max_bytes} バイトを超えています",
		"read_failed":         "入力を読み込めません",
		"missing_section":     "<{section}> セクションがありません",
		"schema_mismatch":     "{schema} のレイアウトが一致しません",
		"field_decode":        "{token} を {expected_type} として解釈できません",
		"invariant_violation": "{kind} 不変条件に違反しています",
	},
}

// details are appended to schema_mismatch messages depending on which
// counts are present.
var details = map[string]map[string]string{
	"en": {
		"rows":     " ({actual_rows} rows, expected {expected_rows})",
		"min_rows": " ({actual_rows} rows, expected at least {min_rows})",
		"columns":  " ({actual_columns} columns, expected {expected_columns})",
	},
	"ja": {
		"rows":     "（{actual_rows} 行、期待値 {expected_rows}）",
		"min_rows": "（{actual_rows} 行、最小 {min_rows}）",
		"columns":  "（{actual_columns} 列、期待値 {expected_columns}）",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	tmpl, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	if code == "schema_mismatch" {
		switch {
		case data["expected_rows"] != "":
			tmpl += details[t.lang]["rows"]
		case data["min_rows"] != "":
			tmpl += details[t.lang]["min_rows"]
		case data["expected_columns"] != "":
			tmpl += details[t.lang]["columns"]
		}
	}
	return fill(tmpl, data)
}

func fill(tmpl string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
