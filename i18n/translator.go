package i18n

import "strings"

// Translator retrieves localized messages for error codes.
// data provides optional metadata to embed in the message (for example, "field").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	var msg string
	switch t.lang {
	case "ja":
		switch code {
		case "required":
			msg = "必須プロパティが不足しています"
		case "validation":
			msg = "値が不正です"
		case "not_found":
			msg = "見つかりません"
		case "storage":
			msg = "ストレージエラー"
		}
	default: // "en"
		switch code {
		case "required":
			msg = "required property missing"
		case "validation":
			msg = "invalid value"
		case "not_found":
			msg = "not found"
		case "storage":
			msg = "storage failure"
		}
	}
	if msg == "" {
		return code
	}
	if f := data["field"]; f != "" {
		return strings.Join([]string{f, msg}, ": ")
	}
	return msg
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
