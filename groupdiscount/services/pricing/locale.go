package main

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// Variant é a variante de idioma usada na apresentação
type Variant int

const (
	VariantDefault Variant = iota
	VariantSimplified
	VariantTraditional
)

// Code devolve o código de locale da variante
func (v Variant) Code() string {
	switch v {
	case VariantSimplified:
		return "zh_CN"
	case VariantTraditional:
		return "zh_TW"
	default:
		return "en_US"
	}
}

// Tag devolve a tag BCP 47 da variante
func (v Variant) Tag() language.Tag {
	switch v {
	case VariantSimplified:
		return language.SimplifiedChinese
	case VariantTraditional:
		return language.TraditionalChinese
	default:
		return language.AmericanEnglish
	}
}

func (v Variant) IsChinese() bool {
	return v == VariantSimplified || v == VariantTraditional
}

var (
	traditionalMarkers = []string{
		"說", "時", "國", "會", "東", "語", "學", "關", "車", "書", "實", "點",
		"萬", "樣", "發", "經", "處", "產", "見", "號", "長", "親", "務", "熱",
	}
	simplifiedMarkers = []string{
		"说", "时", "国", "会", "东", "语", "学", "关", "车", "书", "实", "点",
		"万", "样", "发", "经", "处", "产", "见", "号", "长", "亲", "务", "热",
	}
	traditionalURLMarkers = []string{".tw", ".hk", "/tw/", "/hk/"}

	cjkPattern = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]`)
	pairLocale = regexp.MustCompile(`^[A-Za-z]{2}-[A-Za-z]{2}$`)
)

func normalizeHint(hint string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(hint)), "-", "_")
}

func hintVariant(hint string) Variant {
	switch normalizeHint(hint) {
	case "zh_tw", "tw", "zh_hk", "hk":
		return VariantTraditional
	case "zh", "zh_cn", "cn":
		return VariantSimplified
	}

	h := strings.TrimSpace(hint)
	if !strings.HasPrefix(strings.ToLower(h), "zh") {
		return VariantDefault
	}
	tag, err := language.Parse(strings.ReplaceAll(h, "_", "-"))
	if err != nil {
		return VariantSimplified
	}
	if script, _ := tag.Script(); script.String() == "Hant" {
		return VariantTraditional
	}
	return VariantSimplified
}

func isTraditionalLocale(locale string) bool {
	switch normalizeHint(locale) {
	case "zh_tw", "zh_hk":
		return true
	}
	return false
}

func containsAny(content string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(content, m) {
			return true
		}
	}
	return false
}

// IsChineseSite indica se o locale ou o conteúdo da loja são chineses
func IsChineseSite(locale, content string) bool {
	return strings.HasPrefix(normalizeHint(locale), "zh") || cjkPattern.MatchString(content)
}

// DetectVariant decide a variante de idioma. A dica explícita do cliente tem
// prioridade; sem ela, uma loja chinesa é tradicional quando o locale é zh_TW/zh_HK,
// quando o conteúdo tem caracteres tradicionais ou quando a URL aponta para .tw/.hk.
func DetectVariant(locale, content, hint string) Variant {
	if strings.TrimSpace(hint) != "" {
		return hintVariant(hint)
	}

	if !IsChineseSite(locale, content) {
		return VariantDefault
	}
	if isTraditionalLocale(locale) {
		return VariantTraditional
	}
	if containsAny(content, traditionalMarkers) {
		return VariantTraditional
	}
	if containsAny(content, simplifiedMarkers) {
		return VariantSimplified
	}
	if containsAny(strings.ToLower(content), traditionalURLMarkers) {
		return VariantTraditional
	}
	return VariantSimplified
}

var twoLetterLocales = map[string]string{
	"en": "en_US",
	"fr": "fr_FR",
	"de": "de_DE",
	"es": "es_ES",
	"it": "it_IT",
	"nl": "nl_NL",
	"pt": "pt_PT",
	"ru": "ru_RU",
	"zh": "zh_CN",
	"ja": "ja",
	"ar": "ar",
	"he": "he_IL",
}

// NormalizeLocale converte uma dica de idioma em locale (en -> en_US, pt-br -> pt_BR)
func NormalizeLocale(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return ""
	}

	switch normalizeHint(hint) {
	case "zh", "zh_cn", "cn":
		return "zh_CN"
	case "zh_tw", "tw", "zh_hk", "hk":
		return "zh_TW"
	}

	if len(hint) == 2 {
		if locale, ok := twoLetterLocales[strings.ToLower(hint)]; ok {
			return locale
		}
		return hint
	}

	if pairLocale.MatchString(hint) {
		parts := strings.SplitN(hint, "-", 2)
		return strings.ToLower(parts[0]) + "_" + strings.ToUpper(parts[1])
	}
	return hint
}
