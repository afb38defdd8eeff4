package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestDetectVariant(t *testing.T) {
	tests := []struct {
		name    string
		locale  string
		content string
		hint    string
		want    Variant
	}{
		{"hint tw", "en_US", "", "tw", VariantTraditional},
		{"hint zh-hk", "en_US", "", "zh-hk", VariantTraditional},
		{"hint cn", "zh_TW", "", "cn", VariantSimplified},
		{"hint bcp47 hant", "en_US", "", "zh-Hant-MO", VariantTraditional},
		{"hint bcp47 singapore", "en_US", "", "zh-SG", VariantSimplified},
		{"hint english wins over chinese site", "zh_TW", "團購", "en", VariantDefault},
		{"locale zh_TW", "zh_TW", "", "", VariantTraditional},
		{"locale zh-HK", "zh-HK", "", "", VariantTraditional},
		{"locale zh_CN with traditional content", "zh_CN", "好東西", "", VariantTraditional},
		{"locale zh_CN plain", "zh_CN", "", "", VariantSimplified},
		{"simplified markers", "en_US", "好东西 商店", "", VariantSimplified},
		{"chinese chars with tw url", "en_US", "团购 https://shop.example.tw", "", VariantTraditional},
		{"chinese chars without markers", "en_US", "团购", "", VariantSimplified},
		{"tw url alone is not a chinese site", "en_US", "https://shop.example.tw", "", VariantDefault},
		{"english site", "en_US", "Group buying", "", VariantDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectVariant(tt.locale, tt.content, tt.hint))
		})
	}
}

func TestVariant_CodeAndTag(t *testing.T) {
	assert.Equal(t, "zh_TW", VariantTraditional.Code())
	assert.Equal(t, "zh_CN", VariantSimplified.Code())
	assert.Equal(t, "en_US", VariantDefault.Code())
	assert.Equal(t, language.TraditionalChinese, VariantTraditional.Tag())
	assert.True(t, VariantSimplified.IsChinese())
	assert.False(t, VariantDefault.IsChinese())
}

func TestNormalizeLocale(t *testing.T) {
	tests := map[string]string{
		"":      "",
		"en":    "en_US",
		"FR":    "fr_FR",
		"he":    "he_IL",
		"ja":    "ja",
		"xx":    "xx",
		"zh":    "zh_CN",
		"tw":    "zh_TW",
		"zh-HK": "zh_TW",
		"pt-br": "pt_BR",
		"en_GB": "en_GB",
	}

	for in, want := range tests {
		assert.Equal(t, want, NormalizeLocale(in), in)
	}
}
