package lingocache

import "strings"

// LanguageNames maps locale codes to human-readable names for display.
var LanguageNames = map[string]string{
	"ar_SA": "Arabic (Saudi Arabia)",
	"bg_BG": "Bulgarian (Bulgaria)",
	"bn_BD": "Bengali (Bangladesh)",
	"ca_ES": "Catalan (Spain)",
	"cs_CZ": "Czech (Czech Republic)",
	"da_DK": "Danish (Denmark)",
	"de_DE": "German (Germany)",
	"el_GR": "Greek (Greece)",
	"en_GB": "English (United Kingdom)",
	"en_US": "English (United States)",
	"es_ES": "Spanish (Spain)",
	"es_MX": "Spanish (Mexico)",
	"fa_IR": "Persian (Iran)",
	"fi_FI": "Finnish (Finland)",
	"fr_FR": "French (France)",
	"he_IL": "Hebrew (Israel)",
	"hi_IN": "Hindi (India)",
	"hr_HR": "Croatian (Croatia)",
	"hu_HU": "Hungarian (Hungary)",
	"id_ID": "Indonesian (Indonesia)",
	"it_IT": "Italian (Italy)",
	"ja_JP": "Japanese (Japan)",
	"ko_KR": "Korean (South Korea)",
	"lt_LT": "Lithuanian (Lithuania)",
	"lv_LV": "Latvian (Latvia)",
	"ms_MY": "Malay (Malaysia)",
	"nb_NO": "Norwegian Bokmål (Norway)",
	"nl_NL": "Dutch (Netherlands)",
	"pl_PL": "Polish (Poland)",
	"pt_BR": "Portuguese (Brazil)",
	"pt_PT": "Portuguese (Portugal)",
	"ro_RO": "Romanian (Romania)",
	"ru_RU": "Russian (Russia)",
	"sk_SK": "Slovak (Slovakia)",
	"sl_SI": "Slovenian (Slovenia)",
	"sr_RS": "Serbian (Serbia)",
	"sv_SE": "Swedish (Sweden)",
	"sw_KE": "Swahili (Kenya)",
	"th_TH": "Thai (Thailand)",
	"tl_PH": "Tagalog (Philippines)",
	"tr_TR": "Turkish (Turkey)",
	"uk_UA": "Ukrainian (Ukraine)",
	"ur_PK": "Urdu (Pakistan)",
	"vi_VN": "Vietnamese (Vietnam)",
	"zh_CN": "Chinese (Simplified)",
	"zh_TW": "Chinese (Traditional)",
}

// ShortCodeToLocale maps bare language codes to a canonical locale.
var ShortCodeToLocale = map[string]string{
	"ar": "ar_SA",
	"de": "de_DE",
	"en": "en_US",
	"es": "es_ES",
	"fr": "fr_FR",
	"he": "he_IL",
	"hi": "hi_IN",
	"it": "it_IT",
	"ja": "ja_JP",
	"ko": "ko_KR",
	"nl": "nl_NL",
	"pl": "pl_PL",
	"pt": "pt_BR",
	"ru": "ru_RU",
	"tr": "tr_TR",
	"vi": "vi_VN",
	"zh": "zh_CN",
}

// RTLLanguages lists base language codes written right to left.
var RTLLanguages = map[string]bool{
	"ar": true,
	"fa": true,
	"he": true,
	"ur": true,
}

// GetLanguageName returns the human-readable name for a language code.
// Falls back to the code itself if not found.
func GetLanguageName(langCode string) string {
	if name, ok := LanguageNames[langCode]; ok {
		return name
	}
	// Try expanding short code
	if locale, ok := ShortCodeToLocale[langCode]; ok {
		if name, ok := LanguageNames[locale]; ok {
			return name
		}
	}
	return langCode
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(langCode string) string {
	// Extract base language code (e.g., "ar" from "ar_SA")
	base := strings.Split(langCode, "_")[0]
	base = strings.ToLower(base)

	if RTLLanguages[base] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL returns true if the language uses right-to-left text direction.
func IsRTL(langCode string) bool {
	return GetDirection(langCode) == "rtl"
}

// NormalizeLocale converts a language code to the form used in cache keys
// (e.g., "es-ES" → "es_ES"). Surrounding whitespace is dropped.
func NormalizeLocale(langCode string) string {
	return strings.ReplaceAll(strings.TrimSpace(langCode), "-", "_")
}

// ToHTMLLang converts a locale code to HTML lang attribute format
// (e.g., "es_ES" → "es-ES").
func ToHTMLLang(langCode string) string {
	return strings.ReplaceAll(langCode, "_", "-")
}
