package popularity

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	LocaleKorean  = "ko"
	LocaleEnglish = "en"
)

var (
	supportedLocales = []language.Tag{language.Korean, language.English}
	localeMatcher    = language.NewMatcher(supportedLocales)
)

// ResolveLocale maps a locale string or an Accept-Language value to "en" or "ko". Anything that
// does not match English resolves to Korean.
func ResolveLocale(locale string) string {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return LocaleKorean
	}
	_, idx, confidence := localeMatcher.Match(tags...)
	if confidence == language.No || supportedLocales[idx] != language.English {
		return LocaleKorean
	}
	return LocaleEnglish
}

func printerFor(locale string) *message.Printer {
	if locale == LocaleEnglish {
		return message.NewPrinter(language.English)
	}
	return message.NewPrinter(language.Korean)
}

// FormatCount renders n with the locale's thousands separators.
func FormatCount(n int, locale string) string {
	return printerFor(ResolveLocale(locale)).Sprintf("%d", n)
}

type localized struct {
	ko string
	en string
}

func (l localized) in(locale string) string {
	if locale == LocaleEnglish {
		return l.en
	}
	return l.ko
}

var (
	titleLabel       = localized{ko: "인기지수", en: "Popularity Index"}
	overallLabel     = localized{ko: "종합 점수", en: "Overall Score"}
	naverLabel       = localized{ko: "네이버 평점", en: "Naver Rating"}
	googleLabel      = localized{ko: "구글 평점", en: "Google Rating"}
	reviewsUnitLabel = localized{ko: "리뷰", en: "reviews"}
)
