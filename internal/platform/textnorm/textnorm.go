package textnorm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// 全角英数・合成文字を NFKC で揃えてから比較用に正規化する

// Email は保存・照合用のメールアドレス表現（NFKC + 小文字化）
func Email(s string) string {
	return cases.Lower(language.Und).String(norm.NFKC.String(strings.TrimSpace(s)))
}

// Name trims and NFKC-normalises a display name.
func Name(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// Fold returns the case-folded form used for substring search.
func Fold(s string) string {
	return cases.Fold().String(Name(s))
}

// Contains reports whether needle occurs in haystack after folding both.
func Contains(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}
