package utils

import (
	"strings"
	"unicode"
)

func CapitalizeFirst(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	return string(unicode.ToUpper(r[0])) + string(r[1:])
}

// DisplayTier turns "SILVER" into "Silver".
func DisplayTier(tier string) string {
	return CapitalizeFirst(strings.ToLower(tier))
}
