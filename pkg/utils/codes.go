package utils

import "strings"

// ParseCodes splits a comma separated list of carrier or airport codes,
// upper-casing and dropping blanks. An empty input yields nil.
func ParseCodes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var codes []string
	for _, part := range strings.Split(s, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// ContainsCode reports whether code is in codes.
func ContainsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
