// backend/utils/channels.go
package utils

import "strings"

// NormalizeChannelCode trims and upper-cases a channel cell so "  iNews " matches "INEWS".
func NormalizeChannelCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ChannelSet builds a lookup of normalized channel codes.
func ChannelSet(codes []string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[NormalizeChannelCode(c)] = true
	}
	return set
}

// SameProgram compares two program names trimmed and case-insensitively.
func SameProgram(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
