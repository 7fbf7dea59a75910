package querysql

import "strings"

// SanitizeIdentifier keeps only ASCII letters, digits, and underscore,
// in their original order. Every shape key passes through it before it is
// embedded in SQL text.
func SanitizeIdentifier(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteByte(ch)
		}
	}
	return b.String()
}
