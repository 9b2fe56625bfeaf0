package internal

import "strings"

// StringValue returns the trimmed value of s, or "" when s is nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// HasValue reports whether s is non-nil and not blank.
func HasValue(s *string) bool {
	return StringValue(s) != ""
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// TruncateRunes returns the first max runes of s. max <= 0 disables truncation.
func TruncateRunes(s string, max int) (string, bool) {
	if max <= 0 {
		return s, false
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}

// ChunkSlice splits items into consecutive chunks of at most size elements.
func ChunkSlice[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
