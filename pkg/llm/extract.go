package llm

import (
	"regexp"
	"strings"
)

var fencedObject = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")

// ExtractJSON returns the JSON object inside a model response, tolerating
// markdown fences and surrounding prose. Text without an object is returned
// trimmed so the caller's decoder reports the failure.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if m := fencedObject.FindStringSubmatch(text); len(m) > 1 {
			return m[1]
		}
	}
	if !strings.HasPrefix(text, "{") {
		first, last := strings.Index(text, "{"), strings.LastIndex(text, "}")
		if first >= 0 && last > first {
			return text[first : last+1]
		}
	}
	return text
}
