// Package signals turns loosely-typed activity records into canonical Signals.
package signals

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
)

// Unknown is the sentinel used for missing platforms and labels.
const Unknown = "unknown"

// maxWeight keeps a single record from overflowing aggregate sums.
const maxWeight = math.MaxInt32

type Kind string

const (
	KindTopic   Kind = "topic"
	KindCreator Kind = "creator"
	KindHashtag Kind = "hashtag"
	KindSearch  Kind = "search"
	KindURL     Kind = "url"
)

var kindAliases = map[string]Kind{
	"topic":       KindTopic,
	"topics":      KindTopic,
	"creator":     KindCreator,
	"creators":    KindCreator,
	"channel":     KindCreator,
	"hashtag":     KindHashtag,
	"search":      KindSearch,
	"search_term": KindSearch,
	"url":         KindURL,
	"url_visit":   KindURL,
}

// KindNames lists every accepted kind spelling, sorted.
func KindNames() []string {
	names := make([]string, 0, len(kindAliases))
	for name := range kindAliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Record is one raw input record as decoded from JSON.
type Record map[string]interface{}

// Signal is a single normalized observation.
type Signal struct {
	Platform string
	Kind     Kind
	Label    string
	Weight   int
}

// Field aliases, evaluated in order; the first non-empty value wins.
var (
	labelFields   = []string{"label", "topic", "subreddit", "hashtag", "category", "creator", "name", "channel"}
	creatorFields = []string{"creator", "channel"}
	weightFields  = []string{"occurrenceCount", "count", "weight"}
)

// Normalize converts records to Signals, in input order. Records without a
// usable label are dropped. It never fails.
func Normalize(records []Record) []Signal {
	out := make([]Signal, 0, len(records))
	for _, r := range records {
		if s, ok := NormalizeRecord(r); ok {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeRecord reports false when the record has no usable label.
func NormalizeRecord(r Record) (Signal, bool) {
	if r == nil {
		return Signal{}, false
	}
	label := firstString(r, labelFields)
	if label == "" || strings.EqualFold(label, Unknown) {
		return Signal{}, false
	}

	platform := strings.ToLower(stringField(r, "platform"))
	if platform == "" {
		platform = Unknown
	}

	return Signal{
		Platform: platform,
		Kind:     resolveKind(r),
		Label:    label,
		Weight:   resolveWeight(r),
	}, true
}

func resolveKind(r Record) Kind {
	if k, ok := kindAliases[strings.ToLower(stringField(r, "kind"))]; ok {
		return k
	}
	if firstString(r, creatorFields) != "" {
		return KindCreator
	}
	return KindTopic
}

func resolveWeight(r Record) int {
	for _, field := range weightFields {
		f, ok := number(r[field])
		if !ok {
			continue
		}
		switch {
		case f < 1:
			return 1
		case f > maxWeight:
			return maxWeight
		default:
			return int(f)
		}
	}
	return 1
}

func number(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func firstString(r Record, fields []string) string {
	for _, f := range fields {
		if s := stringField(r, f); s != "" {
			return s
		}
	}
	return ""
}

func stringField(r Record, field string) string {
	s, _ := r[field].(string)
	return strings.TrimSpace(s)
}
