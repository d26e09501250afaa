package summary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/noonaei/appsFlyer-hackathon/internal/signals"
	"github.com/noonaei/appsFlyer-hackathon/pkg/validation"
)

// Accepted ageGroup values.
var AgeGroups = []string{signals.Unknown, "6-8", "9-11", "12-14", "15-17"}

const (
	maxLocationLen     = 200
	maxCustomPromptLen = 2000

	minDeviceAge = 6
	maxDeviceAge = 17
)

// recordView is the typed shape of one history record. Absent and null
// fields pass; present ones must carry the JSON type the Normalizer reads.
type recordView struct {
	Platform        interface{} `json:"platform" validate:"omitnil,jsonstring"`
	Kind            interface{} `json:"kind" validate:"omitnil,jsonstring,oneofci=topic topics creator creators channel hashtag search search_term url url_visit"`
	Label           interface{} `json:"label" validate:"omitnil,jsonstring"`
	Topic           interface{} `json:"topic" validate:"omitnil,jsonstring"`
	Subreddit       interface{} `json:"subreddit" validate:"omitnil,jsonstring"`
	Hashtag         interface{} `json:"hashtag" validate:"omitnil,jsonstring"`
	Category        interface{} `json:"category" validate:"omitnil,jsonstring"`
	Creator         interface{} `json:"creator" validate:"omitnil,jsonstring"`
	Name            interface{} `json:"name" validate:"omitnil,jsonstring"`
	Channel         interface{} `json:"channel" validate:"omitnil,jsonstring"`
	OccurrenceCount interface{} `json:"occurrenceCount" validate:"omitnil,jsonnumber,numgte=1"`
	Count           interface{} `json:"count" validate:"omitnil,jsonnumber,numgte=1"`
	Weight          interface{} `json:"weight" validate:"omitnil,jsonnumber,numgte=1"`
}

func viewOf(r map[string]interface{}) recordView {
	return recordView{
		Platform:        r["platform"],
		Kind:            r["kind"],
		Label:           r["label"],
		Topic:           r["topic"],
		Subreddit:       r["subreddit"],
		Hashtag:         r["hashtag"],
		Category:        r["category"],
		Creator:         r["creator"],
		Name:            r["name"],
		Channel:         r["channel"],
		OccurrenceCount: r["occurrenceCount"],
		Count:           r["count"],
		Weight:          r["weight"],
	}
}

// requireLabel rejects a record that names no label under any alias.
func requireLabel(sl validator.StructLevel) {
	r := sl.Current().Interface().(recordView)
	for _, v := range []interface{}{r.Label, r.Topic, r.Subreddit, r.Hashtag, r.Category, r.Creator, r.Name, r.Channel} {
		if v != nil {
			return
		}
	}
	sl.ReportError(r.Label, "label", "Label", "required", "")
}

var recordValidator = func() *validation.Validator {
	v := validation.New()
	v.RegisterStructValidation(requireLabel, recordView{})
	return v
}()

// Request is a validated summary request.
type Request struct {
	History      []signals.Record
	AgeGroup     string
	Location     string
	CustomPrompt string
}

// ParseRequest decodes a request body. It accepts a bare array of records or
// an object {history, ageGroup?, deviceAge?, location?, customPrompt?}. A
// valid deviceAge replaces ageGroup. Every problem is
// reported in one pass; the error wraps ErrInputInvalid and a *validation.Error.
func ParseRequest(body []byte) (Request, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Request{}, invalid(validation.Violation{Path: []interface{}{}, Message: fmt.Sprintf("Malformed JSON: %v", err)})
	}
	if _, err := dec.Token(); err != io.EOF {
		return Request{}, invalid(validation.Violation{Path: []interface{}{}, Message: "Unexpected data after JSON value"})
	}

	req := Request{AgeGroup: signals.Unknown, Location: signals.Unknown}
	var violations []validation.Violation

	switch body := raw.(type) {
	case []interface{}:
		req.History, violations = parseHistory(body, nil)
	case map[string]interface{}:
		hist, ok := body["history"]
		switch h := hist.(type) {
		case []interface{}:
			req.History, violations = parseHistory(h, []interface{}{"history"})
		case nil:
			if ok {
				violations = append(violations, violation("Expected array, received null", "history"))
			} else {
				violations = append(violations, violation("Required", "history"))
			}
		default:
			violations = append(violations, violation(fmt.Sprintf("Expected array, received %s", validation.JSONType(h)), "history"))
		}

		if s, present, v := optionalString(body, "ageGroup"); v != nil {
			violations = append(violations, *v)
		} else if present {
			if !validAgeGroup(s) {
				violations = append(violations, violation(ageGroupMessage(s), "ageGroup"))
			} else {
				req.AgeGroup = s
			}
		}
		if group, present, v := deviceAge(body); v != nil {
			violations = append(violations, *v)
		} else if present {
			req.AgeGroup = group
		}
		if s, present, v := optionalString(body, "location"); v != nil {
			violations = append(violations, *v)
		} else if present {
			if utf8.RuneCountInString(s) > maxLocationLen {
				violations = append(violations, violation(fmt.Sprintf("must contain at most %d character(s)", maxLocationLen), "location"))
			} else if strings.TrimSpace(s) != "" {
				req.Location = s
			}
		}
		if s, present, v := optionalString(body, "customPrompt"); v != nil {
			violations = append(violations, *v)
		} else if present {
			if utf8.RuneCountInString(s) > maxCustomPromptLen {
				violations = append(violations, violation(fmt.Sprintf("must contain at most %d character(s)", maxCustomPromptLen), "customPrompt"))
			} else {
				req.CustomPrompt = s
			}
		}
	default:
		violations = append(violations, validation.Violation{Path: []interface{}{}, Message: fmt.Sprintf("Expected array or object, received %s", validation.JSONType(raw))})
	}

	if len(violations) > 0 {
		return Request{}, invalid(violations...)
	}
	return req, nil
}

func parseHistory(items []interface{}, prefix []interface{}) ([]signals.Record, []validation.Violation) {
	if len(items) == 0 {
		return nil, []validation.Violation{{Path: append([]interface{}{}, prefix...), Message: "must contain at least 1 item(s)"}}
	}
	out := make([]signals.Record, 0, len(items))
	var violations []validation.Violation
	for i, it := range items {
		path := append(append([]interface{}{}, prefix...), i)
		obj, ok := it.(map[string]interface{})
		if !ok {
			violations = append(violations, validation.Violation{Path: path, Message: fmt.Sprintf("Expected object, received %s", validation.JSONType(it))})
			continue
		}
		if err := recordValidator.Struct(viewOf(obj), path...); err != nil {
			vs, _ := validation.Violations(err)
			violations = append(violations, vs...)
			continue
		}
		out = append(out, signals.Record(obj))
	}
	return out, violations
}

// deviceAge reads the optional deviceAge field: an age group string or an
// age in years, mapped onto its group. Blank and null count as absent.
func deviceAge(body map[string]interface{}) (string, bool, *validation.Violation) {
	switch d := body["deviceAge"].(type) {
	case nil:
		return "", false, nil
	case string:
		if strings.TrimSpace(d) == "" {
			return "", false, nil
		}
		if !validAgeGroup(d) {
			vi := violation(ageGroupMessage(d), "deviceAge")
			return "", false, &vi
		}
		return d, true, nil
	case json.Number:
		years, err := d.Int64()
		if err != nil || years < minDeviceAge || years > maxDeviceAge {
			vi := violation(fmt.Sprintf("Number must be an integer between %d and %d", minDeviceAge, maxDeviceAge), "deviceAge")
			return "", false, &vi
		}
		return ageGroupOf(int(years)), true, nil
	default:
		vi := violation(fmt.Sprintf("Expected string or number, received %s", validation.JSONType(d)), "deviceAge")
		return "", false, &vi
	}
}

func ageGroupOf(years int) string {
	switch {
	case years <= 8:
		return "6-8"
	case years <= 11:
		return "9-11"
	case years <= 14:
		return "12-14"
	default:
		return "15-17"
	}
}

// optionalString reads an optional string field. A null value counts as absent.
func optionalString(body map[string]interface{}, field string) (string, bool, *validation.Violation) {
	v, ok := body[field]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		vi := violation(fmt.Sprintf("Expected string, received %s", validation.JSONType(v)), field)
		return "", false, &vi
	}
	return s, true, nil
}

func validAgeGroup(s string) bool {
	for _, g := range AgeGroups {
		if s == g {
			return true
		}
	}
	return false
}

func ageGroupMessage(received string) string {
	var b bytes.Buffer
	b.WriteString("Invalid enum value. Expected ")
	for i, g := range AgeGroups {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("'" + g + "'")
	}
	b.WriteString(", received '" + received + "'")
	return b.String()
}

func violation(msg string, path ...interface{}) validation.Violation {
	return validation.Violation{Path: path, Message: msg}
}

func invalid(v ...validation.Violation) error {
	return fmt.Errorf("%w: %w", ErrInputInvalid, validation.NewError(v...))
}
