package summary

import (
	"fmt"

	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
	"github.com/noonaei/appsFlyer-hackathon/pkg/validation"
)

// SchemaTag versions the output contract inside cache keys.
const SchemaTag = "SummaryOutput:v1"

type Topic struct {
	Topic     string   `json:"topic" validate:"notblank"`
	Meaning   string   `json:"meaning" validate:"notblank"`
	Platforms []string `json:"platforms" validate:"required,dive,notblank"`
	Weight    *int     `json:"weight,omitempty" validate:"omitempty,gte=1"`
}

type Creator struct {
	Name     string `json:"name" validate:"notblank"`
	Platform string `json:"platform" validate:"notblank"`
	Why      string `json:"why" validate:"notblank"`
}

type Alert struct {
	Item            string        `json:"item" validate:"notblank"`
	Category        string        `json:"category" validate:"notblank"`
	Severity        risk.Severity `json:"severity" validate:"oneof=low medium high"`
	Explanation     string        `json:"explanation" validate:"notblank"`
	SuggestedAction string        `json:"suggestedAction" validate:"notblank"`
}

// Interests is an optional narrative block some generators add.
type Interests struct {
	Bullets      []string `json:"bullets" validate:"required,min=1,dive,notblank"`
	WhyItMatters string   `json:"whyItMatters" validate:"notblank"`
	TimeContext  string   `json:"timeContext,omitempty" validate:"omitempty,notblank"`
}

type Meta struct {
	GeneratedAt int64  `json:"generatedAt" validate:"gt=0"`
	AgeGroup    string `json:"ageGroup" validate:"notblank"`
	Location    string `json:"location" validate:"notblank"`
}

// Output is the parent-facing summary.
type Output struct {
	ShortSummary string     `json:"shortSummary" validate:"notblank"`
	Interests    *Interests `json:"interests,omitempty" validate:"omitempty"`
	TopTopics    []Topic    `json:"topTopics" validate:"required,dive"`
	TopCreators  []Creator  `json:"topCreators" validate:"required,dive"`
	Alerts       []Alert    `json:"alerts" validate:"required,dive"`
	Meta         Meta       `json:"meta"`
}

// Clone returns a deep copy.
func (o Output) Clone() Output {
	out := o
	if o.Interests != nil {
		in := *o.Interests
		in.Bullets = append([]string(nil), o.Interests.Bullets...)
		out.Interests = &in
	}
	out.TopTopics = make([]Topic, len(o.TopTopics))
	for i, t := range o.TopTopics {
		t.Platforms = append(make([]string, 0, len(t.Platforms)), t.Platforms...)
		if t.Weight != nil {
			w := *t.Weight
			t.Weight = &w
		}
		out.TopTopics[i] = t
	}
	out.TopCreators = append(make([]Creator, 0, len(o.TopCreators)), o.TopCreators...)
	out.Alerts = append(make([]Alert, 0, len(o.Alerts)), o.Alerts...)
	return out
}

var contract = validation.New()

// ValidateOutput checks o against the output contract without modifying it.
func ValidateOutput(o Output) error {
	if err := contract.Struct(o); err != nil {
		return fmt.Errorf("%w: %w", ErrContract, err)
	}
	return nil
}
