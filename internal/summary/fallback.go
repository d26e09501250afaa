package summary

import (
	"time"

	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
)

const fallbackTopN = 5

// Fallback builds a summary from facts and templates alone. It cannot fail
// and its output depends only on its arguments.
func Fallback(f Facts, t *Templates, now time.Time) Output {
	top := ""
	if len(f.TopTopics) > 0 {
		top = f.TopTopics[0].Label
	}

	topics := make([]Topic, 0, fallbackTopN)
	for _, a := range f.TopTopics {
		if len(topics) == fallbackTopN {
			break
		}
		w := a.TotalWeight
		topics = append(topics, Topic{
			Topic:     a.Label,
			Meaning:   t.TopicMeaning(a.Label),
			Platforms: []string{a.Platform},
			Weight:    &w,
		})
	}

	creators := make([]Creator, 0, fallbackTopN)
	for _, a := range f.TopCreators {
		if len(creators) == fallbackTopN {
			break
		}
		creators = append(creators, Creator{Name: a.Label, Platform: a.Platform, Why: t.CreatorWhy})
	}

	alerts := make([]Alert, 0, len(f.Alerts))
	for _, c := range f.Alerts {
		alerts = append(alerts, EnrichAlert(c, t))
	}

	return Output{
		ShortSummary: t.ShortSummary(top),
		TopTopics:    topics,
		TopCreators:  creators,
		Alerts:       alerts,
		Meta: Meta{
			GeneratedAt: now.UnixMilli(),
			AgeGroup:    f.AgeGroup,
			Location:    f.Location,
		},
	}
}

// EnrichAlert attaches the templated explanation and action to one candidate.
func EnrichAlert(c risk.Candidate, t *Templates) Alert {
	return Alert{
		Item:            c.Item,
		Category:        c.Category,
		Severity:        c.Severity,
		Explanation:     t.AlertExplanation(c.Category, c.Severity),
		SuggestedAction: t.SuggestedAction(c.Severity),
	}
}
