package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noonaei/appsFlyer-hackathon/internal/aggregate"
	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
)

func TestTopicMeaning(t *testing.T) {
	he := TemplatesFor("he")
	cases := map[string]string{
		"#MinecraftBuilds": "תוכן סביב Minecraft: בנייה, הישרדות, מדריכים, שרתים ומודים. לרוב מדובר בגיימינג יצירתי.",
		"music video":      "תוכן מוזיקה: שירים, קליפים, רמיקסים וטרנדים. יכול לכלול גם אתגרים/ריקודים לפי הטרנדים.",
		"r/aww":            "קהילת Reddit (סאב-רדיט) בנושא מסוים. מומלץ לבדוק מה סוג הפוסטים שמופיעים שם.",
		"cooking":          "נושא/האשטג שמופיע בתוכן שנצרך. מומלץ לבדוק הקשר לפני הסקת מסקנות.",
	}
	for label, want := range cases {
		assert.Equal(t, want, he.TopicMeaning(label), label)
	}
}

func TestAlertTextsFallBackBySeverity(t *testing.T) {
	en := TemplatesFor("en")
	assert.Equal(t, en.AlertByCategory["drugs"], en.AlertExplanation("drugs", risk.SeverityLow))
	assert.Equal(t, "This may relate to sensitive content. Check the context.", en.AlertExplanation("pets", risk.SeverityHigh))
	assert.Equal(t, "This may be borderline content. Keep an eye on it.", en.AlertExplanation("pets", risk.SeverityMedium))
	assert.Equal(t, en.AlertDefault, en.AlertExplanation("pets", risk.SeverityLow))
	assert.Equal(t, en.ActionDefault, en.SuggestedAction(risk.SeverityLow))
	assert.Equal(t, "לשאול בסקרנות על הנושא ולוודא התאמה לגיל.", TemplatesFor("HE").SuggestedAction("unexpected"))
}

func TestFallbackShape(t *testing.T) {
	var topics, creators []aggregate.Aggregate
	for _, l := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		topics = append(topics, aggregate.Aggregate{Label: l, Platform: "youtube", TotalWeight: 2, Kind: "topic"})
		creators = append(creators, aggregate.Aggregate{Label: "creator-" + l, Platform: "twitch", TotalWeight: 1, Kind: "creator"})
	}
	f := Facts{
		AgeGroup:    "9-11",
		Location:    "unknown",
		TopTopics:   topics,
		TopCreators: creators,
		Alerts: []risk.Candidate{
			{Item: "a", Category: "gambling", Severity: risk.SeverityLow},
			{Item: "b", Category: "custom", Severity: risk.SeverityHigh},
		},
	}
	now := time.UnixMilli(1736672400000)
	out := Fallback(f, TemplatesFor("en"), now)

	assert.Equal(t, "Summary: most activity centered on a.", out.ShortSummary)
	assert.Len(t, out.TopTopics, 5)
	assert.Len(t, out.TopCreators, 5)
	assert.Equal(t, "Among the most-watched creators in this period.", out.TopCreators[0].Why)
	require.Len(t, out.Alerts, 2)
	assert.Equal(t, "This may relate to gambling or addictive content. Talk it over and agree on limits.", out.Alerts[0].Explanation)
	assert.Equal(t, "This may relate to sensitive content. Check the context.", out.Alerts[1].Explanation)
	assert.Equal(t, Meta{GeneratedAt: 1736672400000, AgeGroup: "9-11", Location: "unknown"}, out.Meta)
	assert.NoError(t, ValidateOutput(out))

	again := Fallback(f, TemplatesFor("en"), now)
	assert.Equal(t, out, again)
}

func TestValidateOutputRejectsBadShapes(t *testing.T) {
	good := Fallback(Facts{AgeGroup: "unknown", Location: "unknown", TopTopics: []aggregate.Aggregate{{Label: "x", Platform: "youtube", TotalWeight: 1}}}, TemplatesFor("en"), time.UnixMilli(1))
	require.NoError(t, ValidateOutput(good))

	cases := map[string]func(o *Output){
		"nil alerts":       func(o *Output) { o.Alerts = nil },
		"blank meaning":    func(o *Output) { o.TopTopics[0].Meaning = "" },
		"blank platform":   func(o *Output) { o.TopTopics[0].Platforms = []string{" "} },
		"bad severity":     func(o *Output) { o.Alerts = []Alert{{Item: "x", Category: "c", Severity: "extreme", Explanation: "e", SuggestedAction: "s"}} },
		"zero timestamp":   func(o *Output) { o.Meta.GeneratedAt = 0 },
		"empty interests":  func(o *Output) { o.Interests = &Interests{WhyItMatters: "w"} },
		"blank age group":  func(o *Output) { o.Meta.AgeGroup = "" },
		"zero topic count": func(o *Output) { w := 0; o.TopTopics[0].Weight = &w },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := good.Clone()
			mutate(&o)
			assert.ErrorIs(t, ValidateOutput(o), ErrContract)
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	w := 3
	o := Output{
		Interests: &Interests{Bullets: []string{"x"}, WhyItMatters: "y"},
		TopTopics: []Topic{{Topic: "t", Meaning: "m", Platforms: []string{"youtube"}, Weight: &w}},
	}
	c := o.Clone()
	c.Interests.Bullets[0] = "changed"
	c.TopTopics[0].Platforms[0] = "changed"
	*c.TopTopics[0].Weight = 9

	assert.Equal(t, "x", o.Interests.Bullets[0])
	assert.Equal(t, "youtube", o.TopTopics[0].Platforms[0])
	assert.Equal(t, 3, w)
	assert.NotNil(t, c.Alerts)
}
