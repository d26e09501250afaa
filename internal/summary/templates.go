package summary

import (
	"fmt"
	"strings"

	"github.com/noonaei/appsFlyer-hackathon/internal/risk"
)

// TopicTemplate explains a topic whose lowercased label contains one of
// Contains, or starts with Prefix.
type TopicTemplate struct {
	Contains []string
	Prefix   string
	Text     string
}

func (t TopicTemplate) matches(label string) bool {
	if t.Prefix != "" && strings.HasPrefix(label, t.Prefix) {
		return true
	}
	for _, k := range t.Contains {
		if strings.Contains(label, k) {
			return true
		}
	}
	return false
}

// Templates holds the deterministic texts for one locale.
type Templates struct {
	Locale string
	// Language is the name passed to the generative service.
	Language string

	SummaryFormat  string
	GeneralContent string

	Topics       []TopicTemplate
	TopicDefault string
	CreatorWhy   string

	AlertByCategory map[string]string
	AlertBySeverity map[risk.Severity]string
	AlertDefault    string

	Actions       map[risk.Severity]string
	ActionDefault string
}

// ShortSummary references the top topic label, or a generic phrase.
func (t *Templates) ShortSummary(topLabel string) string {
	if strings.TrimSpace(topLabel) == "" {
		topLabel = t.GeneralContent
	}
	return fmt.Sprintf(t.SummaryFormat, topLabel)
}

func (t *Templates) TopicMeaning(label string) string {
	l := strings.ToLower(label)
	for _, tt := range t.Topics {
		if tt.matches(l) {
			return tt.Text
		}
	}
	return t.TopicDefault
}

// AlertExplanation prefers the category text and falls back to severity.
func (t *Templates) AlertExplanation(category string, sev risk.Severity) string {
	if s, ok := t.AlertByCategory[category]; ok {
		return s
	}
	if s, ok := t.AlertBySeverity[sev]; ok {
		return s
	}
	return t.AlertDefault
}

func (t *Templates) SuggestedAction(sev risk.Severity) string {
	if s, ok := t.Actions[sev]; ok {
		return s
	}
	return t.ActionDefault
}

// TemplatesFor returns the table for locale; anything but "he" is English.
func TemplatesFor(locale string) *Templates {
	if strings.EqualFold(locale, "he") {
		return &hebrew
	}
	return &english
}

var english = Templates{
	Locale:         "en",
	Language:       "English",
	SummaryFormat:  "Summary: most activity centered on %s.",
	GeneralContent: "general content",
	Topics: []TopicTemplate{
		{Contains: []string{"minecraft"}, Text: "Minecraft content: building, survival, guides, servers and mods. Usually creative gaming."},
		{Contains: []string{"music"}, Text: "Music content: songs, clips, remixes and trends. May include trend-driven challenges or dances."},
		{Contains: []string{"gaming"}, Text: "Gaming content: gameplay videos, reviews, guides, streaming and communities around popular games."},
		{Prefix: "r/", Text: "A Reddit community (subreddit) on a specific subject. Worth checking what kind of posts appear there."},
	},
	TopicDefault: "A topic or hashtag that appeared in the content viewed. Check the context before drawing conclusions.",
	CreatorWhy:   "Among the most-watched creators in this period.",
	AlertByCategory: map[string]string{
		"self_harm":       "This may relate to distress or self-harm. Check the context and do not draw conclusions from the term alone.",
		"sexual_content":  "This may relate to sexual or age-inappropriate content. Check the context in which it appeared.",
		"drugs":           "This may relate to talk about drugs. Find out the context and notice whether it comes up again.",
		"violence":        "This may relate to violent or extreme content. Check the context and make sure it suits their age.",
		"gambling":        "This may relate to gambling or addictive content. Talk it over and agree on limits.",
		"hate_harassment": "This may relate to incitement or harassment. Check the context and talk about safe, respectful language.",
	},
	AlertBySeverity: map[risk.Severity]string{
		risk.SeverityHigh:   "This may relate to sensitive content. Check the context.",
		risk.SeverityMedium: "This may be borderline content. Keep an eye on it.",
	},
	AlertDefault: "A subject that deserves attention depending on context.",
	Actions: map[risk.Severity]string{
		risk.SeverityHigh:   "A calm, curious conversation and a shared look at the content and its source. If there is a real concern, reach out to a professional.",
		risk.SeverityMedium: "Ask what it means to them and check the context in which it appeared. Notice whether it comes up again.",
	},
	ActionDefault: "Ask about the subject with curiosity and make sure it suits their age.",
}

var hebrew = Templates{
	Locale:         "he",
	Language:       "Hebrew",
	SummaryFormat:  "סיכום: עיקר הפעילות סביב %s.",
	GeneralContent: "תכנים כלליים",
	Topics: []TopicTemplate{
		{Contains: []string{"minecraft"}, Text: "תוכן סביב Minecraft: בנייה, הישרדות, מדריכים, שרתים ומודים. לרוב מדובר בגיימינג יצירתי."},
		{Contains: []string{"music"}, Text: "תוכן מוזיקה: שירים, קליפים, רמיקסים וטרנדים. יכול לכלול גם אתגרים/ריקודים לפי הטרנדים."},
		{Contains: []string{"gaming"}, Text: "תוכן גיימינג: סרטוני משחק, ביקורות, מדריכים, סטרימינג וקהילות סביב משחקים פופולריים."},
		{Prefix: "r/", Text: "קהילת Reddit (סאב-רדיט) בנושא מסוים. מומלץ לבדוק מה סוג הפוסטים שמופיעים שם."},
	},
	TopicDefault: "נושא/האשטג שמופיע בתוכן שנצרך. מומלץ לבדוק הקשר לפני הסקת מסקנות.",
	CreatorWhy:   "נמצא בין היוצרים הנצפים ביותר בתקופה.",
	AlertByCategory: map[string]string{
		"self_harm":       "ייתכן שזה קשור למצוקה או פגיעה עצמית. חשוב לבדוק הקשר ולא להסיק מסקנות רק מהמונח.",
		"sexual_content":  "ייתכן שזה קשור לתוכן מיני/לא מתאים לגיל. מומלץ לבדוק באיזה הקשר זה הופיע.",
		"drugs":           "ייתכן שזה קשור לשיח על סמים. מומלץ לברר הקשר ולשים לב אם זה חוזר.",
		"violence":        "ייתכן שזה קשור לתוכן אלים/קיצוני. מומלץ לבדוק הקשר ולוודא התאמה לגיל.",
		"gambling":        "ייתכן שזה קשור להימורים/תוכן ממכר. מומלץ לשוחח ולוודא גבולות.",
		"hate_harassment": "ייתכן שזה קשור להסתה/הטרדה. מומלץ לבדוק הקשר ולשוחח על שפה בטוחה ומכבדת.",
	},
	AlertBySeverity: map[risk.Severity]string{
		risk.SeverityHigh:   "ייתכן שזה קשור לתוכן רגיש. מומלץ לבדוק הקשר.",
		risk.SeverityMedium: "עשוי להיות תוכן גבולי. מומלץ לעקוב.",
	},
	AlertDefault: "נושא שדורש תשומת לב בהתאם להקשר.",
	Actions: map[risk.Severity]string{
		risk.SeverityHigh:   "שיחה רגועה ושואלת, ובדיקה משותפת של התוכן/המקור. אם יש חשש ממשי — פנייה לגורם מקצועי.",
		risk.SeverityMedium: "לשאול מה זה אומר עבורם ולבדוק באיזה הקשר זה הופיע. לעקוב האם זה חוזר.",
	},
	ActionDefault: "לשאול בסקרנות על הנושא ולוודא התאמה לגיל.",
}
