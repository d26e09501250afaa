package popular

import (
	"fmt"
	"strings"
)

// Prompt asks for the digest in the locale's language.
func Prompt(age int, locale, region string) string {
	language, focus := "English", ""
	if strings.EqualFold(locale, "he") {
		language = "Hebrew"
		focus = "\nFocus specifically on the Israeli context and Hebrew content where relevant.\n"
	}
	return fmt.Sprintf(`You are an expert on youth culture and digital trends in %[2]s.

Generate a comprehensive summary of what's currently popular among %[1]d-year-olds in %[2]s right now.

Include:
- Popular social media platforms and trends
- Trending music, artists, and songs
- Popular TV shows, movies, and YouTube channels
- Gaming trends and popular games
- Fashion and lifestyle trends
- Popular apps and digital tools
- Current events or topics they're discussing
%[3]s
Respond in %[4]s.

Format your response as JSON with this structure:
{
  "socialMedia": ["list of popular platforms and trends"],
  "entertainment": ["popular shows, movies, music"],
  "gaming": ["popular games and gaming trends"],
  "lifestyle": ["fashion, apps, lifestyle trends"],
  "topics": ["current discussion topics"],
  "summary": "brief overview in %[4]s"
}`, age, region, focus, language)
}

// Fallback is the static digest served when generation is unavailable.
func Fallback(age int, locale, region string) Content {
	if strings.EqualFold(locale, "he") {
		return Content{
			SocialMedia:   []string{"TikTok", "Instagram", "Snapchat"},
			Entertainment: []string{"נטפליקס", "יוטיוב", "ספוטיפיי"},
			Gaming:        []string{"פורטנייט", "רובלוקס", "מיינקראפט"},
			Lifestyle:     []string{"אפליקציות אופנה", "אפליקציות כושר"},
			Topics:        []string{"בית ספר", "חברים", "תחביבים"},
			Summary:       fmt.Sprintf("תוכן פופולרי בקרב בני %d בישראל כולל רשתות חברתיות, משחקים ובידור דיגיטלי.", age),
		}
	}
	return Content{
		SocialMedia:   []string{"TikTok", "Instagram", "Snapchat"},
		Entertainment: []string{"Netflix", "YouTube", "Spotify"},
		Gaming:        []string{"Fortnite", "Roblox", "Minecraft"},
		Lifestyle:     []string{"Fashion apps", "Fitness apps"},
		Topics:        []string{"School", "Friends", "Hobbies"},
		Summary:       fmt.Sprintf("Popular content among %d-year-olds in %s includes social media, games and digital entertainment.", age, region),
	}
}
