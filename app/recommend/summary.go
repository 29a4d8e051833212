package recommend

import (
	"fmt"
	"strings"
)

var intentTones = map[Intent]string{
	IntentLatest:        "latest",
	IntentLearn:         "learning-focused",
	IntentEntertainment: "entertainment-focused",
	IntentGeneral:       "focused",
}

func buildSummary(prompt string, recs []Recommendation, intent Intent, days int, refreshed, needsRefresh bool) string {
	if len(recs) == 0 {
		if needsRefresh {
			return "I could not find strong matches for \"" + prompt + "\" yet. I am simmering your sources now and will update with fresher results."
		}
		return "I could not find strong matches for \"" + prompt + "\" in your soup right now."
	}

	lead := recs[0]

	var next []string
	for _, rec := range recs[1:min(3, len(recs))] {
		next = append(next, rec.Title)
	}
	secondary := "no additional strong matches yet"
	if len(next) > 0 {
		secondary = strings.Join(next, " | ")
	}

	refreshNote := ""
	switch {
	case refreshed:
		refreshNote = " Refreshed with newly ingested content."
	case needsRefresh:
		refreshNote = " I am simmering for newer matches in parallel."
	}

	return fmt.Sprintf("Here is a concise %s pass for the last %d days: start with \"%s\" from %s. Next best: %s.%s",
		intentTones[intent], days, lead.Title, lead.CreatorName, secondary, refreshNote)
}
