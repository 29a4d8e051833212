package feed

import "strings"

const maxTopics = 5

type topicKeywords struct {
	topic    string
	keywords []string
}

var topicTable = []topicKeywords{
	{"ai", []string{"ai", "artificial intelligence", "machine learning", "llm", "gpt", "claude", "neural"}},
	{"startups", []string{"startup", "founder", "bootstrapped", "indie", "saas", "mvp", "launch"}},
	{"web-dev", []string{"javascript", "typescript", "react", "vue", "nextjs", "node", "web dev", "frontend", "backend", "fullstack"}},
	{"design", []string{"design", "ui", "ux", "figma", "typography", "branding", "visual"}},
	{"marketing", []string{"marketing", "seo", "growth", "content marketing", "copywriting", "conversion"}},
	{"crypto", []string{"crypto", "blockchain", "web3", "ethereum", "bitcoin", "defi", "nft"}},
	{"productivity", []string{"productivity", "workflow", "habits", "systems", "notion", "obsidian"}},
	{"writing", []string{"writing", "blogging", "newsletter", "essay", "storytelling", "prose"}},
	{"career", []string{"career", "job", "interview", "resume", "remote work", "freelance"}},
	{"health", []string{"health", "fitness", "mental health", "wellness", "meditation", "exercise"}},
	{"finance", []string{"finance", "investing", "money", "budget", "financial", "stocks"}},
	{"cloudflare", []string{"cloudflare", "workers", "d1", "r2", "pages", "wrangler"}},
	{"open_source", []string{"open source", "open-source", "oss", "github", "contribution"}},
	{"community", []string{"community", "meetup", "conference", "networking", "collaboration"}},
}

// ClassifyTopics returns up to five topic slugs whose keywords occur in the
// title or excerpt, in table order.
func ClassifyTopics(title, excerpt string) []string {
	text := strings.ToLower(title + " " + excerpt)
	matched := make([]string, 0, maxTopics)

	for _, entry := range topicTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(text, keyword) {
				matched = append(matched, entry.topic)
				break
			}
		}
		if len(matched) == maxTopics {
			break
		}
	}

	return matched
}
