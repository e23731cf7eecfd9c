package recommendation

import (
	"fmt"
	"strings"

	"github.com/redmonkez12/diary-api/internal/diary"
)

const systemPrompt = `You are a warm, practical wellbeing coach reading a person's private diary.
Suggest one concrete thing they could do today, in two to four sentences.
Ground the suggestion in what they wrote, do not diagnose, and do not repeat earlier suggestions.
Reply with the suggestion only. Markdown emphasis is allowed.`

const generalPrompt = `The person has not written any diary entries recently.
Suggest one small, general activity that supports wellbeing and could be done today.`

// maxEntryChars keeps a single long entry from crowding out the others
const maxEntryChars = 1500

func buildUserPrompt(entries []*diary.Entry, previous []*Recommendation) string {
	var b strings.Builder

	if len(entries) == 0 {
		b.WriteString(generalPrompt)
	} else {
		b.WriteString("Recent diary entries, newest first:\n")
		for _, e := range entries {
			fmt.Fprintf(&b, "\n[%s] %s", e.CreatedAt.Format("2006-01-02"), e.Title)
			if e.Mood != "" {
				fmt.Fprintf(&b, " (mood: %s)", e.Mood)
			}
			b.WriteString("\n")
			b.WriteString(truncate(e.Content, maxEntryChars))
			b.WriteString("\n")
		}
	}

	if len(previous) > 0 {
		b.WriteString("\nEarlier suggestions to avoid repeating:\n")
		for _, p := range previous {
			fmt.Fprintf(&b, "- %s\n", strings.ReplaceAll(p.Text, "\n", " "))
		}
	}

	return b.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
