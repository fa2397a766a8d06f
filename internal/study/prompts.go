package study

import (
	"fmt"
	"strings"
)

const studySystemPrompt = "You are a study assistant. Use only the document text you are given. If the text does not contain the answer, say so."

// BuildSummaryPrompt asks for a summary of a document
func BuildSummaryPrompt(title, text string) string {
	return fmt.Sprintf(`Summarize the document "%s" in 5-8 bullet points followed by a one-sentence takeaway.

Document:
%s
`, title, text)
}

// BuildFlashcardPrompt asks for n flashcards as JSON
func BuildFlashcardPrompt(title, text string, n int) string {
	return fmt.Sprintf(`Create %d flashcards from the document "%s".
Each card tests one fact stated in the document. Keep answers under 40 words.

Return JSON only: {"flashcards": [{"question": "...", "answer": "..."}]}

Document:
%s
`, n, title, text)
}

// BuildStudyPlanPrompt asks for a day-by-day plan as JSON
func BuildStudyPlanPrompt(title, text string, days int) string {
	return fmt.Sprintf(`Create a %d-day study plan for the document "%s".
Each day has a focus topic from the document and 2-4 concrete activities.

Return JSON only: {"days": [{"day": 1, "focus": "...", "activities": ["..."]}]}

Document:
%s
`, days, title, text)
}

// BuildQuestionPrompt asks a question against numbered excerpts
func BuildQuestionPrompt(title, question string, excerpts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Answer the question using only these excerpts from \"%s\". Cite excerpt numbers like [1].\n\n", title)
	if len(excerpts) == 0 {
		b.WriteString("(no relevant excerpts were found)\n")
	}
	for i, e := range excerpts {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, e)
	}
	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}
