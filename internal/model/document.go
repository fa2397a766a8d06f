package model

import "time"

// Document is an ingested study document
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`       // File name or URL it came from
	ContentType string    `json:"content_type"` // pdf, html, text
	ContentHash string    `json:"content_hash"` // sha256 of the raw bytes
	Text        string    `json:"text,omitempty"`
	WordCount   int       `json:"word_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Flashcard is a single question/answer study card
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// StudyPlan is a day-by-day plan for working through a document
type StudyPlan struct {
	DocumentID string         `json:"document_id"`
	Days       []StudyPlanDay `json:"days"`
}

// StudyPlanDay is one day of a StudyPlan
type StudyPlanDay struct {
	Day        int      `json:"day"`
	Focus      string   `json:"focus"`
	Activities []string `json:"activities"`
}

// Answer is a grounded response to a question about a document
type Answer struct {
	DocumentID string   `json:"document_id"`
	Question   string   `json:"question"`
	Text       string   `json:"answer"`
	Excerpts   []string `json:"excerpts,omitempty"` // Chunks the answer was grounded on
}
