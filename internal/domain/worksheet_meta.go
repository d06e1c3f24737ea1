package domain

import "time"

// WorksheetMeta is the index row stored for every generated worksheet.
type WorksheetMeta struct {
	ID            string    `json:"id"`
	Child         string    `json:"child"`
	Title         string    `json:"title"`
	HTMLPath      string    `json:"html_path"`
	PDFPath       string    `json:"pdf_path,omitempty"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}
