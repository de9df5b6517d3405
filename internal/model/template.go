package model

import (
	"time"
)

// EmailTemplate represents an authored marketing email.
// Content is stored with inline images already extracted to media files:
// the persisted HTML references public URLs, never base64 data URIs.
type EmailTemplate struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
