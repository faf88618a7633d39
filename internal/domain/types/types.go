// Package types contains common types used across the application
package types

// ItemView is the read shape of one submitted item.
type ItemView struct {
	ID          int     `json:"id"`
	Host        string  `json:"host"`
	Owner       string  `json:"owner,omitempty"`
	Repo        string  `json:"repo,omitempty"`
	URL         string  `json:"url,omitempty"`
	Description string  `json:"description"`
	Votes       int     `json:"votes"`
	SubmittedAt float64 `json:"submitted_at"`
	Score       float64 `json:"score"`
}

// Submission is a request to add a new item.
type Submission struct {
	Host        string `json:"host"`
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	Description string `json:"description"`
}
