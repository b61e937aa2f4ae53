package model

import "time"

// Movie is created once per distinct (title-cased) title.  Later
// add-film requests with the same title reuse the row.
type Movie struct {
    ID              uint64    `json:"id"`               // movies.id
    Title           string    `json:"title"`            // movies.title (unique)
    Description     string    `json:"description"`      // movies.description
    DurationMinutes int       `json:"duration_minutes"` // movies.duration_minutes
    CreatedAt       time.Time `json:"created_at"`       // movies.created_at
}
