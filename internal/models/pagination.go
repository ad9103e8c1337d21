package models

// Page wraps a slice of results with the total count across all pages.
type Page[T any] struct {
	Count   int64 `json:"count"`
	Results []T   `json:"results"`
}
