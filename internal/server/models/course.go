package models

// Course is the part of the catalogue the account core reads.
type Course struct {
	ID        string
	Title     string
	PosterURL string
}
