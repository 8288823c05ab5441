package models

import "github.com/dmitrijs2005/coursesell/internal/common"

// PlaylistItem references a course together with a cached poster URL.
type PlaylistItem struct {
	CourseID string `json:"course"`
	Poster   string `json:"poster"`
}

// Playlist is an ordered set of courses; a course appears at most once.
type Playlist []PlaylistItem

func (p Playlist) Contains(courseID string) bool {
	for _, item := range p {
		if item.CourseID == courseID {
			return true
		}
	}
	return false
}

// Add appends item, or returns common.ErrPlaylistDuplicate when the course
// is already present.
func (p Playlist) Add(item PlaylistItem) (Playlist, error) {
	if p.Contains(item.CourseID) {
		return p, common.ErrPlaylistDuplicate
	}
	return append(p, item), nil
}

// Remove drops the course if present. Removing an absent course is a no-op.
func (p Playlist) Remove(courseID string) Playlist {
	out := make(Playlist, 0, len(p))
	for _, item := range p {
		if item.CourseID != courseID {
			out = append(out, item)
		}
	}
	return out
}
