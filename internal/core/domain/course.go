package domain

import (
	"strings"
	"time"
)

type CourseID string

type LectureID string

type Lecture struct {
	ID          LectureID `json:"_id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Video       MediaRef  `json:"video" bson:"video"`
}

type Course struct {
	ID          CourseID  `json:"_id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Category    string    `json:"category" bson:"category"`
	CreatedBy   string    `json:"createdBy" bson:"created_by"`
	Poster      MediaRef  `json:"poster" bson:"poster"`
	Lectures    []Lecture `json:"lectures,omitempty" bson:"lectures"`
	Views       int64     `json:"views" bson:"views"`
	NumOfVideos int       `json:"numOfVideos" bson:"num_of_videos"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	Version     int64     `json:"-" bson:"version"`
}

// CourseFilter holds case-insensitive substring patterns; empty matches everything.
type CourseFilter struct {
	Keyword  string
	Category string
}

func (f CourseFilter) Matches(c *Course) bool {
	return containsFold(c.Title, f.Keyword) && containsFold(c.Category, f.Category)
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// FindLecture returns the lecture with the given id, or nil.
func (c *Course) FindLecture(id LectureID) *Lecture {
	for i := range c.Lectures {
		if c.Lectures[i].ID == id {
			return &c.Lectures[i]
		}
	}
	return nil
}

// AppendLecture adds a lecture and keeps NumOfVideos in sync.
func (c *Course) AppendLecture(l Lecture) {
	c.Lectures = append(c.Lectures, l)
	c.NumOfVideos = len(c.Lectures)
}

// RemoveLecture filters the lecture out and keeps NumOfVideos in sync.
func (c *Course) RemoveLecture(id LectureID) {
	kept := make([]Lecture, 0, len(c.Lectures))
	for _, l := range c.Lectures {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	c.Lectures = kept
	c.NumOfVideos = len(kept)
}

// Summary returns a copy without lecture bodies, as served by catalog search.
func (c *Course) Summary() *Course {
	s := *c
	s.Lectures = nil
	return &s
}

func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Lectures != nil {
		cp.Lectures = append([]Lecture(nil), c.Lectures...)
	}
	return &cp
}
