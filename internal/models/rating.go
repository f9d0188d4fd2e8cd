package models

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// Rating is a visitor's portfolio rating with an optional comment.
type Rating struct {
	ID      int64     `json:"id" bson:"id"`
	Rating  int       `json:"rating" bson:"rating"`
	Comment string    `json:"comment" bson:"comment"`
	Date    time.Time `json:"date" bson:"date"`
}

func (r *Rating) EntityID() int64      { return r.ID }
func (r *Rating) SetEntityID(id int64) { r.ID = id }
