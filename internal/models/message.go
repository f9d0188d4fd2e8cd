package models

import "time"

// Message sources and categories used by the admin dashboard.
const (
	SourceContact   = "contact"
	SourcePortfolio = "portfolio"
	SourceBlog      = "blog"

	CategoryInquiry       = "inquiry"
	CategoryFeedback      = "feedback"
	CategoryCollaboration = "collaboration"
	CategorySupport       = "support"
)

// Message is a contact message submitted through the public contact form
// (or added by an admin).
type Message struct {
	ID       int64     `json:"id" bson:"id"`
	Name     string    `json:"name" bson:"name"`
	Email    string    `json:"email" bson:"email"`
	Subject  string    `json:"subject" bson:"subject"`
	Message  string    `json:"message" bson:"message"`
	Date     time.Time `json:"date" bson:"date"`
	Read     bool      `json:"read" bson:"read"`
	Source   string    `json:"source" bson:"source"`
	Category string    `json:"category" bson:"category"`
}

func (m *Message) EntityID() int64      { return m.ID }
func (m *Message) SetEntityID(id int64) { m.ID = id }
