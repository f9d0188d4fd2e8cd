package models

const (
	PostDraft     = "Draft"
	PostPublished = "Published"
)

// BlogPost is a blog entry managed from the admin dashboard. Date is kept as
// the string the editor entered (usually YYYY-MM-DD).
type BlogPost struct {
	ID      int64  `json:"id" bson:"id"`
	Title   string `json:"title" bson:"title"`
	Date    string `json:"date" bson:"date"`
	Status  string `json:"status" bson:"status"`
	Content string `json:"content" bson:"content"`
}

func (p *BlogPost) EntityID() int64      { return p.ID }
func (p *BlogPost) SetEntityID(id int64) { p.ID = id }
