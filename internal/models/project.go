package models

const (
	ProjectActive    = "Active"
	ProjectCompleted = "Completed"
	ProjectPending   = "Pending"
)

// Project is a portfolio project with a planned start and end date.
type Project struct {
	ID          int64  `json:"id" bson:"id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description" bson:"description"`
	Status      string `json:"status" bson:"status"`
	StartDate   string `json:"startDate" bson:"startDate"`
	EndDate     string `json:"endDate" bson:"endDate"`
}

func (p *Project) EntityID() int64      { return p.ID }
func (p *Project) SetEntityID(id int64) { p.ID = id }
