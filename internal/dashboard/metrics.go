package dashboard

import (
	"github.com/devfolio/portfolio-api/internal/models"
)

// Metrics are the counters shown on the dashboard overview. They are derived
// from the mirrors and recomputed after every change.
type Metrics struct {
	TotalMessages    int            `json:"totalMessages"`
	UnreadMessages   int            `json:"unreadMessages"`
	MessagesBySource map[string]int `json:"messagesBySource"`

	TotalRatings    int     `json:"totalRatings"`
	AverageRating   float64 `json:"averageRating"`
	FiveStarRatings int     `json:"fiveStarRatings"`

	TotalPosts     int `json:"totalPosts"`
	PublishedPosts int `json:"publishedPosts"`
	DraftPosts     int `json:"draftPosts"`

	TotalProjects     int `json:"totalProjects"`
	ActiveProjects    int `json:"activeProjects"`
	CompletedProjects int `json:"completedProjects"`
	PendingProjects   int `json:"pendingProjects"`
}

func UnreadCount(msgs []models.Message) int {
	n := 0
	for _, m := range msgs {
		if !m.Read {
			n++
		}
	}
	return n
}

// CountBySource groups messages by source. Messages without a source are not
// counted.
func CountBySource(msgs []models.Message) map[string]int {
	out := map[string]int{}
	for _, m := range msgs {
		if m.Source != "" {
			out[m.Source]++
		}
	}
	return out
}

// AverageRating is sum/len, 0 for no ratings.
func AverageRating(rs []models.Rating) float64 {
	if len(rs) == 0 {
		return 0
	}
	sum := 0
	for _, r := range rs {
		sum += r.Rating
	}
	return float64(sum) / float64(len(rs))
}

func countRatings(rs []models.Rating, score int) int {
	n := 0
	for _, r := range rs {
		if r.Rating == score {
			n++
		}
	}
	return n
}

func countPosts(ps []models.BlogPost, status string) int {
	n := 0
	for _, p := range ps {
		if p.Status == status {
			n++
		}
	}
	return n
}

func countProjects(ps []models.Project, status string) int {
	n := 0
	for _, p := range ps {
		if p.Status == status {
			n++
		}
	}
	return n
}

// Compute derives all metrics from the given collections.
func Compute(msgs []models.Message, ratings []models.Rating, posts []models.BlogPost, projects []models.Project) Metrics {
	return Metrics{
		TotalMessages:     len(msgs),
		UnreadMessages:    UnreadCount(msgs),
		MessagesBySource:  CountBySource(msgs),
		TotalRatings:      len(ratings),
		AverageRating:     AverageRating(ratings),
		FiveStarRatings:   countRatings(ratings, models.MaxRating),
		TotalPosts:        len(posts),
		PublishedPosts:    countPosts(posts, models.PostPublished),
		DraftPosts:        countPosts(posts, models.PostDraft),
		TotalProjects:     len(projects),
		ActiveProjects:    countProjects(projects, models.ProjectActive),
		CompletedProjects: countProjects(projects, models.ProjectCompleted),
		PendingProjects:   countProjects(projects, models.ProjectPending),
	}
}
