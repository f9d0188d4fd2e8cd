// Package query holds the per-collection filters served by the
// /api/<collection>/query endpoints. The dashboard client reuses them to
// answer the same queries from its local mirror.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/devfolio/portfolio-api/internal/models"
)

// ErrInvalid is wrapped by every parse error.
var ErrInvalid = errors.New("invalid query parameters")

const dateOnly = "2006-01-02"

// Filter is implemented by every filter type in this package.
type Filter[E any] interface {
	Match(e E) bool
	Values() url.Values
}

// Apply returns the items matched by f, preserving order.
func Apply[E any](items []E, f Filter[E]) []E {
	out := make([]E, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

// ParseDate accepts RFC3339 timestamps or plain YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalid, s)
	}
	return t, nil
}

// DateRange bounds a date inclusively. A bound given as a bare date covers
// that whole day.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func parseRange(v url.Values) (DateRange, error) {
	var r DateRange
	if s := strings.TrimSpace(v.Get("dateFrom")); s != "" {
		t, err := ParseDate(s)
		if err != nil {
			return r, err
		}
		r.From = &t
	}
	if s := strings.TrimSpace(v.Get("dateTo")); s != "" {
		t, err := ParseDate(s)
		if err != nil {
			return r, err
		}
		if len(s) == len(dateOnly) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		r.To = &t
	}
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return r, fmt.Errorf("%w: dateTo before dateFrom", ErrInvalid)
	}
	return r, nil
}

func (r DateRange) after(t time.Time) bool  { return r.From == nil || !t.Before(*r.From) }
func (r DateRange) before(t time.Time) bool { return r.To == nil || !t.After(*r.To) }

func (r DateRange) contains(t time.Time) bool { return r.after(t) && r.before(t) }

// containsString matches a stored date string. Unparseable dates only match an
// unbounded range.
func (r DateRange) containsString(s string) bool {
	if r.From == nil && r.To == nil {
		return true
	}
	t, err := ParseDate(s)
	if err != nil {
		return false
	}
	return r.contains(t)
}

func (r DateRange) encode(v url.Values) {
	if r.From != nil {
		v.Set("dateFrom", r.From.Format(time.RFC3339))
	}
	if r.To != nil {
		v.Set("dateTo", r.To.Format(time.RFC3339Nano))
	}
}

func parseBool(v url.Values, key string) (*bool, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", ErrInvalid, key)
	}
	return &b, nil
}

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func equalFold(s, want string) bool {
	return want == "" || strings.EqualFold(s, want)
}

// MessageFilter selects messages by source, category, read flag and date.
type MessageFilter struct {
	Source   string
	Category string
	Read     *bool
	Date     DateRange
}

func ParseMessageFilter(v url.Values) (MessageFilter, error) {
	f := MessageFilter{
		Source:   strings.TrimSpace(v.Get("source")),
		Category: strings.TrimSpace(v.Get("category")),
	}
	var err error
	if f.Read, err = parseBool(v, "read"); err != nil {
		return f, err
	}
	f.Date, err = parseRange(v)
	return f, err
}

func (f MessageFilter) Match(m models.Message) bool {
	if !equalFold(m.Source, f.Source) || !equalFold(m.Category, f.Category) {
		return false
	}
	if f.Read != nil && m.Read != *f.Read {
		return false
	}
	return f.Date.contains(m.Date)
}

func (f MessageFilter) Values() url.Values {
	v := url.Values{}
	if f.Source != "" {
		v.Set("source", f.Source)
	}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.Read != nil {
		v.Set("read", strconv.FormatBool(*f.Read))
	}
	f.Date.encode(v)
	return v
}

// ProjectFilter selects projects by status and name. The date range applies
// to the project span: dateFrom bounds startDate and dateTo bounds endDate.
type ProjectFilter struct {
	Status string
	Name   string
	Date   DateRange
}

func ParseProjectFilter(v url.Values) (ProjectFilter, error) {
	f := ProjectFilter{
		Status: strings.TrimSpace(v.Get("status")),
		Name:   strings.TrimSpace(v.Get("name")),
	}
	var err error
	f.Date, err = parseRange(v)
	return f, err
}

func (f ProjectFilter) Match(p models.Project) bool {
	if !equalFold(p.Status, f.Status) || !containsFold(p.Name, f.Name) {
		return false
	}
	if f.Date.From != nil && !(DateRange{From: f.Date.From}).containsString(p.StartDate) {
		return false
	}
	if f.Date.To != nil && !(DateRange{To: f.Date.To}).containsString(p.EndDate) {
		return false
	}
	return true
}

func (f ProjectFilter) Values() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", f.Status)
	}
	if f.Name != "" {
		v.Set("name", f.Name)
	}
	f.Date.encode(v)
	return v
}

// PostFilter selects blog posts by status, title and date.
type PostFilter struct {
	Status string
	Title  string
	Date   DateRange
}

func ParsePostFilter(v url.Values) (PostFilter, error) {
	f := PostFilter{
		Status: strings.TrimSpace(v.Get("status")),
		Title:  strings.TrimSpace(v.Get("title")),
	}
	var err error
	f.Date, err = parseRange(v)
	return f, err
}

func (f PostFilter) Match(p models.BlogPost) bool {
	return equalFold(p.Status, f.Status) && containsFold(p.Title, f.Title) && f.Date.containsString(p.Date)
}

func (f PostFilter) Values() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", f.Status)
	}
	if f.Title != "" {
		v.Set("title", f.Title)
	}
	f.Date.encode(v)
	return v
}

// RatingFilter selects ratings by exact score, comment presence and date.
type RatingFilter struct {
	Rating     int
	HasComment *bool
	Date       DateRange
}

func ParseRatingFilter(v url.Values) (RatingFilter, error) {
	var f RatingFilter
	if s := strings.TrimSpace(v.Get("rating")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < models.MinRating || n > models.MaxRating {
			return f, fmt.Errorf("%w: rating must be %d-%d", ErrInvalid, models.MinRating, models.MaxRating)
		}
		f.Rating = n
	}
	var err error
	if f.HasComment, err = parseBool(v, "hasComment"); err != nil {
		return f, err
	}
	f.Date, err = parseRange(v)
	return f, err
}

func (f RatingFilter) Match(r models.Rating) bool {
	if f.Rating != 0 && r.Rating != f.Rating {
		return false
	}
	if f.HasComment != nil && (strings.TrimSpace(r.Comment) != "") != *f.HasComment {
		return false
	}
	return f.Date.contains(r.Date)
}

func (f RatingFilter) Values() url.Values {
	v := url.Values{}
	if f.Rating != 0 {
		v.Set("rating", strconv.Itoa(f.Rating))
	}
	if f.HasComment != nil {
		v.Set("hasComment", strconv.FormatBool(*f.HasComment))
	}
	f.Date.encode(v)
	return v
}
