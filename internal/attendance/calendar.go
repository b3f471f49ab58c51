package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"attendly/internal/dates"
)

// ErrDayOutOfRange is returned for a click outside the displayed month.
var ErrDayOutOfRange = errors.New("day outside displayed month")

// SubjectSource looks up the current value of a subject.
type SubjectSource interface {
	Subject(id string) (Subject, bool)
}

// StatusChangeFunc receives each status chosen from the calendar.
type StatusChangeFunc func(ctx context.Context, date string, status Status) error

// Cell is one square of the month grid. Empty cells pad the first week.
type Cell struct {
	Empty  bool   `json:"empty"`
	Day    int    `json:"day,omitempty"`
	Date   string `json:"date,omitempty"`
	Status Status `json:"status,omitempty"`
	Sunday bool   `json:"sunday,omitempty"`
}

// Calendar is the month view state for one subject. It is not safe for concurrent use.
type Calendar struct {
	subjectID string
	src       SubjectSource
	onChange  StatusChangeFunc
	first     time.Time // midnight on the 1st of the displayed month
}

// NewCalendar shows the month containing now.
func NewCalendar(subjectID string, src SubjectSource, onChange StatusChangeFunc, now time.Time) *Calendar {
	return &Calendar{
		subjectID: subjectID,
		src:       src,
		onChange:  onChange,
		first:     time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()),
	}
}

// Calendar opens a month view for subject id whose clicks go through UpdateAttendance.
func (s *Store) Calendar(id string) *Calendar {
	update := func(ctx context.Context, date string, status Status) error {
		_, err := s.UpdateAttendance(ctx, id, status, date)
		return err
	}
	return NewCalendar(id, s, update, s.now())
}

// Year is the displayed year.
func (c *Calendar) Year() int { return c.first.Year() }

// Month is the displayed month.
func (c *Calendar) Month() time.Month { return c.first.Month() }

// Title is the displayed month, e.g. "March 2024".
func (c *Calendar) Title() string {
	return fmt.Sprintf("%s %d", c.first.Month(), c.first.Year())
}

// ChangeMonth moves the view by offset months; the year rolls over as needed.
func (c *Calendar) ChangeMonth(offset int) {
	c.first = time.Date(c.first.Year(), c.first.Month()+time.Month(offset), 1, 0, 0, 0, 0, c.first.Location())
}

// Grid lays out the displayed month with leading placeholders up to the first weekday.
func (c *Calendar) Grid() []Cell {
	md := dates.GetMonthDays(c.first.Year(), int(c.first.Month())-1)
	sub, _ := c.src.Subject(c.subjectID)

	cells := make([]Cell, 0, md.FirstDay+md.DaysInMonth)
	for i := 0; i < md.FirstDay; i++ {
		cells = append(cells, Cell{Empty: true})
	}
	for day := 1; day <= md.DaysInMonth; day++ {
		d := c.day(day)
		key := dates.Format(d)
		cells = append(cells, Cell{
			Day:    day,
			Date:   key,
			Status: sub.StatusOn(key),
			Sunday: d.Weekday() == time.Sunday,
		})
	}
	return cells
}

// ClickDay advances the day's status one step through the cycle and reports the new status.
func (c *Calendar) ClickDay(ctx context.Context, day int) (Status, error) {
	md := dates.GetMonthDays(c.first.Year(), int(c.first.Month())-1)
	if day < 1 || day > md.DaysInMonth {
		return "", fmt.Errorf("%w: %d", ErrDayOutOfRange, day)
	}
	sub, ok := c.src.Subject(c.subjectID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSubjectNotFound, c.subjectID)
	}

	key := c.DateKey(day)
	next := sub.StatusOn(key).Next()
	return next, c.onChange(ctx, key, next)
}

// DateKey is the canonical key of day n in the displayed month.
func (c *Calendar) DateKey(n int) string {
	return dates.Format(c.day(n))
}

func (c *Calendar) day(n int) time.Time {
	return time.Date(c.first.Year(), c.first.Month(), n, 0, 0, 0, 0, c.first.Location())
}
