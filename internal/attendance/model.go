package attendance

import (
	"encoding/json"
	"time"
)

// Status is a day's attendance state for one subject.
type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
	StatusOD      Status = "OD" // on duty, excused
	StatusHoliday Status = "HOLIDAY"
	StatusNone    Status = "NONE" // never stored, absence of a history key
)

// cycle is the order a calendar click advances through.
var cycle = []Status{StatusPresent, StatusAbsent, StatusOD, StatusHoliday, StatusNone}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	return s.index() >= 0
}

// Persisted reports whether s may appear as a history value.
func (s Status) Persisted() bool {
	return s.Valid() && s != StatusNone
}

// Next returns the status following s in the click cycle. Unknown values restart at PRESENT.
func (s Status) Next() Status {
	return cycle[(s.index()+1)%len(cycle)]
}

func (s Status) index() int {
	for i, c := range cycle {
		if c == s {
			return i
		}
	}
	return -1
}

// Subject is a tracked course with its date-keyed history.
// Values are never mutated after they leave the Store; edits produce a new Subject.
type Subject struct {
	ID          string
	Name        string
	Target      float64
	History     map[string]Status
	LastUpdated time.Time
}

// StatusOn returns the status recorded for the canonical date key, or StatusNone.
func (s Subject) StatusOn(date string) Status {
	if st, ok := s.History[date]; ok {
		return st
	}
	return StatusNone
}

func (s Subject) clone() Subject {
	h := make(map[string]Status, len(s.History))
	for k, v := range s.History {
		h[k] = v
	}
	s.History = h
	return s
}

type subjectJSON struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Target      float64           `json:"target"`
	History     map[string]Status `json:"history"`
	LastUpdated int64             `json:"lastUpdated"` // unix millis
}

// MarshalJSON writes the stored shape, with lastUpdated in unix milliseconds.
func (s Subject) MarshalJSON() ([]byte, error) {
	w := subjectJSON{ID: s.ID, Name: s.Name, Target: s.Target, History: s.History}
	if w.History == nil {
		w.History = map[string]Status{}
	}
	if !s.LastUpdated.IsZero() {
		w.LastUpdated = s.LastUpdated.UnixMilli()
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the stored shape.
func (s *Subject) UnmarshalJSON(data []byte) error {
	var w subjectJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Subject{ID: w.ID, Name: w.Name, Target: w.Target, History: w.History}
	if s.History == nil {
		s.History = map[string]Status{}
	}
	if w.LastUpdated != 0 {
		s.LastUpdated = time.UnixMilli(w.LastUpdated)
	}
	return nil
}

// Theme is a visual theme identifier.
type Theme string

const (
	ThemeModern Theme = "modern"
	ThemeRetro  Theme = "retro"
)

// NormalizeTheme keeps retro and collapses everything else to modern.
func NormalizeTheme(t Theme) Theme {
	if t == ThemeRetro {
		return ThemeRetro
	}
	return ThemeModern
}

// Profile is the user's identity and preferences singleton.
type Profile struct {
	Name          string  `json:"name"`
	RollNumber    string  `json:"rollNumber"`
	Institution   string  `json:"institution"`
	OverallTarget float64 `json:"overallTarget"`
	Theme         Theme   `json:"theme"`
}

// DefaultProfile is the first-run profile.
func DefaultProfile() Profile {
	return Profile{OverallTarget: 75, Theme: ThemeModern}
}

// Envelope is the persisted document in the canonical slot.
type Envelope struct {
	Subjects []Subject `json:"subjects"`
	Profile  Profile   `json:"profile"`
}
