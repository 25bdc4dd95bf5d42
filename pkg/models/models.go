package models

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// Attendee is one row of the attendees table
type Attendee struct {
	Name     string `json:"name" yaml:"name"`
	Position string `json:"position" yaml:"position"`
	Role     string `json:"role" yaml:"role"`
}

// Task is a commitment taken in the meeting. Date is free-form display text.
type Task struct {
	Responsible string `json:"responsible" yaml:"responsible"`
	Date        string `json:"date" yaml:"date"`
	Description string `json:"description" yaml:"description"`
}

// MinutesDocument is the structured minutes returned by the minutes service
type MinutesDocument struct {
	Title       string     `json:"title" yaml:"title"`
	Date        string     `json:"date" yaml:"date"`
	Attendees   []Attendee `json:"attendees" yaml:"attendees"`
	Summary     string     `json:"summary" yaml:"summary"`
	Takeaways   []string   `json:"takeaways" yaml:"takeaways"`
	Conclusions []string   `json:"conclusions" yaml:"conclusions"`
	NextMeeting []string   `json:"next_meeting" yaml:"next_meeting"`
	Tasks       []Task     `json:"tasks" yaml:"tasks"`
	Message     string     `json:"message,omitempty" yaml:"message,omitempty"`
}

// UnmarshalJSON tolerates attendees and takeaways that are not lists; the
// service sometimes returns a description string there, which renders as empty.
func (d *MinutesDocument) UnmarshalJSON(data []byte) error {
	type plain MinutesDocument
	var raw struct {
		plain
		Attendees json.RawMessage `json:"attendees"`
		Takeaways json.RawMessage `json:"takeaways"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = MinutesDocument(raw.plain)
	d.Attendees = nil
	d.Takeaways = nil
	if isJSONArray(raw.Attendees) {
		if err := json.Unmarshal(raw.Attendees, &d.Attendees); err != nil {
			return err
		}
	}
	if isJSONArray(raw.Takeaways) {
		if err := json.Unmarshal(raw.Takeaways, &d.Takeaways); err != nil {
			return err
		}
	}
	return nil
}

func isJSONArray(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

// Document is the file selected for upload. Content is read once so every
// request of a session carries the same bytes.
type Document struct {
	Name    string
	Content []byte
}

// Ext returns the lower-case extension hint of the document name
func (d Document) Ext() string {
	return strings.ToLower(filepath.Ext(d.Name))
}
