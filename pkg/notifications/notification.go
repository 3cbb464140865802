package notifications

import (
	"fmt"
	"strings"
	"time"
)

// Category classifies a notification.
type Category string

const (
	CategoryTaskReminder    Category = "task_reminder"
	CategoryHearingReminder Category = "hearing_reminder"
	CategoryCaseUpdate      Category = "case_update"
	CategoryMessage         Category = "message"
	CategoryPayment         Category = "payment"
	CategoryGeneral         Category = "general"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTaskReminder, CategoryHearingReminder, CategoryCaseUpdate,
		CategoryMessage, CategoryPayment, CategoryGeneral:
		return true
	}
	return false
}

// ParseCategory maps a server notification type onto a Category.
// The server emits a wider set of types; anything unknown becomes CategoryGeneral.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return CategoryGeneral
}

// LocalizedText holds a display string in the primary and secondary language.
type LocalizedText struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// Record is a single notification in the inbox. Everything except Read is
// immutable once the record exists.
type Record struct {
	ID        string        `json:"id"`
	Title     LocalizedText `json:"title"`
	Body      LocalizedText `json:"body"`
	Category  Category      `json:"category"`
	Link      string        `json:"link,omitempty"`
	Icon      string        `json:"icon,omitempty"`
	Read      bool          `json:"read"`
	CreatedAt time.Time     `json:"created_at"`
}

// Validate checks the fields every record must carry.
func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrMalformedRecord)
	}
	if strings.TrimSpace(r.Title.Primary) == "" {
		return fmt.Errorf("%w: title is required", ErrMalformedRecord)
	}
	if !r.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrMalformedRecord, r.Category)
	}
	return nil
}
