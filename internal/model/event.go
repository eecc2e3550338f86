package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidInterval = errors.New("model: end must be after start")

// CalendarEvent is an immovable busy block. Managed marks events this system
// owns; only those may be edited.
type CalendarEvent struct {
	ID         string
	Subject    string
	Start      time.Time
	End        time.Time
	Managed    bool
	SourceFile string
	Categories []string
	Raw        json.RawMessage
	UpdatedAt  time.Time
}

func (e CalendarEvent) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("model: event id is required")
	}
	if !e.End.After(e.Start) {
		return fmt.Errorf("%w: event %s", ErrInvalidInterval, e.ID)
	}
	return nil
}
