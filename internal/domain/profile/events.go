package profile

import (
	"time"

	"github.com/google/uuid"
)

// ProfileRegisteredEvent is raised when a new profile is created
type ProfileRegisteredEvent struct {
	ProfileID    uuid.UUID
	Username     string
	RegisteredAt time.Time
}

// NewProfileRegisteredEvent builds the event for a freshly created profile
func NewProfileRegisteredEvent(id uuid.UUID, username string) ProfileRegisteredEvent {
	return ProfileRegisteredEvent{
		ProfileID:    id,
		Username:     username,
		RegisteredAt: time.Now(),
	}
}

func (e ProfileRegisteredEvent) EventName() string {
	return "profile.registered"
}

func (e ProfileRegisteredEvent) OccurredAt() time.Time {
	return e.RegisteredAt
}
