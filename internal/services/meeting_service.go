// internal/services/meeting_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/internlink/placement-service/internal/config"
	"github.com/internlink/placement-service/internal/utils"
)

type MeetingRequest struct {
	ApplicationID uuid.UUID
	CompanyID     uuid.UUID
	Date          string
	Time          string
}

// MeetingLinkProvisioner returns a join URL for a remote interview.
type MeetingLinkProvisioner interface {
	Provision(ctx context.Context, req MeetingRequest) (string, error)
}

// MeetingService derives room names from the interview slot, so the same
// application, date and time always map to the same room.
type MeetingService struct {
	baseURL string
	salt    string
}

func NewMeetingService(cfg *config.Config) *MeetingService {
	return &MeetingService{
		baseURL: strings.TrimRight(cfg.Lifecycle.MeetingBaseURL, "/"),
		salt:    cfg.Lifecycle.MeetingRoomSalt,
	}
}

func (s *MeetingService) Provision(ctx context.Context, req MeetingRequest) (string, error) {
	if req.ApplicationID == uuid.Nil {
		return "", fmt.Errorf("meeting request without application")
	}

	room := utils.ShortHash(16, req.ApplicationID.String(), req.Date, req.Time)
	if s.salt != "" {
		room = s.salt + "-" + room
	}

	return fmt.Sprintf("%s/%s", s.baseURL, room), nil
}
