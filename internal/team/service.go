package team

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cancha-booking/internal/logger"
	"cancha-booking/internal/models"
)

var (
	ErrTeamNotFound    = errors.New("team not found")
	ErrPlayerNotFound  = errors.New("no user with that display name")
	ErrAmbiguousPlayer = errors.New("display name matches more than one user")
	ErrAlreadyMember   = errors.New("player is already on the team")
	ErrNotTeamOwner    = errors.New("only the team creator can modify the roster")
	ErrVersionConflict = errors.New("team changed concurrently, retries exhausted")
)

// Store is the persistence surface of the roster flows.
type Store interface {
	CreateTeam(ctx context.Context, team models.Team) error
	GetTeam(ctx context.Context, teamID string) (*models.Team, error)
	TeamsByCreator(ctx context.Context, userID string) ([]models.Team, error)
	UpdateTeamMembers(ctx context.Context, teamID string, members []models.TeamMember, version int64) (bool, error)
	FindUsersByName(ctx context.Context, name string) ([]models.User, error)
}

// EventPublisher streams roster changes.
type EventPublisher interface {
	PublishTeamUpdated(team models.Team) error
}

type Service struct {
	DB     Store
	Events EventPublisher

	logger      *logger.Logger
	maxAttempts int
	now         func() time.Time
}

func NewService(db Store, events EventPublisher, log *logger.Logger) *Service {
	return &Service{
		DB:          db,
		Events:      events,
		logger:      log,
		maxAttempts: 5,
		now:         time.Now,
	}
}

type CreateTeamRequest struct {
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
	Symbol string `json:"symbol,omitempty"`
	Shape  string `json:"shape,omitempty"`
}

// CreateTeam registers a team with the creator as its first member.
func (s *Service) CreateTeam(ctx context.Context, userID string, req CreateTeamRequest) (*models.Team, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("create team: name is required")
	}

	team := models.Team{
		TeamID:    uuid.NewString(),
		Name:      name,
		Color:     req.Color,
		Symbol:    req.Symbol,
		Shape:     req.Shape,
		CreatedBy: userID,
		Members:   []models.TeamMember{{UID: userID}},
		CreatedAt: s.now().UTC(),
	}
	if err := s.DB.CreateTeam(ctx, team); err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}

	s.logger.Info("TEAM", fmt.Sprintf("team %s created by %s", team.TeamID, userID))
	return &team, nil
}

// TeamsOf lists the teams a user created.
func (s *Service) TeamsOf(ctx context.Context, userID string) ([]models.Team, error) {
	return s.DB.TeamsByCreator(ctx, userID)
}

// GetTeam returns one team by id.
func (s *Service) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	team, err := s.DB.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrTeamNotFound
	}
	return team, nil
}

// AddPlayer appends a {uid, position} roster entry, finding the player by
// display name. Names are not unique, so a multi-match is rejected instead
// of guessing. The roster write is guarded by the team's version token and
// retried on conflict, so concurrent adds cannot lose each other.
func (s *Service) AddPlayer(ctx context.Context, callerID, teamID, displayName, position string) (*models.Team, error) {
	users, err := s.DB.FindUsersByName(ctx, strings.TrimSpace(displayName))
	if err != nil {
		return nil, fmt.Errorf("add player: lookup %q: %w", displayName, err)
	}
	switch len(users) {
	case 0:
		return nil, ErrPlayerNotFound
	case 1:
	default:
		return nil, ErrAmbiguousPlayer
	}
	playerID := users[0].UserID

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		team, err := s.DB.GetTeam(ctx, teamID)
		if err != nil {
			return nil, fmt.Errorf("add player: load team %s: %w", teamID, err)
		}
		if team == nil {
			return nil, ErrTeamNotFound
		}
		if team.CreatedBy != callerID {
			return nil, ErrNotTeamOwner
		}
		if team.HasMember(playerID) {
			return nil, ErrAlreadyMember
		}

		members := append(team.Members, models.TeamMember{UID: playerID, Position: position})
		ok, err := s.DB.UpdateTeamMembers(ctx, teamID, members, team.Version)
		if err != nil {
			return nil, fmt.Errorf("add player: write roster for %s: %w", teamID, err)
		}
		if !ok {
			s.logger.Warn("TEAM", fmt.Sprintf("roster conflict on team %s, attempt %d", teamID, attempt+1))
			continue
		}

		team.Members = members
		if s.Events != nil {
			if err := s.Events.PublishTeamUpdated(*team); err != nil {
				s.logger.Warn("KAFKA", fmt.Sprintf("team.updated publish failed for %s: %v", teamID, err))
			}
		}
		s.logger.Info("TEAM", fmt.Sprintf("player %s added to team %s as %s", playerID, teamID, position))
		return team, nil
	}

	return nil, ErrVersionConflict
}
