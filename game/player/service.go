package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/mistveil/textrpg/server/game/mission"
	"github.com/mistveil/textrpg/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrPlayerNotFound = errors.New("player: not found")

// Updater is the mission engine surface the player service re-enters when a
// stat change can itself progress missions.
type Updater interface {
	Update(ctx context.Context, p *model.Player, sink *mission.Sink, ev mission.Event) (*model.Player, error)
}

// Service owns the player aggregate and applies mission rewards. It
// implements mission.RewardApplier: experience and money grants feed back
// into the mission engine, so completing one mission can complete another.
type Service struct {
	db      *gorm.DB
	updater Updater
	logger  *zap.Logger
}

// NewService creates a Service. The updater is attached afterwards via
// SetUpdater because the mission engine and the player service reference
// each other.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// SetUpdater attaches the mission engine.
func (s *Service) SetUpdater(u Updater) { s.updater = u }

// ByID loads a player by id.
func (s *Service) ByID(ctx context.Context, id int64) (*model.Player, error) {
	var p model.Player
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load player %d: %w", id, err)
	}
	return &p, nil
}

// ByAccount loads the player belonging to an account.
func (s *Service) ByAccount(ctx context.Context, accountID int64) (*model.Player, error) {
	var p model.Player
	err := s.db.WithContext(ctx).First(&p, "account_id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load player of account %d: %w", accountID, err)
	}
	return &p, nil
}

// Create creates the player character for an account.
func (s *Service) Create(ctx context.Context, accountID int64, name string) (*model.Player, error) {
	p := &model.Player{
		AccountID: accountID,
		Name:      name,
		Level:     1,
		Health:    100,
		MaxHealth: 100,
		MapID:     1,
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("create player %q: %w", name, err)
	}
	return p, nil
}

// Pets lists the player's companions.
func (s *Service) Pets(ctx context.Context, playerID int64) ([]*model.Pet, error) {
	var pets []*model.Pet
	if err := s.db.WithContext(ctx).Where("player_id = ?", playerID).Find(&pets).Error; err != nil {
		return nil, err
	}
	return pets, nil
}

// ExperienceForLevel is the total experience required to reach a level.
func ExperienceForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	l := int64(level - 1)
	return 50*l*l + 100*l
}

// AddGems credits gems on the mission status row. Persistence is the
// caller's; the engine saves the status right after.
func (s *Service) AddGems(_ context.Context, status *model.MissionStatus, amount int) error {
	status.Gems += amount
	return nil
}

// AddExperience grants experience and resolves level-ups. Each level gained
// re-enters the mission engine with a level event, which is how campaign
// level missions chain-complete.
func (s *Service) AddExperience(ctx context.Context, p *model.Player, sink *mission.Sink, amount int) (*model.Player, error) {
	p.Experience += int64(amount)
	leveled := false
	for p.Experience >= ExperienceForLevel(p.Level+1) {
		p.Level++
		p.MaxHealth += 10
		p.Health = p.MaxHealth
		leveled = true
	}
	if !leveled || s.updater == nil {
		return p, nil
	}
	s.logger.Info("player leveled up",
		zap.Int64("player_id", p.ID),
		zap.Int("level", p.Level))
	return s.updater.Update(ctx, p, sink, mission.Event{
		MissionID: "reachLevel",
		Count:     p.Level,
		Set:       true,
	})
}

// AddMoney grants money and re-enters the mission engine with an earn event.
// Money-earning missions complete from their own rewards; recursion bottoms
// out because collected slots are deleted before rewards apply.
func (s *Service) AddMoney(ctx context.Context, p *model.Player, sink *mission.Sink, amount int64) (*model.Player, error) {
	p.Money += amount
	if s.updater == nil {
		return p, nil
	}
	return s.updater.Update(ctx, p, sink, mission.Event{
		MissionID: "earnMoney",
		Count:     int(amount),
	})
}

// AddScore credits ranking points.
func (s *Service) AddScore(_ context.Context, p *model.Player, _ *mission.Sink, amount int64) (*model.Player, error) {
	p.Score += amount
	return p, nil
}

// GivePet creates a companion of the given type.
func (s *Service) GivePet(ctx context.Context, p *model.Player, petTypeID int) error {
	pet := &model.Pet{PlayerID: p.ID, TypeID: petTypeID}
	if err := s.db.WithContext(ctx).Create(pet).Error; err != nil {
		return fmt.Errorf("give pet %d to player %d: %w", petTypeID, p.ID, err)
	}
	s.logger.Info("pet granted",
		zap.Int64("player_id", p.ID),
		zap.Int("pet_type_id", petTypeID))
	return nil
}
