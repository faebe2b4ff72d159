package mission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/mistveil/textrpg/server/cache"
	"github.com/mistveil/textrpg/server/model"
	"github.com/mistveil/textrpg/server/resource"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store is the persistence contract the engine depends on.
type Store interface {
	SlotsOfPlayer(ctx context.Context, playerID int64) ([]*model.MissionSlot, error)
	SaveSlot(ctx context.Context, slot *model.MissionSlot) error
	DeleteSlot(ctx context.Context, slot *model.MissionSlot) error
	StatusOfPlayer(ctx context.Context, playerID int64) (*model.MissionStatus, error)
	SaveStatus(ctx context.Context, status *model.MissionStatus) error
	SavePlayer(ctx context.Context, p *model.Player) error
	// GetOrGenerateDaily returns the shared daily mission for the current
	// calendar day, generating it at most once regardless of which caller
	// triggers generation.
	GetOrGenerateDaily(ctx context.Context) (*model.DailyMissionRecord, error)
}

const dailyCacheKeyPrefix = "missions:daily:"

// GormStore is the gorm-backed Store with a cache in front of the shared
// daily mission record.
type GormStore struct {
	db       *gorm.DB
	cache    cache.Cache
	res      *resource.Loader
	registry *Registry
	logger   *zap.Logger
	now      func() time.Time
}

// NewStore creates a GormStore.
func NewStore(db *gorm.DB, c cache.Cache, res *resource.Loader, reg *Registry, logger *zap.Logger) *GormStore {
	return &GormStore{
		db:       db,
		cache:    c,
		res:      res,
		registry: reg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *GormStore) SlotsOfPlayer(ctx context.Context, playerID int64) ([]*model.MissionSlot, error) {
	var slots []*model.MissionSlot
	if err := s.db.WithContext(ctx).Where("player_id = ?", playerID).
		Order("id").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *GormStore) SaveSlot(ctx context.Context, slot *model.MissionSlot) error {
	return s.db.WithContext(ctx).Save(slot).Error
}

func (s *GormStore) DeleteSlot(ctx context.Context, slot *model.MissionSlot) error {
	return s.db.WithContext(ctx).Delete(slot).Error
}

// StatusOfPlayer returns the player's mission status, creating a fresh row
// at campaign position 1 on first access.
func (s *GormStore) StatusOfPlayer(ctx context.Context, playerID int64) (*model.MissionStatus, error) {
	var st model.MissionStatus
	err := s.db.WithContext(ctx).Where("player_id = ?", playerID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		st = model.MissionStatus{
			PlayerID:            playerID,
			CampaignProgression: 1,
			CampaignBlob:        strings.Repeat("0", len(s.res.CampaignList())),
		}
		if createErr := s.db.WithContext(ctx).Create(&st).Error; createErr != nil {
			return nil, createErr
		}
		return &st, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *GormStore) SaveStatus(ctx context.Context, status *model.MissionStatus) error {
	return s.db.WithContext(ctx).Save(status).Error
}

func (s *GormStore) SavePlayer(ctx context.Context, p *model.Player) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *GormStore) GetOrGenerateDaily(ctx context.Context) (*model.DailyMissionRecord, error) {
	day := s.now().Format("2006-01-02")
	key := dailyCacheKeyPrefix + day

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var rec model.DailyMissionRecord
			if jsonErr := json.Unmarshal([]byte(raw), &rec); jsonErr == nil {
				return &rec, nil
			}
		}
	}

	var rec model.DailyMissionRecord
	err := s.db.WithContext(ctx).Where("day = ?", day).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		generated, genErr := s.generateDaily(day)
		if genErr != nil {
			return nil, genErr
		}
		if createErr := s.db.WithContext(ctx).Create(generated).Error; createErr != nil {
			// Concurrent first access: another caller created today's row
			// between our lookup and insert. Theirs wins.
			if reloadErr := s.db.WithContext(ctx).Where("day = ?", day).First(&rec).Error; reloadErr != nil {
				return nil, createErr
			}
		} else {
			rec = *generated
		}
	} else if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, jsonErr := json.Marshal(&rec); jsonErr == nil {
			_ = s.cache.Set(ctx, key, string(raw), 25*time.Hour)
		}
	}
	return &rec, nil
}

// generateDaily deterministically picks today's shared mission from the
// daily-eligible definitions, keyed on the date so every process generates
// the same candidate.
func (s *GormStore) generateDaily(day string) (*model.DailyMissionRecord, error) {
	eligible := s.res.DailyEligible()
	// The streak mission is advanced by daily completion itself; letting it
	// be the daily would recurse.
	filtered := eligible[:0]
	for _, def := range eligible {
		if def.ID != MissionDailyStreak {
			filtered = append(filtered, def)
		}
	}
	eligible = filtered
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: no daily-eligible missions", ErrUnknownMission)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(day))
	seed := h.Sum64()

	def := eligible[seed%uint64(len(eligible))]
	positions := def.DailyIndexes
	if len(positions) == 0 {
		positions = make([]int, len(def.Objectives))
		for i := range positions {
			positions[i] = i
		}
	}
	idx := positions[(seed>>8)%uint64(len(positions))]
	d := resource.Difficulty(idx)

	variant := s.registry.Resolve(def.ID).GenerateRandomVariant(d, nil)
	rec := &model.DailyMissionRecord{
		Day:         day,
		MissionID:   def.ID,
		Variant:     variant,
		Objective:   resource.At(def.Objectives, d),
		GemsToWin:   resource.At(def.Gems, d),
		XPToWin:     resource.At(def.XP, d),
		MoneyToWin:  resource.At(def.Money, d),
		PointsToWin: resource.At(def.Points, d),
		GeneratedAt: s.now(),
	}
	s.logger.Info("daily mission generated",
		zap.String("day", day),
		zap.String("mission_id", rec.MissionID),
		zap.Int("objective", rec.Objective))
	return rec, nil
}
