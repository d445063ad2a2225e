package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no profile exists for the user.
var ErrNotFound = errors.New("user profile not found")

// Store persists user profiles.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

const profileCols = `user_id, display_name, active_goals, skills, interests,
	skill_level, career_stage, learning_style, preferences, created_at, updated_at`

// Get loads one user's context.
func (s *Store) Get(ctx context.Context, userID string) (UserContext, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+profileCols+` FROM user_profiles WHERE user_id = $1`, userID)
	uc, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserContext{}, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	if err != nil {
		return UserContext{}, fmt.Errorf("get user profile: %w", err)
	}
	return uc, nil
}

// Upsert writes a full profile snapshot, replacing any existing row.
func (s *Store) Upsert(ctx context.Context, uc UserContext) error {
	if uc.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	prefs, err := encodePreferences(uc.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_profiles
			(user_id, display_name, active_goals, skills, interests,
			 skill_level, career_stage, learning_style, preferences)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name   = EXCLUDED.display_name,
			active_goals   = EXCLUDED.active_goals,
			skills         = EXCLUDED.skills,
			interests      = EXCLUDED.interests,
			skill_level    = EXCLUDED.skill_level,
			career_stage   = EXCLUDED.career_stage,
			learning_style = EXCLUDED.learning_style,
			preferences    = EXCLUDED.preferences,
			updated_at     = NOW()`,
		uc.UserID, uc.DisplayName, textArray(uc.ActiveGoals), textArray(uc.Skills),
		textArray(uc.Interests), uc.SkillLevel, uc.CareerStage, uc.LearningStyle, prefs)
	if err != nil {
		return fmt.Errorf("upsert user profile: %w", err)
	}
	s.logger.Debug("profile upserted", "user_id", uc.UserID)
	return nil
}

func scanProfile(row pgx.Row) (UserContext, error) {
	var (
		uc       UserContext
		rawPrefs []byte
	)
	err := row.Scan(&uc.UserID, &uc.DisplayName, &uc.ActiveGoals, &uc.Skills,
		&uc.Interests, &uc.SkillLevel, &uc.CareerStage, &uc.LearningStyle,
		&rawPrefs, &uc.CreatedAt, &uc.UpdatedAt)
	if err != nil {
		return UserContext{}, err
	}
	if len(rawPrefs) > 0 {
		if err := json.Unmarshal(rawPrefs, &uc.Preferences); err != nil {
			return UserContext{}, fmt.Errorf("decode preferences: %w", err)
		}
	}
	return uc, nil
}

func encodePreferences(prefs map[string]string) ([]byte, error) {
	if len(prefs) == 0 {
		return nil, nil
	}
	return json.Marshal(prefs)
}

// textArray keeps empty slices distinguishable from SQL NULL so the
// TEXT[] columns always hold an array.
func textArray(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
