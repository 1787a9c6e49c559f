// internal/services/affinity_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/internlink/placement-service/internal/config"
	"github.com/internlink/placement-service/internal/models"
)

type AffinityLevel string

const (
	AffinityNoData   AffinityLevel = "sin datos"
	AffinityLow      AffinityLevel = "bajo"
	AffinityMedium   AffinityLevel = "medio"
	AffinityHigh     AffinityLevel = "alto"
	AffinityVeryHigh AffinityLevel = "muy alto"
)

func (l AffinityLevel) Valid() bool {
	switch l {
	case AffinityNoData, AffinityLow, AffinityMedium, AffinityHigh, AffinityVeryHigh:
		return true
	}
	return false
}

type AffinityResult struct {
	Level       AffinityLevel `json:"level"`
	Score       float64       `json:"score"`
	Explanation string        `json:"explanation,omitempty"`
}

// AffinityTarget is either an offer or a bare skill set.
type AffinityTarget struct {
	OfferID *uuid.UUID
	Skills  []string
}

// AffinityScorer never fails: an unavailable scorer yields level "sin datos".
type AffinityScorer interface {
	Score(ctx context.Context, studentID uuid.UUID, target AffinityTarget) AffinityResult
}

func noAffinityData() AffinityResult {
	return AffinityResult{Level: AffinityNoData}
}

// levelForScore buckets a 0-100 score when the scorer omits the level.
func levelForScore(score float64) AffinityLevel {
	switch {
	case score >= 80:
		return AffinityVeryHigh
	case score >= 60:
		return AffinityHigh
	case score >= 40:
		return AffinityMedium
	case score > 0:
		return AffinityLow
	default:
		return AffinityNoData
	}
}

type AffinityService struct {
	db         *gorm.DB
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type scoreRequest struct {
	StudentID uuid.UUID  `json:"student_id"`
	OfferID   *uuid.UUID `json:"offer_id,omitempty"`
	Skills    []string   `json:"skills,omitempty"`
}

func NewAffinityService(db *gorm.DB, cfg *config.Config) *AffinityService {
	timeout := time.Duration(cfg.Affinity.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &AffinityService{
		db:      db,
		baseURL: strings.TrimRight(cfg.Affinity.BaseURL, "/"),
		apiKey:  cfg.Affinity.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *AffinityService) Enabled() bool {
	return s.baseURL != ""
}

func (s *AffinityService) Score(ctx context.Context, studentID uuid.UUID, target AffinityTarget) AffinityResult {
	if !s.Enabled() {
		return noAffinityData()
	}

	result, err := s.fetchScore(ctx, scoreRequest{StudentID: studentID, OfferID: target.OfferID, Skills: target.Skills})
	if err != nil {
		logrus.WithError(err).WithField("student_id", studentID).Warn("Affinity scoring unavailable")
		return noAffinityData()
	}
	return *result
}

func (s *AffinityService) fetchScore(ctx context.Context, payload scoreRequest) (*AffinityResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("affinity service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result AffinityResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !result.Level.Valid() {
		result.Level = levelForScore(result.Score)
	}

	return &result, nil
}

// ForOffer scores a student against an offer on behalf of an actor allowed
// to see the pair: the student, the offering company or staff.
func (s *AffinityService) ForOffer(ctx context.Context, actor Actor, studentID, offerID uuid.UUID) (*AffinityResult, error) {
	var offer models.Offer
	if err := s.db.WithContext(ctx).First(&offer, "id = ?", offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeOfferNotFound, "offer not found", map[string]interface{}{"offer_id": offerID})
		}
		return nil, internalError("failed to load offer", err)
	}

	switch actor.Role {
	case models.RoleStudent:
		if actor.UserID != studentID {
			return nil, forbiddenError("students can only score themselves")
		}
	case models.RoleCompany:
		if !actor.ActsFor(offer.CompanyID) {
			return nil, forbiddenError("offer belongs to another company")
		}
	case models.RoleStudyCenter, models.RoleAdmin:
	default:
		return nil, newError(CodeInvalidActor, "unknown role", nil)
	}

	result := s.Score(ctx, studentID, AffinityTarget{OfferID: &offer.ID, Skills: offer.RequiredSkills})
	return &result, nil
}
