package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"gorm.io/gorm"

	"github.com/internlink/placement-service/internal/config"
	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/services"
	"github.com/internlink/placement-service/internal/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Redis:       config.RedisConfig{Channel: "placement.events"},
		AWS:         config.AWSConfig{Region: "eu-west-1", CVBucket: "cvs", PresignTTL: 15},
		Payment:     config.PaymentConfig{Currency: "eur", TokenPriceCents: 150},
		Lifecycle: config.LifecycleConfig{
			RevealCost:      2,
			MeetingBaseURL:  "https://meet.example.com/",
			MeetingRoomSalt: "test",
		},
	}
}

type recordedEvent struct {
	event     string
	recipient uuid.UUID
	payload   map[string]interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingNotifier) Notify(ctx context.Context, event string, recipientID uuid.UUID, payload map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event: event, recipient: recipientID, payload: payload})
}

func (r *recordingNotifier) count(event string, recipient uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.event == event && e.recipient == recipient {
			n++
		}
	}
	return n
}

func (r *recordingNotifier) waitFor(t *testing.T, event string, recipient uuid.UUID) {
	t.Helper()
	assert.Eventually(t, func() bool { return r.count(event, recipient) > 0 },
		time.Second, 10*time.Millisecond, "expected %s for %s", event, recipient)
}

type fakeGateway struct {
	mu      sync.Mutex
	seq     int
	intents map[string]*stripe.PaymentIntent
}

func (g *fakeGateway) CreateIntent(amountCents int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.intents == nil {
		g.intents = map[string]*stripe.PaymentIntent{}
	}
	g.seq++
	id := fmt.Sprintf("pi_test_%d", g.seq)
	pi := &stripe.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Amount:       amountCents,
		Currency:     stripe.Currency(currency),
		Metadata:     metadata,
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
	}
	g.intents[id] = pi
	return pi, nil
}

func (g *fakeGateway) GetIntent(id string) (*stripe.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pi, ok := g.intents[id]
	if !ok {
		return nil, errors.New("no such payment intent")
	}
	return pi, nil
}

func (g *fakeGateway) setStatus(id string, status stripe.PaymentIntentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[id].Status = status
}

// engine wires every service on a fresh in-memory database.
type engine struct {
	db         *gorm.DB
	fx         testutil.Fixtures
	cfg        *config.Config
	notifier   *recordingNotifier
	gateway    *fakeGateway
	meetings   *services.MeetingService
	interviews *services.InterviewService
	apps       *services.ApplicationService
	wallet     *services.WalletService
	reveals    *services.RevealService
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := testConfig()

	e := &engine{
		db:       db,
		fx:       testutil.Fixtures{DB: db},
		cfg:      cfg,
		notifier: &recordingNotifier{},
		gateway:  &fakeGateway{},
		meetings: services.NewMeetingService(cfg),
	}

	storage, err := services.NewStorageService(cfg)
	require.NoError(t, err)

	e.interviews = services.NewInterviewService(db, e.meetings, e.notifier)
	e.apps = services.NewApplicationService(db, e.interviews, e.notifier, nil)
	e.wallet = services.NewWalletService(db, cfg, e.gateway)
	e.reveals = services.NewRevealService(db, cfg, e.wallet, storage, e.notifier)
	return e
}

// party is a company with one open offer and a member acting for it.
type party struct {
	company *models.Company
	offer   *models.Offer
	actor   services.Actor
}

func (e *engine) newParty(t *testing.T, name string) party {
	t.Helper()
	company := e.fx.Company(t, name)
	offer := e.fx.Offer(t, company, name+" internship", models.OfferStatusOpen)
	return party{
		company: company,
		offer:   offer,
		actor:   services.CompanyActor(uuid.New(), company.ID),
	}
}

func (e *engine) newStudent(t *testing.T, name string) (*models.Student, services.Actor) {
	t.Helper()
	student := e.fx.Student(t, name, nil)
	return student, services.StudentActor(student.ID)
}

func (e *engine) apply(t *testing.T, student services.Actor, offer *models.Offer) *models.Application {
	t.Helper()
	app, err := e.apps.Apply(context.Background(), student, &services.ApplyRequest{OfferID: offer.ID, Message: "I'd love to join"})
	require.NoError(t, err)
	return app
}

func sampleDetails() *models.InterviewDetails {
	return &models.InterviewDetails{
		Date:     "2026-11-03",
		Time:     "10:30",
		Location: "Calle Mayor 1, Madrid",
		Type:     models.InterviewTypePresencial,
	}
}

// seed writes an application directly in the given state.
func (e *engine) seed(t *testing.T, studentID uuid.UUID, offer *models.Offer, status models.ApplicationStatus) *models.Application {
	t.Helper()
	app := &models.Application{
		StudentID: studentID,
		OfferID:   offer.ID,
		CompanyID: offer.CompanyID,
		Status:    status,
		AppliedAt: time.Now(),
		Version:   1,
	}
	if status.HasInterview() {
		app.Interview = &models.Interview{
			RequestedAt: time.Now(),
			RequestedBy: uuid.New(),
			Details:     sampleDetails(),
		}
		if status != models.ApplicationStatusInterviewRequested {
			app.Interview.StudentResponse = &models.InterviewResponse{Action: models.InterviewActionConfirm, RespondedAt: time.Now()}
		}
	}
	require.NoError(t, e.db.Create(app).Error)
	return app
}

func (e *engine) reload(t *testing.T, id uuid.UUID) *models.Application {
	t.Helper()
	var app models.Application
	require.NoError(t, e.db.First(&app, "id = ?", id).Error)
	return &app
}

func (e *engine) history(t *testing.T, id uuid.UUID) []models.ApplicationStatusHistory {
	t.Helper()
	var rows []models.ApplicationStatusHistory
	require.NoError(t, e.db.Where("application_id = ?", id).Order("created_at").Find(&rows).Error)
	return rows
}

func assertCode(t *testing.T, err error, code services.ErrorCode) *services.ServiceError {
	t.Helper()
	require.Error(t, err)
	se := services.AsServiceError(err)
	assert.Equal(t, code, se.Code, "unexpected error: %v", err)
	return se
}
