package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/spec-kit/complaint-service/internal/classifier"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/notify"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) messages() []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Message(nil), m.sent...)
}

type ComplaintServiceSuite struct {
	suite.Suite

	store      *repository.InMemoryComplaintStore
	history    *repository.InMemoryComplaintHistoryStore
	dispatcher *events.AsyncDispatcher
	mailer     *recordingMailer
	metrics    *observability.Metrics
	svc        *ComplaintService

	owner    domain.Identity
	stranger domain.Identity
	employee domain.Identity
}

func TestComplaintServiceSuite(t *testing.T) {
	suite.Run(t, new(ComplaintServiceSuite))
}

func (s *ComplaintServiceSuite) SetupTest() {
	s.store = repository.NewInMemoryComplaintStore()
	s.history = repository.NewInMemoryComplaintHistoryStore()
	s.dispatcher = events.NewAsyncDispatcher(nil, time.Second)
	s.mailer = &recordingMailer{}
	s.metrics = observability.NewMetrics()
	NewNotificationService(s.dispatcher, s.mailer, nil, s.metrics).RegisterHandlers()

	s.svc = NewComplaintService(ComplaintDependencies{
		ComplaintRepo: s.store,
		HistoryRepo:   s.history,
		Classifier:    classifier.New(classifier.Options{}),
		Dispatcher:    s.dispatcher,
	})

	s.owner = verifiedIdentity("sub-owner", "owner@example.com")
	s.stranger = verifiedIdentity("sub-stranger", "stranger@example.com")
	s.employee = verifiedIdentity("sub-employee", "agent@example.com")
}

func (s *ComplaintServiceSuite) waitForNotifications() {
	s.Require().NoError(s.dispatcher.Wait(context.Background()))
}

func (s *ComplaintServiceSuite) create(identity domain.Identity, text string) *domain.Complaint {
	c, err := s.svc.Create(context.Background(), identity, CreateComplaintInput{Text: text})
	s.Require().NoError(err)
	return c
}

func (s *ComplaintServiceSuite) TestCreateClassifiesWithRuleOrder() {
	c := s.create(s.owner, "my package arrived broken")

	s.Equal("Delivery", c.Category)
	s.Equal(domain.PriorityMedium, c.Priority)
	s.Equal("Logistics", c.Department)
	s.Equal(domain.ComplaintStatusOpen, c.Status)
	s.Equal("sub-owner", c.OwnerID)
	s.Equal("owner@example.com", c.OwnerEmail)
	s.Len(c.TrackingCode, TrackingCodeLength)
	s.Nil(c.Summary)

	s.waitForNotifications()
	sent := s.mailer.messages()
	s.Require().Len(sent, 1)
	s.Equal("owner@example.com", sent[0].To)
	s.Contains(sent[0].Body, c.TrackingCode)
}

func (s *ComplaintServiceSuite) TestCreateRequiresText() {
	_, err := s.svc.Create(context.Background(), s.owner, CreateComplaintInput{Text: "   "})
	s.True(apperrors.HasCode(err, apperrors.CodeValidation))

	all, err := s.store.List(context.Background(), repository.ComplaintFilter{})
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *ComplaintServiceSuite) TestCreateHonorsCategoryAndOrder() {
	order := " ORD-42 "
	c, err := s.svc.Create(context.Background(), s.owner, CreateComplaintInput{
		Text:     "I was charged twice",
		OrderID:  &order,
		Category: "Delivery",
	})
	s.Require().NoError(err)
	s.Equal("Delivery", c.Category)
	s.Equal("Finance", c.Department)
	s.Require().NotNil(c.OrderID)
	s.Equal("ORD-42", *c.OrderID)
}

func (s *ComplaintServiceSuite) TestCreateRetriesTrackingCodeCollision() {
	existing := s.create(s.owner, "first")
	codes := []string{existing.TrackingCode, existing.TrackingCode, "ZZZZZZZZ"}
	s.svc.newTrackingCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	c := s.create(s.owner, "second")
	s.Equal("ZZZZZZZZ", c.TrackingCode)
}

func (s *ComplaintServiceSuite) TestCreateGivesUpAfterRepeatedCollisions() {
	existing := s.create(s.owner, "first")
	s.svc.newTrackingCode = func() (string, error) { return existing.TrackingCode, nil }

	_, err := s.svc.Create(context.Background(), s.owner, CreateComplaintInput{Text: "second"})
	s.True(apperrors.HasCode(err, apperrors.CodeInternal))
}

func (s *ComplaintServiceSuite) TestListVisibility() {
	mine := s.create(s.owner, "late delivery")
	s.create(s.stranger, "refund please")

	own, err := s.svc.List(context.Background(), s.owner, domain.RoleUser, Page{})
	s.Require().NoError(err)
	s.Require().Len(own, 1)
	s.Equal(mine.ID, own[0].ID)
	for _, c := range own {
		s.Equal(s.owner.SubjectID, c.OwnerID)
	}

	for _, role := range []domain.Role{domain.RoleEmployee, domain.RoleAdmin} {
		all, err := s.svc.List(context.Background(), s.employee, role, Page{})
		s.Require().NoError(err)
		s.Len(all, 2)
	}

	none, err := s.svc.List(context.Background(), s.employee, domain.Role("unknown"), Page{})
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *ComplaintServiceSuite) TestListNewestFirst() {
	first := s.create(s.owner, "one")
	second := s.create(s.owner, "two")

	all, err := s.svc.List(context.Background(), s.owner, domain.RoleUser, Page{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(second.ID, all[0].ID)
	s.Equal(first.ID, all[1].ID)
}

func (s *ComplaintServiceSuite) TestGetByID() {
	c := s.create(s.owner, "late delivery")

	got, err := s.svc.GetByID(context.Background(), s.owner, domain.RoleUser, c.ID)
	s.Require().NoError(err)
	s.Equal(c.TrackingCode, got.TrackingCode)

	_, err = s.svc.GetByID(context.Background(), s.stranger, domain.RoleUser, c.ID)
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = s.svc.GetByID(context.Background(), s.employee, domain.RoleEmployee, c.ID)
	s.NoError(err)

	_, err = s.svc.GetByID(context.Background(), s.owner, domain.RoleUser, uuid.NewString())
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = s.svc.GetByID(context.Background(), s.owner, domain.RoleUser, "not-a-uuid")
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))
}

func (s *ComplaintServiceSuite) TestTransitionByUserIsForbidden() {
	c := s.create(s.owner, "late delivery")
	s.waitForNotifications()

	notes := "I fixed it myself"
	_, err := s.svc.Transition(context.Background(), s.owner, domain.RoleUser, c.ID, TransitionInput{Status: "Resolved", ResolutionNotes: &notes})
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))

	stored, err := s.store.GetByID(context.Background(), c.ID)
	s.Require().NoError(err)
	s.Equal(domain.ComplaintStatusOpen, stored.Status)
	s.Nil(stored.ResolutionNotes)
	s.Nil(stored.ResolvedBy)
}

func (s *ComplaintServiceSuite) TestTransitionResolvesAndNotifies() {
	c := s.create(s.owner, "my package arrived broken")
	s.waitForNotifications()

	notes := "refund issued"
	updated, err := s.svc.Transition(context.Background(), s.employee, domain.RoleEmployee, c.ID, TransitionInput{Status: "Resolved", ResolutionNotes: &notes})
	s.Require().NoError(err)
	s.Equal(domain.ComplaintStatusResolved, updated.Status)
	s.Require().NotNil(updated.ResolutionNotes)
	s.Equal("refund issued", *updated.ResolutionNotes)
	s.Require().NotNil(updated.ResolvedBy)
	s.Equal("agent@example.com", *updated.ResolvedBy)
	s.Equal(c.TrackingCode, updated.TrackingCode)
	s.Equal(c.OwnerID, updated.OwnerID)

	s.waitForNotifications()
	sent := s.mailer.messages()
	s.Require().Len(sent, 2)
	s.Equal("owner@example.com", sent[1].To)
	s.Contains(sent[1].Body, "refund issued")
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Notifications.WithLabelValues(observability.NotificationSent)))
}

func (s *ComplaintServiceSuite) TestTransitionSucceedsWhenMailFails() {
	s.mailer.err = errors.New("535 authentication failed")
	c := s.create(s.owner, "late delivery")

	notes := "refund issued"
	updated, err := s.svc.Transition(context.Background(), s.employee, domain.RoleAdmin, c.ID, TransitionInput{Status: "resolved", ResolutionNotes: &notes})
	s.Require().NoError(err)
	s.Equal(domain.ComplaintStatusResolved, updated.Status)

	s.waitForNotifications()
	s.Len(s.mailer.messages(), 2)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Notifications.WithLabelValues(observability.NotificationFailed)))
}

func (s *ComplaintServiceSuite) TestTransitionKeepsNotesWhenOmitted() {
	c := s.create(s.owner, "late delivery")
	notes := "courier contacted"
	_, err := s.svc.Transition(context.Background(), s.employee, domain.RoleEmployee, c.ID, TransitionInput{Status: "In Progress", ResolutionNotes: &notes})
	s.Require().NoError(err)

	updated, err := s.svc.Transition(context.Background(), s.employee, domain.RoleEmployee, c.ID, TransitionInput{Status: "Closed"})
	s.Require().NoError(err)
	s.Equal(domain.ComplaintStatusClosed, updated.Status)
	s.Require().NotNil(updated.ResolutionNotes)
	s.Equal("courier contacted", *updated.ResolutionNotes)

	// no forward-only ordering is enforced
	reopened, err := s.svc.Transition(context.Background(), s.employee, domain.RoleEmployee, c.ID, TransitionInput{Status: "Open"})
	s.Require().NoError(err)
	s.Equal(domain.ComplaintStatusOpen, reopened.Status)
}

func (s *ComplaintServiceSuite) TestTransitionNotificationsByStatus() {
	c := s.create(s.owner, "late delivery")
	s.waitForNotifications()

	_, err := s.svc.Transition(context.Background(), s.employee, domain.RoleEmployee, c.ID, TransitionInput{Status: "InProgress"})
	s.Require().NoError(err)
	_, err = s.svc.Transition(context.Background(), s.employee, domain.RoleEmployee, c.ID, TransitionInput{Status: "Closed"})
	s.Require().NoError(err)
	_, err = s.svc.Transition(context.Background(), s.employee, domain.RoleEmployee, c.ID, TransitionInput{Status: "Resolved"})
	s.Require().NoError(err)
	s.waitForNotifications()

	sent := s.mailer.messages()
	s.Require().Len(sent, 3)
	var bodies []string
	for _, m := range sent[1:] {
		bodies = append(bodies, m.Body)
	}
	s.Contains(bodies[0]+bodies[1], "Category: Delivery")
	s.Contains(bodies[0]+bodies[1], noNotesPlaceholder)
}

func (s *ComplaintServiceSuite) TestTransitionErrors() {
	_, err := s.svc.Transition(context.Background(), s.employee, domain.RoleEmployee, uuid.NewString(), TransitionInput{Status: "Resolved"})
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))

	c := s.create(s.owner, "late delivery")
	_, err = s.svc.Transition(context.Background(), s.employee, domain.RoleEmployee, c.ID, TransitionInput{Status: "Escalated"})
	s.True(apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = s.svc.Transition(context.Background(), s.owner, domain.RoleUser, uuid.NewString(), TransitionInput{Status: "Escalated"})
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))
}

func (s *ComplaintServiceSuite) TestNotificationsSkippedWithoutMailer() {
	dispatcher := events.NewAsyncDispatcher(nil, time.Second)
	metrics := observability.NewMetrics()
	NewNotificationService(dispatcher, nil, nil, metrics).RegisterHandlers()
	svc := NewComplaintService(ComplaintDependencies{
		ComplaintRepo: repository.NewInMemoryComplaintStore(),
		Classifier:    classifier.New(classifier.Options{}),
		Dispatcher:    dispatcher,
	})

	_, err := svc.Create(context.Background(), s.owner, CreateComplaintInput{Text: "late"})
	s.Require().NoError(err)
	s.Require().NoError(dispatcher.Wait(context.Background()))
	s.Equal(1.0, testutil.ToFloat64(metrics.Notifications.WithLabelValues(observability.NotificationSkipped)))
}

func (s *ComplaintServiceSuite) TestHistoryRecordsTransitions() {
	c := s.create(s.owner, "late delivery")
	notes := "refunded"
	_, err := s.svc.Transition(context.Background(), s.employee, domain.RoleEmployee, c.ID, TransitionInput{Status: "In Progress"})
	s.Require().NoError(err)
	_, err = s.svc.Transition(context.Background(), s.employee, domain.RoleEmployee, c.ID, TransitionInput{Status: "Resolved", ResolutionNotes: &notes})
	s.Require().NoError(err)

	entries, err := s.svc.History(context.Background(), s.owner, domain.RoleUser, c.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(domain.ComplaintStatusOpen, entries[0].OldStatus)
	s.Equal(domain.ComplaintStatusInProgress, entries[0].NewStatus)
	s.Nil(entries[0].ResolutionNotes)
	s.Equal(domain.ComplaintStatusResolved, entries[1].NewStatus)
	s.Equal("agent@example.com", entries[1].ChangedBy)
	s.Require().NotNil(entries[1].ResolutionNotes)
	s.Equal("refunded", *entries[1].ResolutionNotes)
}

func (s *ComplaintServiceSuite) TestHistoryFollowsVisibility() {
	c := s.create(s.owner, "late delivery")

	_, err := s.svc.History(context.Background(), s.stranger, domain.RoleUser, c.ID)
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))

	entries, err := s.svc.History(context.Background(), s.employee, domain.RoleEmployee, c.ID)
	s.Require().NoError(err)
	s.Empty(entries)

	_, err = s.svc.History(context.Background(), s.employee, domain.RoleEmployee, "not-a-uuid")
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))
}

func (s *ComplaintServiceSuite) TestListPages() {
	first := s.create(s.owner, "one")
	second := s.create(s.owner, "two")
	third := s.create(s.owner, "three")

	page, err := s.svc.List(context.Background(), s.owner, domain.RoleUser, Page{Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal(third.ID, page[0].ID)
	s.Equal(second.ID, page[1].ID)

	page, err = s.svc.List(context.Background(), s.owner, domain.RoleUser, Page{Limit: 2, Offset: 2})
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal(first.ID, page[0].ID)

	page, err = s.svc.List(context.Background(), s.owner, domain.RoleUser, Page{Offset: 5})
	s.Require().NoError(err)
	s.Empty(page)

	for _, bad := range []Page{{Limit: -1}, {Limit: MaxPageSize + 1}, {Offset: -3}} {
		_, err = s.svc.List(context.Background(), s.owner, domain.RoleUser, bad)
		s.True(apperrors.HasCode(err, apperrors.CodeValidation), "%+v", bad)
	}
}
