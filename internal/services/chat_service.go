package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"livechat-csat-service/internal/csat"
	"livechat-csat-service/internal/dispatch"
	"livechat-csat-service/internal/lifecycle"
	"livechat-csat-service/internal/models"
)

var (
	ErrStartChatBlocked     = errors.New("start chat blocked by conversation state")
	ErrEndChatBlocked       = errors.New("end chat blocked: start chat in flight")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotSurveyResponse    = errors.New("activity is not a survey response")
)

// SessionDriver is the chat SDK operations the lifecycle needs.
type SessionDriver interface {
	StartSession(ctx context.Context, conversationID string) error
	EndSession(ctx context.Context, conversationID string) error
}

// ConversationStore is the persistence the lifecycle needs.
type ConversationStore interface {
	UpsertConversation(ctx context.Context, ownerKey string, v models.ConversationView) error
	SaveCSATResult(ctx context.Context, conversationID string, r models.CSATResult) error
	GetCSATResult(ctx context.Context, conversationID string) (models.CSATRecord, error)
	SaveSurveyResponse(ctx context.Context, r models.CopilotSurveyResponse) error
	LatestSurveyResponse(ctx context.Context, conversationID string) (*models.CopilotSurveyResponse, error)
}

// session is one conversation's shared widget state. The registry is
// the state container the guards read snapshots of; all mutation goes
// through ChatService under the lock.
type session struct {
	id                     string
	ownerKey               string
	isPersistent           bool
	state                  models.ConversationState
	endedBy                models.ConversationEndEntity
	startChatFailed        bool
	isMinimized            bool
	previousFocusElementID string
	showConfirmation       bool
	confirmation           models.ConfirmationState
	survey                 *models.CopilotSurveyResponse
	scored                 bool
	createdAt              time.Time
	updatedAt              time.Time
}

func (s *session) snapshot() models.StateSnapshot {
	return models.StateSnapshot{
		ConversationState:                       s.state,
		ConversationEndedBy:                     s.endedBy,
		StartChatFailed:                         s.startChatFailed,
		IsMinimized:                             s.isMinimized,
		PreviousElementIDOnFocusBeforeModalOpen: s.previousFocusElementID,
	}
}

func (s *session) view() models.ConversationView {
	return models.ConversationView{
		ConversationID:    s.id,
		ConversationState: s.state,
		EndedBy:           s.endedBy,
		IsPersistent:      s.isPersistent,
		ShowConfirmation:  s.showConfirmation,
		ConfirmationState: s.confirmation,
		CreatedAt:         s.createdAt,
		UpdatedAt:         s.updatedAt,
	}
}

// ChatService arbitrates conversation lifecycle transitions. Guard
// predicates are evaluated against an immutable snapshot on every
// transition; the service is the only writer of session state.
type ChatService struct {
	Sessions SessionDriver
	Store    ConversationStore
	Pipeline *csat.Pipeline
	Dispatch dispatch.Sink

	mu       sync.RWMutex
	registry map[string]*session
}

func NewChatService(driver SessionDriver, store ConversationStore, pipeline *csat.Pipeline, sink dispatch.Sink) *ChatService {
	return &ChatService{
		Sessions: driver,
		Store:    store,
		Pipeline: pipeline,
		Dispatch: sink,
		registry: make(map[string]*session),
	}
}

func (c *ChatService) get(conversationID string) (*session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.registry[conversationID]
	return s, ok
}

// StartChat begins a new conversation, or resumes one for persistent
// sessions. Returns ErrStartChatBlocked when the guard vetoes the
// request, preventing a duplicate concurrent SDK start.
func (c *ChatService) StartChat(ctx context.Context, ownerKey string, req models.StartChatRequest) (models.ConversationView, error) {
	id := req.ConversationID
	if id == "" {
		id = uuid.NewString()
	}

	c.mu.Lock()
	s, ok := c.registry[id]
	if !ok {
		now := time.Now().UTC()
		s = &session{
			id:           id,
			ownerKey:     ownerKey,
			isPersistent: req.IsPersistent,
			endedBy:      models.EndedByNotSet,
			confirmation: models.ConfirmationNotSet,
			createdAt:    now,
			updatedAt:    now,
		}
		c.registry[id] = s
	}

	if lifecycle.ShouldPreventStartChat(s.snapshot(), s.isPersistent) {
		view := s.view()
		c.mu.Unlock()
		return view, ErrStartChatBlocked
	}

	s.state = models.StateLoading
	s.endedBy = models.EndedByNotSet
	s.startChatFailed = false
	s.scored = false
	s.survey = nil
	s.updatedAt = time.Now().UTC()
	c.mu.Unlock()

	err := c.Sessions.StartSession(ctx, id)

	c.mu.Lock()
	if err != nil {
		// Loading + startChatFailed marks a failed, not yet
		// transitioned start attempt; end-chat is permitted from here.
		s.startChatFailed = true
	} else {
		s.state = models.StateActive
	}
	s.updatedAt = time.Now().UTC()
	c.mu.Unlock()

	// The failed-start state counts as settled, so a pane already
	// confirmed Ok must dismiss here; the Active path is a no-op.
	c.dismissConfirmationIfSettled(ctx, s)

	c.mu.RLock()
	view := s.view()
	c.mu.RUnlock()

	c.persist(ctx, s.ownerKey, view)
	if err != nil {
		return view, err
	}
	c.Dispatch.PublishEvent(ctx, dispatch.NewEvent(dispatch.EventConversationStarted, id, view))
	return view, nil
}

// RequestEndChat opens the end-chat confirmation pane. The element id
// holding focus before the modal opened is remembered so focus can be
// restored when the pane dismisses.
func (c *ChatService) RequestEndChat(ctx context.Context, conversationID, previousFocusedElementID string) (models.ConversationView, error) {
	s, ok := c.get(conversationID)
	if !ok {
		return models.ConversationView{}, ErrConversationNotFound
	}

	c.mu.Lock()
	s.showConfirmation = true
	s.confirmation = models.ConfirmationNotSet
	s.previousFocusElementID = previousFocusedElementID
	s.updatedAt = time.Now().UTC()
	view := s.view()
	c.mu.Unlock()

	c.Dispatch.DispatchAction(ctx, dispatch.NewAction(dispatch.ActionSetShowConfirmation, conversationID, "true"))
	return view, nil
}

// Confirm records the user's answer in the confirmation pane. Ok
// proceeds to end the conversation; Cancel closes the pane and leaves
// the conversation running.
func (c *ChatService) Confirm(ctx context.Context, conversationID string, confirmation models.ConfirmationState) (models.ConversationView, error) {
	s, ok := c.get(conversationID)
	if !ok {
		return models.ConversationView{}, ErrConversationNotFound
	}

	c.mu.Lock()
	s.confirmation = confirmation
	s.updatedAt = time.Now().UTC()
	c.mu.Unlock()

	c.Dispatch.DispatchAction(ctx, dispatch.NewAction(dispatch.ActionSetConfirmationState, conversationID, string(confirmation)))

	if confirmation == models.ConfirmationCancel {
		c.closeConfirmationPane(ctx, s)
		c.mu.RLock()
		view := s.view()
		c.mu.RUnlock()
		return view, nil
	}
	if confirmation != models.ConfirmationOk {
		c.mu.RLock()
		view := s.view()
		c.mu.RUnlock()
		return view, nil
	}

	return c.EndChat(ctx, conversationID, models.EndedByCustomer)
}

// EndChat closes the conversation, attributing the end to the given
// entity, and runs the scoring pipeline once. Returns
// ErrEndChatBlocked while a start-chat call is still in flight.
func (c *ChatService) EndChat(ctx context.Context, conversationID string, endedBy models.ConversationEndEntity) (models.ConversationView, error) {
	return c.finish(ctx, conversationID, endedBy, true)
}

// CrossTabEnd synchronizes this tab's state after another tab already
// ended the conversation through the SDK. No SDK call is made and the
// end is attributed to the system.
func (c *ChatService) CrossTabEnd(ctx context.Context, conversationID string) (models.ConversationView, error) {
	return c.finish(ctx, conversationID, models.EndedBySystem, false)
}

func (c *ChatService) finish(ctx context.Context, conversationID string, endedBy models.ConversationEndEntity, callSDK bool) (models.ConversationView, error) {
	s, ok := c.get(conversationID)
	if !ok {
		return models.ConversationView{}, ErrConversationNotFound
	}

	c.mu.Lock()
	if lifecycle.ShouldPreventEndChat(s.snapshot()) {
		view := s.view()
		c.mu.Unlock()
		return view, ErrEndChatBlocked
	}
	alreadyScored := s.scored
	s.scored = true
	survey := s.survey
	c.mu.Unlock()

	if callSDK {
		if err := c.Sessions.EndSession(ctx, conversationID); err != nil {
			// The conversation still ends locally; the SDK session will
			// expire server-side.
			log.Printf("chat: end session failed conversation=%s err=%v", conversationID, err)
		}
	}

	c.mu.Lock()
	s.state = models.StateClosed
	s.endedBy = endedBy
	s.startChatFailed = false
	s.updatedAt = time.Now().UTC()
	view := s.view()
	c.mu.Unlock()

	c.persist(ctx, s.ownerKey, view)
	c.Dispatch.PublishEvent(ctx, dispatch.NewEvent(dispatch.EventConversationEnded, conversationID, view))

	if !alreadyScored {
		c.score(ctx, s, survey)
	}

	c.dismissConfirmationIfSettled(ctx, s)

	c.mu.RLock()
	view = s.view()
	c.mu.RUnlock()
	return view, nil
}

// score runs the single scoring pass for an ended conversation. A nil
// result means no CSAT is recorded, silently.
func (c *ChatService) score(ctx context.Context, s *session, survey *models.CopilotSurveyResponse) {
	if survey == nil && c.Store != nil {
		stored, err := c.Store.LatestSurveyResponse(ctx, s.id)
		if err != nil {
			log.Printf("chat: survey lookup failed conversation=%s err=%v", s.id, err)
		} else {
			survey = stored
		}
	}

	result := c.Pipeline.Run(ctx, s.id, survey)
	if result == nil {
		return
	}

	if c.Store != nil {
		if err := c.Store.SaveCSATResult(ctx, s.id, *result); err != nil {
			log.Printf("chat: csat save failed conversation=%s err=%v", s.id, err)
		}
	}
	c.Dispatch.PublishEvent(ctx, dispatch.NewEvent(dispatch.EventCSATRecorded, s.id, result))
}

// RecordSurvey ingests an inbound widget activity. Activities that do
// not match the strict survey shape are rejected with
// ErrNotSurveyResponse. A survey arriving after scoring re-blends and
// re-records the stored result.
func (c *ChatService) RecordSurvey(ctx context.Context, conversationID string, activity models.SurveyActivity) (*models.CopilotSurveyResponse, error) {
	if !csat.IsCopilotSurveyResponse(activity) {
		return nil, ErrNotSurveyResponse
	}

	s, ok := c.get(conversationID)
	if !ok {
		return nil, ErrConversationNotFound
	}

	survey := csat.ExtractSurveyResponse(activity, conversationID)

	c.mu.Lock()
	s.survey = survey
	scored := s.scored
	s.updatedAt = time.Now().UTC()
	c.mu.Unlock()

	if c.Store != nil {
		if err := c.Store.SaveSurveyResponse(ctx, *survey); err != nil {
			log.Printf("chat: survey save failed conversation=%s err=%v", conversationID, err)
		}
	}

	if scored {
		c.reblendStored(ctx, conversationID, survey)
	}
	return survey, nil
}

// reblendStored folds a late-arriving survey into the already recorded
// result. The upsert keeps this at one row per conversation.
func (c *ChatService) reblendStored(ctx context.Context, conversationID string, survey *models.CopilotSurveyResponse) {
	if c.Store == nil {
		return
	}
	var ai *models.CSATResult
	if rec, err := c.Store.GetCSATResult(ctx, conversationID); err == nil && !rec.Result.SurveyResponseIncluded {
		ai = &rec.Result
	}
	result := csat.BlendWithSurvey(ai, survey)
	if result == nil {
		return
	}
	if err := c.Store.SaveCSATResult(ctx, conversationID, *result); err != nil {
		log.Printf("chat: csat re-blend save failed conversation=%s err=%v", conversationID, err)
		return
	}
	c.Dispatch.PublishEvent(ctx, dispatch.NewEvent(dispatch.EventCSATRecorded, conversationID, result))
}

// Snapshot returns the current lifecycle view of a conversation.
func (c *ChatService) Snapshot(conversationID string) (models.ConversationView, error) {
	s, ok := c.get(conversationID)
	if !ok {
		return models.ConversationView{}, ErrConversationNotFound
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return s.view(), nil
}

// dismissConfirmationIfSettled re-evaluates the pane guard after a
// state transition, mirroring how the widget recomputes it on every
// state change.
func (c *ChatService) dismissConfirmationIfSettled(ctx context.Context, s *session) {
	c.mu.RLock()
	dismiss := lifecycle.ShouldDismissConfirmationPane(s.snapshot(), s.confirmation, s.showConfirmation)
	c.mu.RUnlock()
	if dismiss {
		c.closeConfirmationPane(ctx, s)
	}
}

// closeConfirmationPane hides the pane, resets the confirmation state
// for the next request, and restores focus to the element that held it
// before the modal opened.
func (c *ChatService) closeConfirmationPane(ctx context.Context, s *session) {
	c.mu.Lock()
	prev := s.previousFocusElementID
	s.showConfirmation = false
	s.confirmation = models.ConfirmationNotSet
	s.previousFocusElementID = ""
	s.updatedAt = time.Now().UTC()
	c.mu.Unlock()

	c.Dispatch.DispatchAction(ctx, dispatch.NewAction(dispatch.ActionSetShowConfirmation, s.id, "false"))
	c.Dispatch.DispatchAction(ctx, dispatch.NewAction(dispatch.ActionSetPreviousFocusedElementID, s.id, prev))
}

func (c *ChatService) persist(ctx context.Context, ownerKey string, view models.ConversationView) {
	if c.Store == nil {
		return
	}
	if err := c.Store.UpsertConversation(ctx, ownerKey, view); err != nil {
		log.Printf("chat: conversation persist failed conversation=%s err=%v", view.ConversationID, err)
	}
}
