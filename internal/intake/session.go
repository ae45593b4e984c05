package intake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/domain/providers"
	apperrors "github.com/zatekoja/feediq/pkg/errors"
)

// AutoCloseDelay is how long a finished conversation stays open before it closes itself.
const AutoCloseDelay = 3 * time.Second

// DefaultIdleTimeout closes a conversation nobody has touched for this long.
const DefaultIdleTimeout = 15 * time.Minute

const (
	promptGreeting = "Hi 👋! We'd love your feedback. Can we ask you a few questions to improve our service?"
	promptName     = "Great! Let's start. What's your name?"
	promptEmail    = "Nice to meet you, %s! What's your email? (Optional)"
	promptRating   = "How would you rate your experience? (1-5 stars)"
	promptComment  = "Thank you! Please share your feedback or comments:"
	messageThanks  = "Thank you %s! Your feedback has been saved. 🌟"
	messageSorry   = "Sorry, there was an error saving your feedback. Please try again."

	fallbackStoreFailure = "Failed to save feedback"
)

var (
	// ErrUnexpectedInput is returned when the current state does not take the given kind of input.
	ErrUnexpectedInput = &apperrors.AppError{
		Type:    apperrors.ErrorTypeConflict,
		Code:    "UNEXPECTED_INPUT",
		Message: "this step does not accept that input",
	}
	// ErrSessionClosed is returned for any input after the session closed.
	ErrSessionClosed = &apperrors.AppError{
		Type:    apperrors.ErrorTypeConflict,
		Code:    "SESSION_CLOSED",
		Message: "the conversation is closed",
	}
)

// Store is the part of the storage collaborator the conversation needs.
type Store interface {
	Append(ctx context.Context, draft entities.FeedbackDraft) (*entities.Feedback, error)
}

// Role tells who said a transcript line.
type Role string

const (
	RoleBot  Role = "bot"
	RoleUser Role = "user"
)

// Message is one transcript line. The transcript is presentation state only.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Signal is the user-visible outcome of handling an input.
type Signal string

const (
	SignalNone     Signal = ""
	SignalRejected Signal = "rejected"
	SignalSaved    Signal = "saved"
	SignalUrgent   Signal = "urgent"
	SignalFailed   Signal = "failed"
)

// Notice pairs a signal with the message to show.
type Notice struct {
	Signal  Signal `json:"signal,omitempty"`
	Message string `json:"message,omitempty"`
}

// Answers are the values collected so far.
type Answers struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Timer is a pending auto-close.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Session.
type Option func(*Session)

// WithScheduler replaces the wall-clock scheduler used for auto-close.
func WithScheduler(scheduler Scheduler) Option {
	return func(s *Session) { s.scheduler = scheduler }
}

// WithAutoCloseDelay overrides AutoCloseDelay.
func WithAutoCloseDelay(delay time.Duration) Option {
	return func(s *Session) {
		if delay > 0 {
			s.delay = delay
		}
	}
}

// WithIdleTimeout closes the session once no input arrived for d. Zero disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.idleTimeout = d
		}
	}
}

// WithOnClose registers a hook run once, outside the session lock, when the session closes.
func WithOnClose(hook func(*Session)) Option {
	return func(s *Session) { s.onClose = append(s.onClose, hook) }
}

// Session is one conversation. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id         string
	state      State
	answers    Answers
	hover      int
	transcript []Message
	notice     Notice
	record     *entities.Feedback
	timer      Timer

	// submitting is set while the store call runs without the lock
	submitting bool

	idle        Timer
	idleGen     uint64
	idleTimeout time.Duration

	store     Store
	env       providers.Environment
	scheduler Scheduler
	delay     time.Duration
	onClose   []func(*Session)
}

// NewSession opens a conversation at the greeting.
func NewSession(store Store, env providers.Environment, opts ...Option) *Session {
	if env == nil {
		env = providers.StaticEnvironment{}
	}
	s := &Session{
		id:         uuid.NewString(),
		state:      StateGreeting,
		transcript: []Message{{Role: RoleBot, Content: promptGreeting}},
		store:      store,
		env:        env,
		scheduler:  clockScheduler{},
		delay:      AutoCloseDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.touchLocked()
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle applies one input. Validation failures leave the state unchanged and
// return the matching validation error together with a rejected notice.
// The store is called without holding the session lock, so Snapshot and
// Close stay responsive during a slow save.
func (s *Session) Handle(ctx context.Context, in Input) (Notice, error) {
	s.mu.Lock()

	var (
		notice Notice
		err    error
		hooks  []func(*Session)
		draft  *entities.FeedbackDraft
	)

	switch transition(s.state, in.Kind) {
	case stepStart:
		s.say(RoleBot, promptName)
		s.state = StateAskName

	case stepDecline, stepClose:
		hooks = s.closeLocked()

	case stepName:
		if err = ValidateName(in.Text); err != nil {
			notice = rejected(err)
			break
		}
		s.answers.Name = strings.TrimSpace(in.Text)
		s.say(RoleUser, s.answers.Name)
		s.say(RoleBot, fmt.Sprintf(promptEmail, s.answers.Name))
		s.state = StateAskEmail

	case stepEmail:
		if err = ValidateEmail(in.Text); err != nil {
			notice = rejected(err)
			break
		}
		s.answers.Email = in.Text
		echo := in.Text
		if echo == "" {
			echo = "Skipped"
		}
		s.say(RoleUser, echo)
		s.say(RoleBot, promptRating)
		s.state = StateAskRating

	case stepRating:
		if err = ValidateRating(in.Rating); err != nil {
			notice = rejected(err)
			break
		}
		s.answers.Rating = in.Rating
		s.say(RoleUser, fmt.Sprintf("%d stars", in.Rating))
		s.say(RoleBot, promptComment)
		s.state = StateAskComment

	case stepHover:
		if in.Rating < 0 || in.Rating > 5 {
			in.Rating = 0
		}
		s.hover = in.Rating

	case stepComment:
		if err = ValidateComment(in.Text); err != nil {
			notice = rejected(err)
			break
		}
		s.answers.Comment = strings.TrimSpace(in.Text)
		s.say(RoleUser, s.answers.Comment)
		draft = s.beginSubmitLocked()

	default:
		if s.state == StateClosed {
			err = ErrSessionClosed
		} else {
			err = ErrUnexpectedInput
		}
	}

	if notice.Signal != SignalNone {
		s.notice = notice
	}
	if err == nil || notice.Signal == SignalRejected {
		s.touchLocked()
	}
	s.mu.Unlock()

	if draft != nil {
		notice, hooks = s.finishSubmit(ctx, *draft)
	}

	for _, hook := range hooks {
		hook(s)
	}
	return notice, err
}

// Close ends the conversation early. Closing twice is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	hooks := s.closeLocked()
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(s)
	}
}

// beginSubmitLocked moves to submitting and returns the draft to save.
func (s *Session) beginSubmitLocked() *entities.FeedbackDraft {
	s.state = StateSubmitting
	s.submitting = true
	return &entities.FeedbackDraft{
		Name:    s.answers.Name,
		Email:   s.answers.Email,
		Rating:  s.answers.Rating,
		Comment: s.answers.Comment,
		Page:    s.env.Page(),
		Device:  s.env.Device(),
	}
}

// finishSubmit hands the draft to the store, records the outcome and
// schedules the auto-close. A Close that arrived during the save has its
// hooks run here, once the outcome is known.
func (s *Session) finishSubmit(ctx context.Context, draft entities.FeedbackDraft) (Notice, []func(*Session)) {
	record, err := s.append(ctx, draft)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false

	var notice Notice
	if err != nil {
		s.say(RoleBot, messageSorry)
		notice = Notice{Signal: SignalFailed, Message: apperrors.UserMessage(err, fallbackStoreFailure)}
	} else {
		s.record = record
		s.say(RoleBot, fmt.Sprintf(messageThanks, s.answers.Name))
		if record.IsLowRating() {
			notice = Notice{Signal: SignalUrgent, Message: "Low rating alert: This feedback requires immediate attention!"}
		} else {
			notice = Notice{Signal: SignalSaved, Message: "Feedback saved successfully!"}
		}
	}

	s.notice = notice

	if s.state == StateClosed {
		hooks := s.onClose
		s.onClose = nil
		return notice, hooks
	}
	s.timer = s.scheduler.AfterFunc(s.delay, s.Close)
	return notice, nil
}

func (s *Session) append(ctx context.Context, draft entities.FeedbackDraft) (*entities.Feedback, error) {
	if s.store == nil {
		return nil, apperrors.NewStoreError(fallbackStoreFailure, fmt.Errorf("no store configured"))
	}
	return s.store.Append(ctx, draft)
}

func (s *Session) closeLocked() []func(*Session) {
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	if s.submitting {
		return nil
	}
	hooks := s.onClose
	s.onClose = nil
	return hooks
}

// touchLocked restarts the idle timer.
func (s *Session) touchLocked() {
	if s.idleTimeout <= 0 || s.state == StateClosed {
		return
	}
	if s.idle != nil {
		s.idle.Stop()
	}
	s.idleGen++
	gen := s.idleGen
	s.idle = s.scheduler.AfterFunc(s.idleTimeout, func() { s.expire(gen) })
}

// expire closes the session unless an input arrived after the timer was armed.
func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.idleGen {
		s.mu.Unlock()
		return
	}
	hooks := s.closeLocked()
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(s)
	}
}

func (s *Session) say(role Role, content string) {
	s.transcript = append(s.transcript, Message{Role: role, Content: content})
}

func rejected(err error) Notice {
	return Notice{Signal: SignalRejected, Message: apperrors.UserMessage(err, err.Error())}
}

// Snapshot is a read-only copy of the session for rendering.
type Snapshot struct {
	ID          string             `json:"id"`
	State       State              `json:"state"`
	Answers     Answers            `json:"answers"`
	HoverRating int                `json:"hover_rating"`
	HoverLabel  string             `json:"hover_label"`
	Transcript  []Message          `json:"transcript"`
	Notice      Notice             `json:"notice"`
	Record      *entities.Feedback `json:"record,omitempty"`
	AutoClosing bool               `json:"auto_closing"`
}

// Snapshot copies the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript := make([]Message, len(s.transcript))
	copy(transcript, s.transcript)

	return Snapshot{
		ID:          s.id,
		State:       s.state,
		Answers:     s.answers,
		HoverRating: s.hover,
		HoverLabel:  HoverLabel(s.hover),
		Transcript:  transcript,
		Notice:      s.notice,
		Record:      s.record,
		AutoClosing: s.timer != nil,
	}
}

// HoverLabel names a star value for the rating picker.
func HoverLabel(rating int) string {
	switch rating {
	case 1:
		return "Poor"
	case 2:
		return "Fair"
	case 3:
		return "Good"
	case 4:
		return "Very Good"
	case 5:
		return "Excellent"
	default:
		return "Select a rating"
	}
}
