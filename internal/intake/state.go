package intake

import "fmt"

// State is the position of a session in the conversation.
type State int

const (
	StateGreeting State = iota
	StateAskName
	StateAskEmail
	StateAskRating
	StateAskComment
	StateSubmitting
	StateClosed
)

var stateNames = [...]string{
	StateGreeting:   "greeting",
	StateAskName:    "ask_name",
	StateAskEmail:   "ask_email",
	StateAskRating:  "ask_rating",
	StateAskComment: "ask_comment",
	StateSubmitting: "submitting",
	StateClosed:     "closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// InputKind discriminates the inputs a session understands.
type InputKind string

const (
	InputAccept  InputKind = "accept"
	InputDecline InputKind = "decline"
	InputAnswer  InputKind = "answer"
	InputRate    InputKind = "rate"
	InputHover   InputKind = "hover"
	InputClose   InputKind = "close"
)

// Input is one user action. Text is read for InputAnswer, Rating for InputRate and InputHover.
type Input struct {
	Kind   InputKind `json:"kind"`
	Text   string    `json:"text,omitempty"`
	Rating int       `json:"rating,omitempty"`
}

func Accept() Input { return Input{Kind: InputAccept} }
func Decline() Input { return Input{Kind: InputDecline} }
func Answer(text string) Input { return Input{Kind: InputAnswer, Text: text} }
func Rate(rating int) Input { return Input{Kind: InputRate, Rating: rating} }
func Hover(rating int) Input { return Input{Kind: InputHover, Rating: rating} }
func CloseInput() Input { return Input{Kind: InputClose} }

// step is what a state does with an input it accepts.
type step int

const (
	stepReject step = iota
	stepStart
	stepDecline
	stepName
	stepEmail
	stepRating
	stepComment
	stepHover
	stepClose
)

// transition is total over State x InputKind: anything not listed is stepReject.
func transition(state State, kind InputKind) step {
	if kind == InputClose {
		if state == StateClosed {
			return stepReject
		}
		return stepClose
	}

	switch state {
	case StateGreeting:
		switch kind {
		case InputAccept:
			return stepStart
		case InputDecline:
			return stepDecline
		}
	case StateAskName:
		if kind == InputAnswer {
			return stepName
		}
	case StateAskEmail:
		if kind == InputAnswer {
			return stepEmail
		}
	case StateAskRating:
		switch kind {
		case InputRate:
			return stepRating
		case InputHover:
			return stepHover
		}
	case StateAskComment:
		if kind == InputAnswer {
			return stepComment
		}
	}
	return stepReject
}

// Accepts reports whether the state takes the given kind of input.
func (s State) Accepts(kind InputKind) bool {
	return transition(s, kind) != stepReject
}
