package events

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/feediq/internal/domain/entities"
)

const subscriberBuffer = 100

// fanout delivers each event to every subscriber channel of its topic.
// Full subscribers miss the event instead of blocking the publisher.
type fanout struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.FeedbackEvent]struct{}
}

func newFanout() *fanout {
	return &fanout{subscribers: make(map[string]map[chan *entities.FeedbackEvent]struct{})}
}

func (f *fanout) add(channel string) (chan *entities.FeedbackEvent, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subscribers[channel] == nil {
		f.subscribers[channel] = make(map[chan *entities.FeedbackEvent]struct{})
	}
	ch := make(chan *entities.FeedbackEvent, subscriberBuffer)
	f.subscribers[channel][ch] = struct{}{}
	return ch, len(f.subscribers[channel])
}

// remove closes ch and returns how many subscribers the channel has left.
func (f *fanout) remove(channel string, ch chan *entities.FeedbackEvent) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	subscribers, ok := f.subscribers[channel]
	if !ok {
		return 0
	}
	if _, ok := subscribers[ch]; ok {
		delete(subscribers, ch)
		close(ch)
	}
	if len(subscribers) == 0 {
		delete(f.subscribers, channel)
	}
	return len(subscribers)
}

func (f *fanout) broadcast(channel string, event *entities.FeedbackEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for subscriber := range f.subscribers[channel] {
		select {
		case subscriber <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber channel full, skipping event")
		}
	}
}

func (f *fanout) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for channel, subscribers := range f.subscribers {
		for ch := range subscribers {
			close(ch)
		}
		delete(f.subscribers, channel)
	}
}
