package courtbot

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Intent is one named turn handler the bot can route to.
type Intent interface {
	Name() string
	Handle(ctx context.Context, event *Event) Response
}

// Router dispatches a turn to the handler registered for the event's
// intent name.
type Router struct {
	intents []Intent
	logger  zerolog.Logger
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{logger: log.Logger}
}

// Add registers an intent handler. Re-registering a name is a no-op.
func (r *Router) Add(i Intent) {
	if !r.contains(i) {
		r.intents = append(r.intents, i)
	}
}

func (r *Router) contains(i Intent) bool {
	for _, intent := range r.intents {
		if intent.Name() == i.Name() {
			return true
		}
	}
	return false
}

// Dispatch routes one turn. An intent with no registered handler closes as
// Failed so the runtime never sees a malformed response.
func (r *Router) Dispatch(ctx context.Context, event *Event) Response {
	name := event.SessionState.Intent.Name
	for _, intent := range r.intents {
		if intent.Name() == name {
			return intent.Handle(ctx, event)
		}
	}

	r.logger.Warn().Str("intent", name).Msg("no handler registered for intent")
	return CloseIntent(event, StateFailed, "No puedo ayudarte con eso todavía.")
}
