package cardservice

import (
	"log/slog"

	"github.com/starford/cardbind/internal/mediaquery"
	"github.com/starford/cardbind/internal/sse"
)

// Defaults are the device settings used when a request leaves them out.
type Defaults struct {
	Width      int
	Height     int
	Locale     string
	ColorMode  mediaquery.ColorMode
	APIVersion int
	Device     mediaquery.Device
}

// Publisher receives SSE events. *sse.Broker implements it.
type Publisher interface {
	Publish(event sse.Event)
	PublishBundleEvent(kind, bundle string)
}

// Option is a functional option for configuring the Service.
type Option func(*Service)

// WithLogger sets the service logger. It is also handed to every card.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPublisher streams render batches and bundle changes to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithDefaults sets the fallback device settings.
func WithDefaults(d Defaults) Option {
	return func(s *Service) { s.defaults = d }
}
