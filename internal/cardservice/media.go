package cardservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/cardbind/internal/apperr"
	"github.com/starford/cardbind/internal/mediaquery"
)

// MatchRequest evaluates a media condition. With Session set the session's
// live surface is used and the remaining fields are ignored. Otherwise
// zero fields take the service defaults.
type MatchRequest struct {
	Condition   string
	Session     string
	Width       int
	Height      int
	ColorMode   string
	Density     float64
	DeviceType  string
	DeviceBrand string
	RoundScreen *bool
}

// MatchResult reports whether a condition matched and the features it was
// evaluated against.
type MatchResult struct {
	Matches  bool                `json:"matches"`
	Features mediaquery.Features `json:"features"`
}

// MatchMedia evaluates a media condition.
func (s *Service) MatchMedia(_ context.Context, req MatchRequest) (*MatchResult, error) {
	if strings.TrimSpace(req.Condition) == "" {
		return nil, fmt.Errorf("cardservice: match media: empty condition: %w", apperr.ErrInvalidInput)
	}

	if req.Session != "" {
		sess, err := s.lookup(req.Session)
		if err != nil {
			return nil, err
		}
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return &MatchResult{
			Matches:  sess.matcher.MatchCondition(req.Condition),
			Features: sess.matcher.Features(),
		}, nil
	}

	device := s.defaults.Device
	if req.Density > 0 {
		device.Density = req.Density
	}
	if req.DeviceType != "" {
		device.Type = req.DeviceType
	}
	if req.DeviceBrand != "" {
		device.Brand = req.DeviceBrand
	}
	if req.RoundScreen != nil {
		device.RoundScreen = *req.RoundScreen
	}
	width, height := req.Width, req.Height
	if width <= 0 {
		width = s.defaults.Width
	}
	if height <= 0 {
		height = s.defaults.Height
	}
	mode := s.defaults.ColorMode
	if req.ColorMode != "" {
		mode = mediaquery.ParseColorMode(req.ColorMode)
	}

	s.matchMu.Lock()
	defer s.matchMu.Unlock()
	s.matcher.SetDevice(device)
	s.matcher.SetSurfaceSize(width, height)
	s.matcher.SetColorMode(mode)
	return &MatchResult{
		Matches:  s.matcher.MatchCondition(req.Condition),
		Features: s.matcher.Features(),
	}, nil
}
