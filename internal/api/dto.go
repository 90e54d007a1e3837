package api

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/cardbind/internal/cardfile"
	"github.com/starford/cardbind/internal/cardservice"
	"github.com/starford/cardbind/internal/index"
	"github.com/starford/cardbind/internal/models"
)

var colorModes = []any{"light", "dark"}

// OpenSessionRequest is the request body for opening a render session.
type OpenSessionRequest struct {
	Bundle    string          `json:"bundle" example:"weather" validate:"required"`
	Locale    string          `json:"locale,omitempty" example:"en-US"`
	ColorMode string          `json:"color_mode,omitempty" example:"dark"`
	Width     int             `json:"width,omitempty" example:"360"`
	Height    int             `json:"height,omitempty" example:"360"`
	Density   float64         `json:"density,omitempty" example:"2"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (r OpenSessionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Bundle, validation.Required),
		validation.Field(&r.ColorMode, validation.In(colorModes...)),
		validation.Field(&r.Width, validation.Min(0)),
		validation.Field(&r.Height, validation.Min(0)),
		validation.Field(&r.Density, validation.Min(0.0), validation.Max(8.0)),
	)
}

// SurfaceRequest is the request body for a surface size change.
type SurfaceRequest struct {
	Width  int `json:"width" example:"800" validate:"required"`
	Height int `json:"height" example:"600" validate:"required"`
}

func (r SurfaceRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Width, validation.Required, validation.Min(1)),
		validation.Field(&r.Height, validation.Required, validation.Min(1)),
	)
}

// ColorModeRequest is the request body for a color mode change.
type ColorModeRequest struct {
	Mode string `json:"mode" example:"dark" validate:"required"`
}

func (r ColorModeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Mode, validation.Required, validation.In(colorModes...)),
	)
}

// EvaluateRequest is the request body for evaluating a binding expression.
type EvaluateRequest struct {
	Expression string `json:"expression" example:"{{title}}" validate:"required"`
}

func (r EvaluateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Expression, validation.Required),
	)
}

// EvaluateResponse carries the resolved expression.
type EvaluateResponse struct {
	Expression string `json:"expression" validate:"required"`
	Value      string `json:"value" validate:"required"`
}

// MatchMediaRequest is the request body for evaluating a media condition.
type MatchMediaRequest struct {
	Condition   string  `json:"condition" example:"(min-width: 600) and (dark-mode: true)" validate:"required"`
	Session     string  `json:"session,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	ColorMode   string  `json:"color_mode,omitempty"`
	Density     float64 `json:"density,omitempty"`
	DeviceType  string  `json:"device_type,omitempty" example:"wearable"`
	DeviceBrand string  `json:"device_brand,omitempty"`
	RoundScreen *bool   `json:"round_screen,omitempty"`
}

func (r MatchMediaRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Condition, validation.Required),
		validation.Field(&r.ColorMode, validation.In(colorModes...)),
		validation.Field(&r.Width, validation.Min(0)),
		validation.Field(&r.Height, validation.Min(0)),
		validation.Field(&r.Density, validation.Min(0.0)),
	)
}

// BundleListResponse wraps the bundle listing.
type BundleListResponse struct {
	Bundles []models.Bundle `json:"bundles" validate:"required"`
}

// SyncResponse lists the bundles changed by a rescan.
type SyncResponse struct {
	Changes []index.Change `json:"changes" validate:"required"`
}

// SessionListResponse wraps the session listing.
type SessionListResponse struct {
	Sessions []models.Session `json:"sessions" validate:"required"`
}

// RenderResponse is returned by every session operation that re-renders.
type RenderResponse = cardservice.Render

// ContractResponse describes what a bundle's card binds to.
type ContractResponse = cardfile.Summary

// MatchMediaResponse is the result of a media condition evaluation.
type MatchMediaResponse = cardservice.MatchResult
