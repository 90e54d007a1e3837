// Package models defines the domain types shared by the cardbind services.
package models

import "time"

// Bundle is a card bundle directory indexed from the bundles root.
type Bundle struct {
	Name      string    `json:"name"`
	CardFile  string    `json:"card_file"`
	Checksum  string    `json:"checksum"`
	FileCount int       `json:"file_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssetMetadata is a lightweight representation of one bundle file.
type AssetMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is the persisted state of a live render session.
type Session struct {
	ID        string    `json:"id"`
	Bundle    string    `json:"bundle"`
	Locale    string    `json:"locale"`
	ColorMode string    `json:"color_mode"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	NodeCount int       `json:"node_count"`
	Updates   int       `json:"updates"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
