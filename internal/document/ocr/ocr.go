// Package ocr runs the recognition ensemble: every preprocessing variant under
// every profile, joined into candidates in matrix order.
package ocr

import (
	"context"
	"errors"
	"image"

	"suiverify/internal/document/imaging"
)

//go:generate mockgen -source=ocr.go -destination=mocks/mocks.go -package=mocks Engine

// ErrUnavailable is returned when no matrix entry produced text.
var ErrUnavailable = errors.New("ocr unavailable: every profile failed")

// Engine is the recognition black box. It must be safe for concurrent use.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, profile Profile) (string, error)
}

// PageSegMode mirrors Tesseract's layout analysis modes.
type PageSegMode int

const (
	PSMAuto        PageSegMode = 3
	PSMSingleBlock PageSegMode = 6
	PSMSparseText  PageSegMode = 11
)

// ProfileID names an engine configuration.
type ProfileID string

const (
	ProfileBlock          ProfileID = "block"
	ProfileAuto           ProfileID = "auto"
	ProfileSparse         ProfileID = "sparse"
	ProfileBlockWhitelist ProfileID = "block_whitelist"
)

// Profile is one engine configuration of the matrix.
type Profile struct {
	ID        ProfileID
	Languages []string
	PSM       PageSegMode
	Whitelist string
}

const panWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789/- "

// DefaultProfiles covers single blocks, full pages and sparse text.
func DefaultProfiles() []Profile {
	eng := []string{"eng"}
	return []Profile{
		{ID: ProfileBlock, Languages: eng, PSM: PSMSingleBlock},
		{ID: ProfileAuto, Languages: eng, PSM: PSMAuto},
		{ID: ProfileSparse, Languages: eng, PSM: PSMSparseText},
		{ID: ProfileBlockWhitelist, Languages: eng, PSM: PSMSingleBlock, Whitelist: panWhitelist},
	}
}

// Candidate is the text one matrix entry produced. Attempt is the matrix slot
// and orders candidates for tie-breaks.
type Candidate struct {
	Profile ProfileID
	Variant imaging.VariantID
	Text    string
	Attempt int
}
