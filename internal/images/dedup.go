package images

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
)

// Signature is a content fingerprint used to detect the same image
// appearing on multiple pages.
type Signature string

// SignatureOf fingerprints a candidate by digesting its stream content.
// Only when no content could be obtained at all does it fall back to the
// object geometry and encoding; that fallback cannot tell apart distinct
// images of equal geometry, so content must be the normal case.
func SignatureOf(c Candidate) Signature {
	h := sha256.New()
	if len(c.Content) > 0 {
		h.Write(c.Content)
	} else {
		fmt.Fprintf(h, "%dx%d/%s", c.Width, c.Height, c.Format)
	}
	return Signature(hex.EncodeToString(h.Sum(nil)))
}

// GeometryThresholds configures the shape-based noise filter. Report
// templates vary between clinics, so none of these are hardcoded at the
// call sites.
type GeometryThresholds struct {
	// IconMaxAreaPx: near-square images at or below this area are treated
	// as icons/stamps.
	IconMaxAreaPx int
	// IconAspectLow/High bound the width:height ratio considered
	// "near-square".
	IconAspectLow  float64
	IconAspectHigh float64
	// StripMinAspect: images wider than this ratio (or taller than its
	// inverse) are treated as letterhead strips/separators.
	StripMinAspect float64
}

// DefaultGeometryThresholds returns the calibrated defaults.
func DefaultGeometryThresholds() GeometryThresholds {
	return GeometryThresholds{
		IconMaxAreaPx:  10000, // ~100x100
		IconAspectLow:  0.8,
		IconAspectHigh: 1.25,
		StripMinAspect: 6.0,
	}
}

// Filter removes decorative candidates: images repeated across pages
// (letterhead, logos) and icon/strip shapes.
type Filter struct {
	repetitionFraction float64
	geometry           GeometryThresholds
}

// NewFilter creates a filter. repetitionFraction is the fraction of
// document pages an identical image must appear on to be classified as
// decoration; the effective threshold never drops below two pages.
func NewFilter(repetitionFraction float64, geometry GeometryThresholds) *Filter {
	return &Filter{repetitionFraction: repetitionFraction, geometry: geometry}
}

// Apply runs both filters in order: cross-page repetition first, then
// geometry. Within the survivors, later occurrences of an already-seen
// signature are dropped so each image appears once. Output preserves the
// original (page, within-page) order and is deterministic for identical
// input.
func (f *Filter) Apply(candidates []Candidate, totalPages int) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	sigs := make([]Signature, len(candidates))
	pagesBySig := make(map[Signature]map[int]struct{})
	for i, c := range candidates {
		sigs[i] = SignatureOf(c)
		pages, ok := pagesBySig[sigs[i]]
		if !ok {
			pages = make(map[int]struct{})
			pagesBySig[sigs[i]] = pages
		}
		pages[c.PageNumber] = struct{}{}
	}

	threshold := f.repetitionThreshold(totalPages)

	var survivors []Candidate
	seen := make(map[Signature]struct{})
	for i, c := range candidates {
		// Letterhead assumption: genuine diagnostic images are
		// page-specific and do not repeat verbatim across the document.
		if len(pagesBySig[sigs[i]]) >= threshold {
			continue
		}
		if _, dup := seen[sigs[i]]; dup {
			continue
		}
		if f.isNoiseShape(c) {
			continue
		}
		seen[sigs[i]] = struct{}{}
		survivors = append(survivors, c)
	}

	return survivors
}

// repetitionThreshold converts the configured page fraction into a page
// count, with a floor of two pages so that two-page documents can still
// have repeated letterhead detected.
func (f *Filter) repetitionThreshold(totalPages int) int {
	n := int(math.Ceil(f.repetitionFraction * float64(totalPages)))
	if n < 2 {
		n = 2
	}
	return n
}

func (f *Filter) isNoiseShape(c Candidate) bool {
	if c.Width <= 0 || c.Height <= 0 {
		return true
	}
	aspect := float64(c.Width) / float64(c.Height)

	// Small near-square images: icons, stamps, signature marks.
	if c.Area() <= f.geometry.IconMaxAreaPx &&
		aspect >= f.geometry.IconAspectLow && aspect <= f.geometry.IconAspectHigh {
		return true
	}

	// Full-width thin strips (or full-height side bars): letterhead rules.
	if aspect >= f.geometry.StripMinAspect || aspect <= 1.0/f.geometry.StripMinAspect {
		return true
	}

	return false
}
