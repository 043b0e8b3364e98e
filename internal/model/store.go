// Package model contains the struct definitions shared across packages.
package model

import (
	"fmt"
	"time"
)

// Store is a catalog entry. PDFPath and LogoPath hold blob-storage paths, not
// URLs; resolving them to something servable is the storage layer's job.
type Store struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LogoPath  string    `json:"-"`
	PDFPath   string    `json:"-"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StoreImage is one gallery image owned by a store. Images converted from an
// uploaded PDF carry IsFromPDF plus the 1-based page they came from; directly
// uploaded images leave PDFPage nil. SortOrder defines display order within a
// store and is shared between both kinds.
type StoreImage struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"storeId"`
	ImagePath string    `json:"-"`
	IsFromPDF bool      `json:"isFromPdf"`
	PDFPage   *int      `json:"pdfPage,omitempty"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ConversionStrategy names the tier that ultimately produced the persisted
// pages of a conversion.
type ConversionStrategy string

const (
	StrategyNone         ConversionStrategy = "none"
	StrategyNativeLib    ConversionStrategy = "native"
	StrategyExternalTool ConversionStrategy = "external-tools"
	StrategyPlaceholder  ConversionStrategy = "placeholder"
)

// ConversionOutcome summarizes one pipeline run. It is transient; nothing in
// it is persisted.
type ConversionOutcome struct {
	Pages     int                `json:"pages"`
	Expected  int                `json:"expected"`
	Strategy  ConversionStrategy `json:"strategy"`
	Succeeded bool               `json:"succeeded"`
}

// Degraded reports whether the conversion completed below the best available
// fidelity: placeholder pages, missing pages, or no pages at all.
func (o ConversionOutcome) Degraded() bool {
	if !o.Succeeded || o.Strategy == StrategyPlaceholder || o.Strategy == StrategyNone {
		return true
	}
	return o.Pages < o.Expected
}

// Message renders the user-facing result line for a store create/update that
// included a PDF. The verb is "created" or "updated".
func (o ConversionOutcome) Message(verb string) string {
	if o.Degraded() {
		return fmt.Sprintf("Store %s, but PDF conversion failed. Using placeholder images.", verb)
	}
	return fmt.Sprintf("Store %s successfully.", verb)
}
