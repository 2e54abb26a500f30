// file: internal/models/catalog.go
// version: 1.0.0
// guid: 9d2ce1c5-14d1-4da8-8d59-b682065a121c

package models

import "strings"

// Unknown is the placeholder used for vendor or version values that could not be determined
const Unknown = "unknown"

// Candidate is one catalog entry. Candidates are read-only once loaded.
type Candidate struct {
	CatalogID           string `json:"catalog_id" db:"id"`
	ConfigurationString string `json:"configuration_string" db:"configuration_string"`
	Part                string `json:"part,omitempty" db:"part"`
	Vendor              string `json:"vendor" db:"vendor"`
	Product             string `json:"product" db:"product"`
	Version             string `json:"version" db:"version"`
	Update              string `json:"update" db:"update_"`
	Edition             string `json:"edition" db:"edition"`
	Language            string `json:"language,omitempty" db:"language"`
	SWEdition           string `json:"sw_edition" db:"sw_edition"`
	TargetSW            string `json:"target_sw" db:"target_sw"`
	TargetHW            string `json:"target_hw" db:"target_hw"`
	Other               string `json:"other,omitempty" db:"other"`
}

// Text is the short human-readable form used for embeddings and prompts
func (c Candidate) Text() string {
	parts := []string{c.Vendor, c.Product}
	if c.Version != "" && c.Version != "*" && c.Version != "-" {
		parts = append(parts, c.Version)
	}
	for _, extra := range []string{c.Update, c.SWEdition, c.TargetHW} {
		if extra != "" && extra != "*" && extra != "-" {
			parts = append(parts, extra)
		}
	}
	return strings.ReplaceAll(strings.Join(parts, " "), "_", " ")
}

// VendorProduct is a distinct (vendor, product) pair from the catalog
type VendorProduct struct {
	Vendor  string `json:"vendor"`
	Product string `json:"product"`
}

// ID returns the stable identifier used for index documents
func (vp VendorProduct) ID() string {
	return vp.Vendor + ":" + vp.Product
}

// InstalledApp is one application line reported by an endpoint scan
type InstalledApp struct {
	ComputerName    string `json:"computer_name" db:"computer_name"`
	ScanID          string `json:"scan_id" db:"scan_id"`
	ApplicationName string `json:"application_name" db:"application_name"`
}
