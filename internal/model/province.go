package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ProvinceTier classifies a province for the tax-reduction program.
type ProvinceTier string

const (
	TierPrimary   ProvinceTier = "primary"
	TierSecondary ProvinceTier = "secondary"
)

const (
	PrimaryTaxReductionRate   = 0.50
	SecondaryTaxReductionRate = 0.25
)

// rateTolerance absorbs float noise from JSON input like 0.5000001.
const rateTolerance = 1e-6

// IsValid reports whether t is one of the known tiers.
func (t ProvinceTier) IsValid() bool {
	return t == TierPrimary || t == TierSecondary
}

// TaxReductionRate returns the rate a tier grants.
func (t ProvinceTier) TaxReductionRate() float64 {
	if t == TierPrimary {
		return PrimaryTaxReductionRate
	}
	return SecondaryTaxReductionRate
}

// ParseProvinceTier parses "primary"/"secondary" case-insensitively.
func ParseProvinceTier(s string) (ProvinceTier, error) {
	switch ProvinceTier(strings.ToLower(strings.TrimSpace(s))) {
	case TierPrimary:
		return TierPrimary, nil
	case TierSecondary:
		return TierSecondary, nil
	}
	return "", fmt.Errorf("unknown province tier %q", s)
}

// TierFromRate maps a tax-reduction rate onto its tier. Only 0.50 and 0.25 are defined.
func TierFromRate(rate float64) (ProvinceTier, error) {
	switch {
	case math.Abs(rate-PrimaryTaxReductionRate) < rateTolerance:
		return TierPrimary, nil
	case math.Abs(rate-SecondaryTaxReductionRate) < rateTolerance:
		return TierSecondary, nil
	}
	return "", fmt.Errorf("unsupported tax reduction rate %v", rate)
}

// Province is a catalog entry a citizen may target.
type Province struct {
	ID               int64        `json:"id"`
	Name             string       `json:"name"`
	Tier             ProvinceTier `json:"tier"`
	TaxReductionRate float64      `json:"tax_reduction_rate"`
	CreatedDate      time.Time    `json:"created_date"`
	UpdatedDate      time.Time    `json:"updated_date"`
}

// NewProvince builds a province with the rate derived from its tier.
func NewProvince(name string, tier ProvinceTier) Province {
	now := time.Now()
	return Province{
		Name:             name,
		Tier:             tier,
		TaxReductionRate: tier.TaxReductionRate(),
		CreatedDate:      now,
		UpdatedDate:      now,
	}
}

// IsPrimary is shorthand for p.Tier == TierPrimary.
func (p Province) IsPrimary() bool {
	return p.Tier == TierPrimary
}

type ProvinceList struct {
	Provinces []Province `json:"provinces"`
}

// UpdateProvinceRequest is used for administrative province edits.
// Tier wins over TaxReductionRate when both are present.
type UpdateProvinceRequest struct {
	Name             *string  `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Tier             *string  `json:"tier,omitempty" binding:"omitempty,oneof=primary secondary"`
	TaxReductionRate *float64 `json:"tax_reduction_rate,omitempty"`
}
