package model

import "time"

// Quota caps per user.
const (
	MaxPrimaryQuota   = 3
	MaxSecondaryQuota = 2
	MaxTotalQuota     = 5
)

// ExclusionReasonAddress marks provinces hidden because they match the user's address.
const ExclusionReasonAddress = "matches_user_address"

// UserProvince links a user to one of their target provinces
type UserProvince struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ProvinceID  int64     `json:"province_id"`
	CreatedDate time.Time `json:"created_date"`
}

type AddUserProvinceRequest struct {
	ProvinceID int64 `json:"province_id" binding:"required,gt=0"`
}

// QuotaStatus is a quota snapshot computed from the user's current links.
type QuotaStatus struct {
	TotalProvinces          int `json:"total_provinces"`
	PrimaryProvinces        int `json:"primary_provinces"`
	SecondaryProvinces      int `json:"secondary_provinces"`
	RemainingPrimaryQuota   int `json:"remaining_primary_quota"`
	RemainingSecondaryQuota int `json:"remaining_secondary_quota"`
	MaxPrimaryQuota         int `json:"max_primary_quota"`
	MaxSecondaryQuota       int `json:"max_secondary_quota"`
	MaxTotalQuota           int `json:"max_total_quota"`
}

// RemainingTotalQuota is the number of slots left regardless of tier.
func (q QuotaStatus) RemainingTotalQuota() int {
	return max(0, q.MaxTotalQuota-q.TotalProvinces)
}

// RemainingFor returns the tier-specific remaining quota.
func (q QuotaStatus) RemainingFor(tier ProvinceTier) int {
	if tier == TierPrimary {
		return q.RemainingPrimaryQuota
	}
	return q.RemainingSecondaryQuota
}

// AddTargetProvinceResult confirms a successful target-province selection.
type AddTargetProvinceResult struct {
	Message          string         `json:"message"`
	Link             UserProvince   `json:"user_province"`
	ProvinceID       int64          `json:"province_id"`
	ProvinceName     string         `json:"province_name"`
	ProvinceType     ProvinceTier   `json:"province_type"`
	TaxReductionRate float64        `json:"tax_reduction_rate"`
	RemainingQuota   RemainingQuota `json:"remaining_quota"`
	Quota            QuotaStatus    `json:"quota_status"`
}

// RemainingQuota is the short quota summary returned after an addition.
// Total counts selected provinces, not free slots.
type RemainingQuota struct {
	Primary   int `json:"primary"`
	Secondary int `json:"secondary"`
	Total     int `json:"total"`
}

// RemoveTargetProvinceResult confirms a removal.
type RemoveTargetProvinceResult struct {
	Message      string       `json:"message"`
	ProvinceID   int64        `json:"province_id"`
	ProvinceName string       `json:"province_name"`
	ProvinceType ProvinceTier `json:"province_type"`
}

type ExcludedProvince struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type AvailableProvinces struct {
	Primary   []Province `json:"primary"`
	Secondary []Province `json:"secondary"`
}

// AvailabilityReport lists what a user may still select.
type AvailabilityReport struct {
	QuotaStatus        QuotaStatus        `json:"quota_status"`
	UserAddress        string             `json:"user_address"`
	AvailableProvinces AvailableProvinces `json:"available_provinces"`
	ExcludedProvinces  []ExcludedProvince `json:"excluded_provinces"`
	TotalAvailable     int                `json:"total_available"`
	TotalExcluded      int                `json:"total_excluded"`
}

type QuotaUsage struct {
	PrimaryUsed        int `json:"primary_used"`
	PrimaryRemaining   int `json:"primary_remaining"`
	SecondaryUsed      int `json:"secondary_used"`
	SecondaryRemaining int `json:"secondary_remaining"`
	TotalUsed          int `json:"total_used"`
	TotalRemaining     int `json:"total_remaining"`
}

// UserProvincesReport is the admin view of one user's selections.
type UserProvincesReport struct {
	UserID             int64      `json:"user_id"`
	UserName           string     `json:"user_name"`
	TotalProvinces     int        `json:"total_provinces"`
	PrimaryProvinces   []Province `json:"primary_provinces"`
	SecondaryProvinces []Province `json:"secondary_provinces"`
	QuotaUsage         QuotaUsage `json:"quota_usage"`
}
