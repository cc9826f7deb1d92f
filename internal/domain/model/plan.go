package model

import (
	"time"
)

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

func (p Plan) Valid() bool { return p == PlanFree || p == PlanPro }

type Feature string

const (
	FeatureAnalytics      Feature = "analytics"
	FeatureCustomThemes   Feature = "customThemes"
	FeatureRemoveBranding Feature = "removeBranding"
)

// Unlimited marks a numeric limit with no ceiling.
const Unlimited = -1

// PlanLimits is the static entitlement table entry for a plan.
type PlanLimits struct {
	MaxLinks       int  `json:"maxLinks"`
	Analytics      bool `json:"analytics"`
	CustomThemes   bool `json:"customThemes"`
	RemoveBranding bool `json:"removeBranding"`
}

var Plans = map[Plan]PlanLimits{
	PlanFree: {MaxLinks: 5},
	PlanPro:  {MaxLinks: Unlimited, Analytics: true, CustomThemes: true, RemoveBranding: true},
}

// LimitsFor returns the limits of p; unknown plans get the free tier.
func LimitsFor(p Plan) PlanLimits {
	if l, ok := Plans[p]; ok {
		return l
	}
	return Plans[PlanFree]
}

func ParseFeature(s string) (Feature, bool) {
	switch f := Feature(s); f {
	case FeatureAnalytics, FeatureCustomThemes, FeatureRemoveBranding:
		return f, true
	}
	return "", false
}

func (l PlanLimits) Allows(f Feature) bool {
	switch f {
	case FeatureAnalytics:
		return l.Analytics
	case FeatureCustomThemes:
		return l.CustomThemes
	case FeatureRemoveBranding:
		return l.RemoveBranding
	}
	return false
}

// CanAddLink reports whether one more link fits on top of current.
func (l PlanLimits) CanAddLink(current int) bool {
	return l.MaxLinks == Unlimited || current < l.MaxLinks
}

// Entitlements is the read model every feature gate works from.
type Entitlements struct {
	Plan          Plan          `json:"plan"`
	PlanExpiresAt *time.Time    `json:"planExpiresAt"`
	Subscription  *Subscription `json:"subscription"`
	Limits        PlanLimits    `json:"limits"`
}
