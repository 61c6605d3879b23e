// Package domain contains core business types and interfaces.
//
// This file defines the tier catalog: subscription tiers, metered
// categories, and the per-tier usage limits and reset cadence.
package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tier is a named subscription level controlling usage limits.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
	TierMax  Tier = "max"
)

// ParseTier maps a raw tier string to a known tier.
// Unknown or empty values resolve to the free tier, never to an error.
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierPro:
		return TierPro
	case TierMax:
		return TierMax
	default:
		return TierFree
	}
}

// IsPaid returns true for tiers granted by an active subscription or coupon.
func (t Tier) IsPaid() bool {
	return t == TierPro || t == TierMax
}

// Category is one metered action type.
type Category string

const (
	CategoryProducts         Category = "products"
	CategoryImages           Category = "images"
	CategoryCopies           Category = "copies"
	CategoryContentMarketing Category = "content_marketing"
)

// Categories lists every metered category in display order.
var Categories = []Category{
	CategoryProducts,
	CategoryImages,
	CategoryCopies,
	CategoryContentMarketing,
}

// ParseCategory validates a raw category string.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryProducts, CategoryImages, CategoryCopies, CategoryContentMarketing:
		return Category(s), true
	default:
		return "", false
	}
}

var titleCaser = cases.Title(language.English)

// DisplayName returns a human-readable label for user-facing messages,
// e.g. "content_marketing" -> "Content Marketing".
func (c Category) DisplayName() string {
	return titleCaser.String(strings.ReplaceAll(string(c), "_", " "))
}

// Cadence is the window over which counters accumulate before resetting.
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceMonthly Cadence = "monthly"
)

// Unlimited marks a category without a numeric cap.
const Unlimited = -1

// TierLimits defines the per-category limits for one tier within a period.
// A limit of Unlimited means the category is never denied.
type TierLimits struct {
	Products         int
	Images           int
	Copies           int
	ContentMarketing int
}

// For returns the limit for a single category.
func (l TierLimits) For(category Category) int {
	switch category {
	case CategoryProducts:
		return l.Products
	case CategoryImages:
		return l.Images
	case CategoryCopies:
		return l.Copies
	case CategoryContentMarketing:
		return l.ContentMarketing
	default:
		return 0
	}
}

// tierCatalog maps each tier to its limits and reset cadence.
// All current tiers reset monthly; the cadence is kept per-tier so a
// daily-capped tier can be introduced without touching callers.
var tierCatalog = map[Tier]struct {
	limits  TierLimits
	cadence Cadence
}{
	TierFree: {
		limits:  TierLimits{Products: 15, Images: 15, Copies: 15, ContentMarketing: 15},
		cadence: CadenceMonthly,
	},
	TierPro: {
		limits:  TierLimits{Products: 50, Images: 50, Copies: 50, ContentMarketing: 50},
		cadence: CadenceMonthly,
	},
	TierMax: {
		limits:  TierLimits{Products: 100, Images: 100, Copies: 100, ContentMarketing: 100},
		cadence: CadenceMonthly,
	},
}

// LimitsFor returns the limits for a tier, defaulting to the free tier
// for unknown tiers.
func LimitsFor(tier Tier) TierLimits {
	if entry, ok := tierCatalog[tier]; ok {
		return entry.limits
	}
	return tierCatalog[TierFree].limits
}

// ResetCadenceFor returns the counter reset cadence for a tier,
// defaulting to the free tier's cadence for unknown tiers.
func ResetCadenceFor(tier Tier) Cadence {
	if entry, ok := tierCatalog[tier]; ok {
		return entry.cadence
	}
	return tierCatalog[TierFree].cadence
}
