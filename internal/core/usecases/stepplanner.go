package usecases

import (
	"strings"

	"github.com/aldatz/topagune/internal/core/domain"
)

// The step planner is a pure, deterministic rule table: the same profile
// always yields the same step sequence. No I/O happens here.

// NonBarRestaurantCap returns how many non-bar restaurant stops a meeting
// of the given length may contain.
func NonBarRestaurantCap(durationMin int) int {
	switch {
	case durationMin > 360:
		return 2
	case durationMin > 180:
		return 1
	default:
		return 0
	}
}

// MinStepCount returns the minimum number of steps for a meeting length.
func MinStepCount(durationMin int) int {
	switch {
	case durationMin < 120:
		return 1
	case durationMin < 180:
		return 2
	case durationMin < 480:
		return 3
	default:
		return 4
	}
}

// activityKeywords map free-text preference hints to plannable categories.
var activityKeywords = map[string]domain.StopCategory{
	"karaoke":  domain.CategoryActivity,
	"bowling":  domain.CategoryActivity,
	"billiard": domain.CategoryActivity,
	"darts":    domain.CategoryActivity,
	"arcade":   domain.CategoryActivity,
	"escape":   domain.CategoryActivity,
	"climbing": domain.CategoryActivity,
	"museum":   domain.CategoryCulture,
	"gallery":  domain.CategoryCulture,
	"cinema":   domain.CategoryCulture,
	"park":     domain.CategoryNature,
	"garden":   domain.CategoryNature,
	"shopping": domain.CategoryShopping,
	"market":   domain.CategoryShopping,
	"spa":      domain.CategoryRest,
	"sauna":    domain.CategoryRest,
	"massage":  domain.CategoryRest,
}

// cuisineHints are recognised meal subcategories, checked in this order so
// output stays deterministic regardless of map iteration.
var cuisineHints = []string{
	"sushi", "ramen", "pintxos", "tapas", "italian", "pizza", "pasta",
	"korean", "thai", "indian", "burger", "seafood", "steak", "vegan",
	"vegetarian", "bbq", "noodles",
}

type planContext struct {
	profile      domain.GroupProfile
	steps        []domain.Step
	capRemaining int
	restaurants  int
	used         map[domain.StopCategory]bool
}

func (c *planContext) add(s domain.Step) {
	c.steps = append(c.steps, s)
	c.used[s.Category] = true
	if s.Category == domain.CategoryRestaurant {
		c.restaurants++
		if c.capRemaining > 0 {
			c.capRemaining--
		}
	}
}

func (c *planContext) hasPurpose(tags ...string) bool {
	for _, p := range c.profile.Purposes {
		p = strings.ToLower(strings.TrimSpace(p))
		for _, t := range tags {
			if p == t {
				return true
			}
		}
	}
	return false
}

func (c *planContext) lowBudget() bool { return c.profile.BudgetTier <= 1 }

// cafeOrMeetingOnly reports a session framed purely around sitting and
// talking: cafe, chat, meeting, or work purposes and nothing else.
func (c *planContext) cafeOrMeetingOnly() bool {
	if len(c.profile.Purposes) == 0 {
		return false
	}
	for _, p := range c.profile.Purposes {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "cafe", "chat", "meeting", "work":
		default:
			return false
		}
	}
	return true
}

func (c *planContext) mealOnly() bool {
	if len(c.profile.Purposes) == 0 {
		return false
	}
	for _, p := range c.profile.Purposes {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "meal", "lunch", "dinner", "brunch":
		default:
			return false
		}
	}
	return true
}

// activityPreference returns the first participant preference that maps to
// a non-restaurant activity category.
func (c *planContext) activityPreference() (string, domain.StopCategory, bool) {
	for _, pref := range c.profile.Preferences {
		low := strings.ToLower(pref)
		for _, kw := range activityKeywordOrder {
			if strings.Contains(low, kw) {
				return pref, activityKeywords[kw], true
			}
		}
	}
	return "", "", false
}

// activityKeywordOrder fixes the scan order over activityKeywords.
var activityKeywordOrder = []string{
	"karaoke", "bowling", "billiard", "darts", "arcade", "escape", "climbing",
	"museum", "gallery", "cinema", "park", "garden", "shopping", "market",
	"spa", "sauna", "massage",
}

func (c *planContext) cafePreference() bool {
	for _, pref := range c.profile.Preferences {
		low := strings.ToLower(pref)
		if strings.Contains(low, "cafe") || strings.Contains(low, "coffee") {
			return true
		}
	}
	return false
}

// HasDrinkSignal reports whether the group expressed interest in bars.
func HasDrinkSignal(p domain.GroupProfile) bool {
	for _, t := range p.Purposes {
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "drinks", "bar", "nightout":
			return true
		}
	}
	for _, pref := range p.Preferences {
		low := strings.ToLower(pref)
		if strings.Contains(low, "beer") || strings.Contains(low, "wine") ||
			strings.Contains(low, "cocktail") || strings.Contains(low, "bar") {
			return true
		}
	}
	return false
}

func (c *planContext) hasVibe(tag string) bool {
	for _, v := range c.profile.Vibes {
		if strings.EqualFold(strings.TrimSpace(v), tag) {
			return true
		}
	}
	return false
}

// mealQuery picks the restaurant search text: subcategory hints first,
// then budget/vibe/company combinations, then the generic default.
func (c *planContext) mealQuery() string {
	for _, pref := range c.profile.Preferences {
		low := strings.ToLower(pref)
		for _, cuisine := range cuisineHints {
			if strings.Contains(low, cuisine) {
				return cuisine + " restaurant"
			}
		}
	}
	switch {
	case c.profile.BudgetTier >= 3 && strings.EqualFold(c.profile.WithWhom, "date"):
		return "fine dining restaurant"
	case c.profile.BudgetTier >= 3:
		return "upscale restaurant"
	case strings.EqualFold(c.profile.WithWhom, "family"):
		return "family friendly restaurant"
	case c.hasVibe("cozy"):
		return "cozy local restaurant"
	case c.profile.BudgetTier <= 1:
		return "cheap eats"
	}
	return "general restaurant"
}

// firstStep applies the slot-one rules in order.
func (c *planContext) firstStep() domain.Step {
	if pref, cat, ok := c.activityPreference(); ok && cat != domain.CategoryRest {
		return domain.Step{Query: strings.ToLower(pref), Category: cat}
	}
	if c.cafePreference() {
		return domain.Step{Query: "cafe", Category: domain.CategoryCafe}
	}
	if c.hasPurpose("meeting", "work") {
		return domain.Step{Query: "quiet cafe with wifi", Category: domain.CategoryCafe}
	}
	if c.hasPurpose("drinks", "bar", "nightout") && !c.hasPurpose("meal", "lunch", "dinner", "brunch") {
		return domain.Step{Query: "bar", Category: domain.CategoryBar}
	}
	if c.hasPurpose("cafe", "chat") {
		return domain.Step{Query: "cafe", Category: domain.CategoryCafe}
	}
	if c.capRemaining > 0 {
		return domain.Step{Query: "light meal", Category: domain.CategoryRestaurant}
	}
	return domain.Step{Query: "cafe", Category: domain.CategoryCafe}
}

// secondStep adds the meal slot unless the cap is spent or the session is
// a low-budget cafe/meeting framing that already has a step.
func (c *planContext) secondStep() (domain.Step, bool) {
	if c.capRemaining <= 0 {
		return domain.Step{}, false
	}
	if c.cafeOrMeetingOnly() && c.lowBudget() && len(c.steps) >= 1 {
		return domain.Step{}, false
	}
	return domain.Step{Query: c.mealQuery(), Category: domain.CategoryRestaurant}, true
}

// thirdStep adds a leisure slot. Durations of three hours or more always
// get one; very short low-signal sessions skip it.
func (c *planContext) thirdStep() (domain.Step, bool) {
	_, _, hasActivitySignal := c.activityPreference()
	if c.profile.DurationMin < 180 {
		if c.profile.DurationMin < 120 && c.cafeOrMeetingOnly() && c.lowBudget() {
			return domain.Step{}, false
		}
		if c.profile.DurationMin < 120 && c.mealOnly() && c.lowBudget() && !hasActivitySignal {
			return domain.Step{}, false
		}
	}
	switch {
	case c.hasPurpose("shopping") && !c.used[domain.CategoryShopping]:
		return domain.Step{Query: "shopping district", Category: domain.CategoryShopping}, true
	case !c.used[domain.CategoryCafe]:
		return domain.Step{Query: "dessert cafe", Category: domain.CategoryCafe}, true
	case !c.used[domain.CategoryRest]:
		return domain.Step{Query: "spa", Category: domain.CategoryRest}, true
	case !c.used[domain.CategoryBar]:
		return domain.Step{Query: "bar", Category: domain.CategoryBar}, true
	}
	return domain.Step{Query: "cafe", Category: domain.CategoryCafe}, true
}

// fillStep tops the plan up to the minimum step count.
func (c *planContext) fillStep() domain.Step {
	switch {
	case !c.used[domain.CategoryBar]:
		return domain.Step{Query: "bar", Category: domain.CategoryBar}
	case !c.used[domain.CategoryCafe]:
		return domain.Step{Query: "cafe", Category: domain.CategoryCafe}
	case c.capRemaining > 0 && c.restaurants < 2:
		return domain.Step{Query: c.mealQuery(), Category: domain.CategoryRestaurant}
	case !c.used[domain.CategoryActivity]:
		return domain.Step{Query: "fun activity", Category: domain.CategoryActivity}
	case !c.used[domain.CategoryRest]:
		return domain.Step{Query: "spa", Category: domain.CategoryRest}
	}
	return domain.Step{Query: "cafe", Category: domain.CategoryCafe}
}

// PlanSteps maps a group profile to an ordered list of category steps.
// The output always contains at least one step.
func PlanSteps(profile domain.GroupProfile) []domain.Step {
	c := &planContext{
		profile:      profile,
		capRemaining: NonBarRestaurantCap(profile.DurationMin),
		used:         make(map[domain.StopCategory]bool),
	}

	c.add(c.firstStep())

	if s, ok := c.secondStep(); ok {
		c.add(s)
	}
	if s, ok := c.thirdStep(); ok {
		c.add(s)
	}

	minSteps := MinStepCount(profile.DurationMin)
	for len(c.steps) < minSteps {
		c.add(c.fillStep())
	}

	return c.steps
}
