package usecases

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/aldatz/topagune/internal/core/domain"
	"github.com/aldatz/topagune/internal/core/ports"
	"github.com/aldatz/topagune/internal/pkg/geospatial"
)

// dwellRule bounds the dwell time of one stop category, minutes.
type dwellRule struct {
	def, min, max int
}

var dwellRules = map[domain.StopCategory]dwellRule{
	domain.CategoryCafe:       {60, 30, 120},
	domain.CategoryRestaurant: {60, 45, 150},
	domain.CategoryBar:        {90, 60, 210},
	domain.CategoryActivity:   {120, 60, 240},
	domain.CategoryShopping:   {60, 30, 120},
	domain.CategoryCulture:    {90, 60, 180},
	domain.CategoryNature:     {180, 120, 360},
	domain.CategoryRest:       {90, 60, 180},
	domain.CategoryMustVisit:  {60, 15, 180},
}

func ruleFor(cat domain.StopCategory) dwellRule {
	if r, ok := dwellRules[cat]; ok {
		return r
	}
	return dwellRules[domain.CategoryCafe]
}

const (
	placeholderLegMin = 15 // per-gap travel placeholder before real legs exist
	maxAddedStops     = 3
	maxDwellShiftMin  = 20
	coordEpsilonDeg   = 1e-6
)

// asmStop is a stop being assembled, annotated with bookkeeping the final
// itinerary does not carry.
type asmStop struct {
	domain.ItineraryStop
	inferred   domain.StopCategory // category for cap/dedup decisions
	fromCourse bool                // false for must-visit stops
	order      int                 // merge order, used for cap eviction
}

// Assembler turns must-visit venues plus a scored course into the final
// ordered, time-budgeted itinerary.
type Assembler struct {
	venues ports.VenueSearcher
	travel ports.TravelTimeProvider
	cfg    SynthesisConfig
}

// NewAssembler creates an assembler over the venue and travel ports.
func NewAssembler(venues ports.VenueSearcher, travel ports.TravelTimeProvider, cfg SynthesisConfig) *Assembler {
	return &Assembler{venues: venues, travel: travel, cfg: cfg.withDefaults()}
}

// Assemble runs the synthesis pipeline: merge, dedup, cap enforcement,
// spatial ordering, dwell assignment, two bounded duration reconciliation
// passes, and travel-leg computation. Provider failures during leg
// computation degrade to haversine estimates; the run never aborts past
// the merge stage.
func (a *Assembler) Assemble(ctx context.Context, profile domain.GroupProfile, mustVisit []domain.MustVisitVenue, course domain.Course, steps []domain.Step) ([]domain.ItineraryStop, error) {
	if len(mustVisit) == 0 && len(course.Venues) == 0 {
		return nil, domain.E(domain.KindInvalid, "nothing to assemble: no venues")
	}

	stops := a.merge(mustVisit, course, steps)
	stops = dedupe(stops)
	stops = a.enforceCap(stops, profile.DurationMin)
	stops = a.orderStops(stops)
	assignDwell(stops)
	a.checkRestaurantGap(stops)

	stops = a.reconcileEstimated(ctx, profile, stops)

	final := make([]domain.ItineraryStop, len(stops))
	for i, s := range stops {
		final[i] = s.ItineraryStop
		final[i].Position = i
	}

	a.computeLegs(ctx, final, profile.MajorityMode())
	reconcileActual(profile.DurationMin, final)

	return final, nil
}

// --- stage 1: merge ---

func (a *Assembler) merge(mustVisit []domain.MustVisitVenue, course domain.Course, steps []domain.Step) []asmStop {
	stops := make([]asmStop, 0, len(mustVisit)+len(course.Venues))
	order := 0
	for _, mv := range mustVisit {
		cat := mv.Category
		if cat == "" {
			cat = domain.CategoryMustVisit
		}
		stops = append(stops, asmStop{
			ItineraryStop: domain.ItineraryStop{
				Name:     mv.Name,
				Address:  mv.Address,
				Location: mv.Location,
				Category: domain.CategoryMustVisit,
				VenueID:  mv.ID,
			},
			inferred: cat,
			order:    order,
		})
		order++
	}
	for i, v := range course.Venues {
		cat := domain.CategoryCafe
		if i < len(steps) {
			cat = steps[i].Category
		}
		stops = append(stops, asmStop{
			ItineraryStop: domain.ItineraryStop{
				Name:     v.Name,
				Address:  v.Address,
				Location: v.Location,
				Category: cat,
				VenueID:  v.ID,
			},
			inferred:   cat,
			fromCourse: true,
			order:      order,
		})
		order++
	}
	return stops
}

// --- stage 2: dedup ---

// dedupe drops course venues clashing with a must-visit venue's category,
// then removes id and near-coordinate duplicates. Must-visit always wins.
func dedupe(stops []asmStop) []asmStop {
	mustCats := map[domain.StopCategory]bool{}
	for _, s := range stops {
		if !s.fromCourse {
			mustCats[s.inferred] = true
		}
	}

	out := stops[:0:0]
	for _, s := range stops {
		if s.fromCourse && mustCats[s.inferred] {
			continue
		}
		dup := false
		for _, kept := range out {
			if s.VenueID != "" && s.VenueID == kept.VenueID {
				dup = true
				break
			}
			if s.Location.SameLocation(kept.Location, coordEpsilonDeg) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}

// --- stage 3: cap enforcement ---

// enforceCap removes surplus non-bar restaurant stops, most recently added
// first. Must-visit stops are never removed.
func (a *Assembler) enforceCap(stops []asmStop, durationMin int) []asmStop {
	limit := NonBarRestaurantCap(durationMin)
	count := 0
	for _, s := range stops {
		if s.inferred == domain.CategoryRestaurant {
			count++
		}
	}
	for count > limit {
		victim := -1
		for i, s := range stops {
			if !s.fromCourse || s.inferred != domain.CategoryRestaurant {
				continue
			}
			if victim < 0 || s.order > stops[victim].order {
				victim = i
			}
		}
		if victim < 0 {
			break // only must-visit restaurants remain; they stay
		}
		stops = append(stops[:victim], stops[victim+1:]...)
		count--
	}
	return stops
}

// --- stage 4: ordering ---

func (a *Assembler) orderStops(stops []asmStop) []asmStop {
	if len(stops) <= 2 {
		return stops
	}

	var restaurants, others []asmStop
	for _, s := range stops {
		if s.inferred == domain.CategoryRestaurant {
			restaurants = append(restaurants, s)
		} else {
			others = append(others, s)
		}
	}

	if len(restaurants) <= 1 {
		return nearestNeighborOrder(stops)
	}

	// Multiple restaurants: space them out. Order the restaurants first,
	// bucket every other stop into its nearest restaurant's zone, then
	// emit zone-then-restaurant repeatedly.
	restaurants = nearestNeighborOrder(restaurants)

	zones := make([][]asmStop, len(restaurants))
	for _, s := range others {
		best, bestD := 0, math.Inf(1)
		for i, r := range restaurants {
			d := geospatial.Haversine(s.Location.Lat, s.Location.Lon, r.Location.Lat, r.Location.Lon)
			if d < bestD {
				best, bestD = i, d
			}
		}
		zones[best] = append(zones[best], s)
	}

	out := make([]asmStop, 0, len(stops))
	for i, r := range restaurants {
		out = append(out, nearestNeighborOrder(zones[i])...)
		out = append(out, r)
	}
	return out
}

// nearestNeighborOrder orders stops greedily starting from the stop
// closest to the set's centroid.
func nearestNeighborOrder(stops []asmStop) []asmStop {
	if len(stops) <= 1 {
		return stops
	}

	points := make([]domain.GeoPoint, len(stops))
	for i, s := range stops {
		points[i] = s.Location
	}
	center := domain.Centroid(points)

	remaining := make([]asmStop, len(stops))
	copy(remaining, stops)

	start, bestD := 0, math.Inf(1)
	for i, s := range remaining {
		d := geospatial.Haversine(center.Lat, center.Lon, s.Location.Lat, s.Location.Lon)
		if d < bestD {
			start, bestD = i, d
		}
	}

	out := []asmStop{remaining[start]}
	remaining = append(remaining[:start], remaining[start+1:]...)
	for len(remaining) > 0 {
		cur := out[len(out)-1].Location
		next, nextD := 0, math.Inf(1)
		for i, s := range remaining {
			d := geospatial.Haversine(cur.Lat, cur.Lon, s.Location.Lat, s.Location.Lon)
			if d < nextD {
				next, nextD = i, d
			}
		}
		out = append(out, remaining[next])
		remaining = append(remaining[:next], remaining[next+1:]...)
	}
	return out
}

// checkRestaurantGap verifies the dwell budget between consecutive
// restaurants. Falling short is accepted as best-effort, not an error.
func (a *Assembler) checkRestaurantGap(stops []asmStop) {
	lastRestaurant := -1
	gap := 0
	for i, s := range stops {
		if s.inferred != domain.CategoryRestaurant {
			gap += s.DwellMin
			continue
		}
		if lastRestaurant >= 0 && gap < a.cfg.RestaurantGapMin {
			slog.Debug("restaurant spacing below target, keeping best effort",
				"gap_min", gap, "target_min", a.cfg.RestaurantGapMin, "position", i)
		}
		lastRestaurant = i
		gap = 0
	}
}

// --- stage 5: dwell assignment ---

func assignDwell(stops []asmStop) {
	for i := range stops {
		r := ruleFor(stops[i].Category)
		stops[i].DwellMin = clampInt(roundTo5(r.def), r.min, r.max)
	}
}

func roundTo5(v int) int { return ((v + 2) / 5) * 5 }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// --- stage 6: estimate-based reconciliation ---

// categoryQueries are the search texts used when reconciliation adds stops.
var categoryQueries = map[domain.StopCategory]string{
	domain.CategoryActivity:   "fun activity",
	domain.CategoryCafe:       "cafe",
	domain.CategoryBar:        "bar",
	domain.CategoryRestaurant: "general restaurant",
}

func (a *Assembler) reconcileEstimated(ctx context.Context, profile domain.GroupProfile, stops []asmStop) []asmStop {
	target := profile.DurationMin
	est := estimatedTotal(stops)
	shortfall := target - est

	switch {
	case shortfall > maxInt(60, target*15/100):
		stops = a.addStops(ctx, profile, stops, target)
	case est-target > 60:
		stops = dropTrailing(stops, target)
	default:
		distributeDwell(stops, target-est)
	}
	return stops
}

func estimatedTotal(stops []asmStop) int {
	total := 0
	for _, s := range stops {
		total += s.DwellMin
	}
	if len(stops) > 1 {
		total += (len(stops) - 1) * placeholderLegMin
	}
	return total
}

// addStops appends up to three fresh stops chosen by category priority,
// searching new candidates around the current itinerary's centroid.
func (a *Assembler) addStops(ctx context.Context, profile domain.GroupProfile, stops []asmStop, target int) []asmStop {
	used := map[domain.StopCategory]bool{}
	restaurants := 0
	for _, s := range stops {
		used[s.inferred] = true
		if s.inferred == domain.CategoryRestaurant {
			restaurants++
		}
	}
	limit := NonBarRestaurantCap(profile.DurationMin)

	added := 0
	for added < maxAddedStops {
		est := estimatedTotal(stops)
		if target-est <= maxInt(60, target*15/100) {
			break
		}

		var cat domain.StopCategory
		switch {
		case !used[domain.CategoryActivity]:
			cat = domain.CategoryActivity
		case !used[domain.CategoryCafe]:
			cat = domain.CategoryCafe
		case !used[domain.CategoryBar] && HasDrinkSignal(profile):
			cat = domain.CategoryBar
		case restaurants < limit:
			cat = domain.CategoryRestaurant
		default:
			cat = domain.CategoryCafe
		}

		stop, ok := a.searchFreshStop(ctx, stops, cat)
		if !ok {
			break
		}
		used[cat] = true
		if cat == domain.CategoryRestaurant {
			restaurants++
		}
		stops = append(stops, stop)
		added++
	}

	// whatever gap remains after additions is spread across dwell times
	distributeDwell(stops, target-estimatedTotal(stops))
	return stops
}

func (a *Assembler) searchFreshStop(ctx context.Context, stops []asmStop, cat domain.StopCategory) (asmStop, bool) {
	points := make([]domain.GeoPoint, len(stops))
	for i, s := range stops {
		points[i] = s.Location
	}
	center := domain.Centroid(points)

	query := categoryQueries[cat]
	candidates, err := a.venues.SearchVenues(ctx, center, a.cfg.SearchRadiusM, query, string(cat), a.cfg.MinVenueRating, a.cfg.CandidatesPerStep)
	if err != nil {
		slog.Warn("reconciliation venue search degraded", "category", cat, "error", err)
		return asmStop{}, false
	}

	for _, c := range candidates {
		dup := false
		for _, s := range stops {
			if (c.ID != "" && c.ID == s.VenueID) || c.Location.SameLocation(s.Location, coordEpsilonDeg) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		r := ruleFor(cat)
		maxOrder := 0
		for _, s := range stops {
			if s.order > maxOrder {
				maxOrder = s.order
			}
		}
		return asmStop{
			ItineraryStop: domain.ItineraryStop{
				Name:     c.Name,
				Address:  c.Address,
				Location: c.Location,
				Category: cat,
				VenueID:  c.ID,
				DwellMin: clampInt(roundTo5(r.def), r.min, r.max),
			},
			inferred:   cat,
			fromCourse: true,
			order:      maxOrder + 1,
		}, true
	}
	return asmStop{}, false
}

// dropTrailing removes stops from the end until the estimate fits, down to
// a floor of one stop. Must-visit stops are skipped.
func dropTrailing(stops []asmStop, target int) []asmStop {
	for len(stops) > 1 && estimatedTotal(stops)-target > 60 {
		victim := -1
		for i := len(stops) - 1; i >= 0; i-- {
			if stops[i].fromCourse {
				victim = i
				break
			}
		}
		if victim < 0 {
			break
		}
		stops = append(stops[:victim], stops[victim+1:]...)
	}
	// residual drift is absorbed by dwell times
	distributeDwell(stops, target-estimatedTotal(stops))
	return stops
}

// distributeDwell spreads deltaMin over all stops, at most 20 minutes per
// stop, clamped to each category's bounds; the remainder lands on the last
// stop.
func distributeDwell(stops []asmStop, deltaMin int) {
	if len(stops) == 0 || deltaMin == 0 {
		return
	}
	per := clampInt(deltaMin/len(stops), -maxDwellShiftMin, maxDwellShiftMin)
	applied := 0
	for i := range stops {
		r := ruleFor(stops[i].Category)
		before := stops[i].DwellMin
		stops[i].DwellMin = clampInt(before+per, r.min, r.max)
		applied += stops[i].DwellMin - before
	}
	if rest := deltaMin - applied; rest != 0 {
		last := len(stops) - 1
		r := ruleFor(stops[last].Category)
		shift := clampInt(rest, -maxDwellShiftMin, maxDwellShiftMin)
		stops[last].DwellMin = clampInt(stops[last].DwellMin+shift, r.min, r.max)
	}
}

// --- stage 7: travel legs ---

// computeLegs fills TravelFromPrev for every stop after the first. All
// pair lookups run concurrently and join before returning.
func (a *Assembler) computeLegs(ctx context.Context, stops []domain.ItineraryStop, majority domain.TransportMode) {
	if len(stops) < 2 {
		return
	}

	var wg sync.WaitGroup
	legs := make([]*domain.TravelLeg, len(stops))
	for i := 1; i < len(stops); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			leg := a.legBetween(ctx, stops[i-1].Location, stops[i].Location, majority)
			legs[i] = &leg
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(stops); i++ {
		stops[i].TravelFromPrev = legs[i]
	}
}

// fallback speeds for haversine estimates, km/h.
const (
	transitFallbackKmh = 20.0
	drivingFallbackKmh = 30.0
)

type legOption struct {
	mode      domain.TransportMode
	minutes   float64
	distanceM int
	estimated bool
}

// legBetween applies the mode-selection rules for one stop pair. Walking
// wins whenever it is within ten minutes of the fastest alternative.
func (a *Assembler) legBetween(ctx context.Context, from, to domain.GeoPoint, majority domain.TransportMode) domain.TravelLeg {
	distM := geospatial.Haversine(from.Lat, from.Lon, to.Lat, to.Lon)
	walk := legOption{
		mode:      domain.ModeWalking,
		minutes:   geospatial.WalkingMinutes(distM, a.cfg.WalkingSpeedKmh),
		distanceM: int(distM),
		estimated: true,
	}

	lookup := func(mode domain.TransportMode, fallbackKmh float64) legOption {
		est, err := a.travel.GetTravelTime(ctx, from, to, mode)
		if err == nil && est.OK {
			return legOption{mode: mode, minutes: float64(est.DurationSec) / 60.0, distanceM: est.DistanceM}
		}
		return legOption{
			mode:      mode,
			minutes:   distM / (fallbackKmh * 1000 / 60),
			distanceM: int(distM),
			estimated: true,
		}
	}

	var chosen legOption
	switch majority {
	case domain.ModeTransit:
		transit := lookup(domain.ModeTransit, transitFallbackKmh)
		driving := lookup(domain.ModeDriving, drivingFallbackKmh)
		chosen = transit
		// a car has to save real time before a transit-leaning group takes it
		if !driving.estimated && driving.minutes <= transit.minutes-20 {
			chosen = driving
		}
	case domain.ModeDriving:
		driving := lookup(domain.ModeDriving, drivingFallbackKmh)
		chosen = driving
		if driving.estimated {
			if transit := lookup(domain.ModeTransit, transitFallbackKmh); !transit.estimated {
				chosen = transit
			}
		}
	default:
		transit := lookup(domain.ModeTransit, transitFallbackKmh)
		driving := lookup(domain.ModeDriving, drivingFallbackKmh)
		chosen = transit
		if driving.minutes < chosen.minutes {
			chosen = driving
		}
	}

	if walk.minutes <= chosen.minutes+10 {
		chosen = walk
	}

	return domain.TravelLeg{
		Mode:        chosen.mode,
		DurationMin: int(math.Round(chosen.minutes)),
		DistanceM:   chosen.distanceM,
		Estimated:   chosen.estimated,
	}
}

// --- stage 8: actual-based reconciliation ---

// reconcileActual recomputes the total with real leg durations and runs
// the dwell distribution exactly once more when the deviation still
// exceeds 30 minutes. Bounded on purpose: no convergence loop.
func reconcileActual(targetMin int, stops []domain.ItineraryStop) {
	actual := 0
	for _, s := range stops {
		actual += s.DwellMin
		if s.TravelFromPrev != nil {
			actual += s.TravelFromPrev.DurationMin
		}
	}
	delta := targetMin - actual
	if delta > -30 && delta < 30 {
		return
	}

	tmp := make([]asmStop, len(stops))
	for i, s := range stops {
		tmp[i] = asmStop{ItineraryStop: s}
	}
	distributeDwell(tmp, delta)
	for i := range stops {
		stops[i].DwellMin = tmp[i].DwellMin
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
