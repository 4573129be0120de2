// Package history holds historical delay aggregates and the tiered mean
// lookup used when no better predictor is available.
package history

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var ErrNoRecords = errors.New("delay history has no records")

// Record is one observed delay at one stop. TripID and HolidayFlag are
// carried for storage; the aggregates ignore them.
type Record struct {
	TripID         string
	RouteID        string
	RouteShortName string
	StopID         int
	DayOfWeek      int
	HourOfDay      int
	HolidayFlag    int
	DelayMinutes   float64
}

// Tier names the aggregation level that answered a lookup.
type Tier int

const (
	TierExact Tier = iota
	TierStop
	TierRoute
	TierGlobal
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierStop:
		return "stop"
	case TierRoute:
		return "route"
	case TierGlobal:
		return "global"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// RouteKey is the canonical identity records are grouped by.
type RouteKey struct {
	ID        string
	ShortName string
}

func (k RouteKey) less(o RouteKey) bool {
	if k.ID != o.ID {
		return k.ID < o.ID
	}
	return k.ShortName < o.ShortName
}

type stopKey struct {
	route  RouteKey
	stopID int
}

type exactKey struct {
	stopKey
	dow  int
	hour int
}

type accumulator struct {
	sum float64
	n   int
}

func (a *accumulator) add(v float64) {
	a.sum += v
	a.n++
}

func (a accumulator) mean() float64 {
	return a.sum / float64(a.n)
}

// Table is an immutable set of mean delays at decreasing specificity.
// Groups with no records are absent, which is what triggers fallback to the
// next tier.
type Table struct {
	exact   map[exactKey]float64
	byStop  map[stopKey]float64
	byRoute map[RouteKey]float64
	global  float64

	counts  map[RouteKey]int
	aliases map[string]RouteKey
	records int
}

// NewTable aggregates records. It fails on an empty record set since the
// global mean would be undefined.
func NewTable(records []Record) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	exact := make(map[exactKey]*accumulator)
	byStop := make(map[stopKey]*accumulator)
	byRoute := make(map[RouteKey]*accumulator)
	var global accumulator
	counts := make(map[RouteKey]int)

	for _, rec := range records {
		if math.IsNaN(rec.DelayMinutes) || math.IsInf(rec.DelayMinutes, 0) {
			return nil, fmt.Errorf("record for route %q stop %d has non-finite delay", rec.RouteShortName, rec.StopID)
		}
		rk := RouteKey{ID: strings.TrimSpace(rec.RouteID), ShortName: strings.TrimSpace(rec.RouteShortName)}
		sk := stopKey{route: rk, stopID: rec.StopID}
		ek := exactKey{stopKey: sk, dow: rec.DayOfWeek, hour: rec.HourOfDay}

		accumulate(exact, ek, rec.DelayMinutes)
		accumulate(byStop, sk, rec.DelayMinutes)
		accumulate(byRoute, rk, rec.DelayMinutes)
		global.add(rec.DelayMinutes)
		counts[rk]++
	}

	return &Table{
		exact:   means(exact),
		byStop:  means(byStop),
		byRoute: means(byRoute),
		global:  global.mean(),
		counts:  counts,
		aliases: buildAliases(counts),
		records: len(records),
	}, nil
}

func accumulate[K comparable](m map[K]*accumulator, k K, v float64) {
	a, ok := m[k]
	if !ok {
		a = &accumulator{}
		m[k] = a
	}
	a.add(v)
}

func means[K comparable](m map[K]*accumulator) map[K]float64 {
	out := make(map[K]float64, len(m))
	for k, a := range m {
		out[k] = a.mean()
	}
	return out
}

// buildAliases maps every short name and id to the pair answering for it:
// the pair with the most records, ties broken by the smallest pair.
func buildAliases(counts map[RouteKey]int) map[string]RouteKey {
	aliases := make(map[string]RouteKey)
	consider := func(alias string, rk RouteKey) {
		if alias == "" {
			return
		}
		current, ok := aliases[alias]
		if !ok || counts[rk] > counts[current] || (counts[rk] == counts[current] && rk.less(current)) {
			aliases[alias] = rk
		}
	}
	for rk := range counts {
		consider(rk.ShortName, rk)
		consider(rk.ID, rk)
	}
	return aliases
}

// Representative returns the canonical pair a route key resolves to.
func (t *Table) Representative(routeKey string) (RouteKey, bool) {
	rk, ok := t.aliases[strings.TrimSpace(routeKey)]
	return rk, ok
}

// Lookup returns the clamped mean delay for the most specific populated
// group, and the tier it came from. A route key unknown to the table
// answers from the global mean.
func (t *Table) Lookup(routeKey string, stopID, dayOfWeek, hourOfDay int) (float64, Tier) {
	rk, ok := t.Representative(routeKey)
	if !ok {
		return clamp(t.global), TierGlobal
	}
	sk := stopKey{route: rk, stopID: stopID}
	if v, ok := t.exact[exactKey{stopKey: sk, dow: dayOfWeek, hour: hourOfDay}]; ok {
		return clamp(v), TierExact
	}
	if v, ok := t.byStop[sk]; ok {
		return clamp(v), TierStop
	}
	if v, ok := t.byRoute[rk]; ok {
		return clamp(v), TierRoute
	}
	return clamp(t.global), TierGlobal
}

// Estimate is Lookup without the tier.
func (t *Table) Estimate(routeKey string, stopID, dayOfWeek, hourOfDay int) float64 {
	v, _ := t.Lookup(routeKey, stopID, dayOfWeek, hourOfDay)
	return v
}

// Stats summarises the table for diagnostics. GlobalMean is unclamped.
type Stats struct {
	Records     int
	Routes      int
	StopGroups  int
	ExactGroups int
	GlobalMean  float64
}

func (t *Table) Stats() Stats {
	return Stats{
		Records:     t.records,
		Routes:      len(t.byRoute),
		StopGroups:  len(t.byStop),
		ExactGroups: len(t.exact),
		GlobalMean:  t.global,
	}
}

// RouteKeys lists the canonical pairs in sorted order.
func (t *Table) RouteKeys() []RouteKey {
	out := make([]RouteKey, 0, len(t.counts))
	for rk := range t.counts {
		out = append(out, rk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

func clamp(v float64) float64 {
	return math.Max(v, 0)
}
