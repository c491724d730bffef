// Package reftable holds the reference time tables and the vocabularies the
// dialog validates user input against.
package reftable

import "github.com/GlebZemlyanikin/RowingModel/internal/timeutil"

// ReferenceDistance is the distance in meters the baseline times refer to.
const ReferenceDistance = 2000

// ModelType selects one of the two reference time tables.
type ModelType string

const (
	ModelNone   ModelType = ""
	ModelWorld  ModelType = "world"
	ModelRussia ModelType = "russia"
)

// Distances lists the supported race distances in meters. No entry may be a
// substring of another: dialog matching relies on that.
var Distances = []string{"250", "500", "1000", "2000", "6000"}

// BoatClasses lists the boat classes shared by both models. Same substring
// rule as Distances.
var BoatClasses = []string{"1x", "2x", "2-", "4x", "4-", "8+"}

// ageGroups maps each model to its age-group vocabulary, youngest first.
// The labels of the two models are deliberately disjoint so a stale keyboard
// reply can always be attributed to the right table.
var ageGroups = map[ModelType][]string{
	ModelWorld:  {"U19", "U23", "Elite"},
	ModelRussia: {"До 15 лет", "До 17 лет", "До 19 лет", "До 23 лет", "Взрослые"},
}

// baselines holds the model time in seconds for ReferenceDistance, keyed by
// age group and boat class.
var baselines = map[ModelType]map[string]map[string]float64{
	ModelWorld: {
		"U19":   {"1x": 408, "2x": 378, "2-": 390, "4x": 354, "4-": 366, "8+": 338},
		"U23":   {"1x": 398, "2x": 368, "2-": 380, "4x": 344, "4-": 356, "8+": 328},
		"Elite": {"1x": 390, "2x": 360, "2-": 372, "4x": 336, "4-": 348, "8+": 320},
	},
	ModelRussia: {
		"До 15 лет": {"1x": 450, "2x": 420, "2-": 432, "4x": 396, "4-": 408, "8+": 380},
		"До 17 лет": {"1x": 430, "2x": 400, "2-": 412, "4x": 376, "4-": 388, "8+": 360},
		"До 19 лет": {"1x": 414, "2x": 384, "2-": 396, "4x": 360, "4-": 372, "8+": 344},
		"До 23 лет": {"1x": 404, "2x": 374, "2-": 386, "4x": 350, "4-": 362, "8+": 334},
		"Взрослые":  {"1x": 396, "2x": 366, "2-": 378, "4x": 342, "4-": 354, "8+": 326},
	},
}

// AgeGroups returns the age-group vocabulary for the given model.
func AgeGroups(model ModelType) []string {
	return ageGroups[model]
}

// Lookup returns the baseline time in seconds for the given model, age
// group, and boat class. ok is false when the table has no such entry.
func Lookup(model ModelType, ageGroup, boatClass string) (baseline float64, ok bool) {
	byAge, ok := baselines[model]
	if !ok {
		return 0, false
	}

	byBoat, ok := byAge[ageGroup]
	if !ok {
		return 0, false
	}

	baseline, ok = byBoat[boatClass]

	return baseline, ok
}

// Percentage computes the performance percentage as a ratio of average
// speeds: (distance/elapsed) / (ReferenceDistance/baseline) * 100. This
// corrects for races shorter or longer than the reference distance, which a
// plain time ratio would not. Missing inputs yield 0 rather than an error:
// "no comparable baseline" is an expected condition, not a failure.
func Percentage(baseline, distance, elapsed float64) float64 {
	if baseline <= 0 || distance <= 0 || elapsed <= 0 {
		return 0
	}

	actual := distance / elapsed
	reference := ReferenceDistance / baseline

	return timeutil.Round2(actual / reference * 100)
}
