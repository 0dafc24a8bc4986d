package domain

// SeedBaseline names a reset recipe and what seed data it produces.
type SeedBaseline struct {
	Name          string
	SeedAdminOnly bool
}

// BaselineProductionInitialState resets to an empty store with only the seed
// administrator.
const BaselineProductionInitialState = "productionInitialState"

// seedBaselines is the static baseline catalog, read-only at runtime.
var seedBaselines = []SeedBaseline{
	{Name: BaselineProductionInitialState, SeedAdminOnly: true},
}

// FindBaseline looks up a baseline by name. The second return reports whether
// the baseline exists.
func FindBaseline(name string) (SeedBaseline, bool) {
	for _, baseline := range seedBaselines {
		if baseline.Name == name {
			return baseline, true
		}
	}
	return SeedBaseline{}, false
}

// ResetPhase enumerates the states of a database reset run.
type ResetPhase string

const (
	ResetPhaseIdle       ResetPhase = "idle"
	ResetPhaseDropping   ResetPhase = "dropping"
	ResetPhaseMigrating  ResetPhase = "migrating"
	ResetPhaseTruncating ResetPhase = "truncating"
	ResetPhaseSeeding    ResetPhase = "seeding"
	ResetPhaseFailed     ResetPhase = "failed"
)
