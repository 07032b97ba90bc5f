// Package rank holds the canonical maritime rank ladders and resolves
// free-text rank strings onto them.
package rank

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/crewvet/trust-cli/internal/model"
)

// Canonical rank codes.
const (
	DeckCadet      = "DECK_CADET"
	OrdinarySeaman = "OS"
	AbleSeaman     = "AB"
	Bosun          = "BOSUN"
	ThirdOfficer   = "THIRD_OFFICER"
	SecondOfficer  = "SECOND_OFFICER"
	ChiefOfficer   = "CHIEF_OFFICER"
	Master         = "MASTER"

	EngineCadet    = "ENGINE_CADET"
	Wiper          = "WIPER"
	Oiler          = "OILER"
	Fitter         = "FITTER"
	FourthEngineer = "FOURTH_ENGINEER"
	ThirdEngineer  = "THIRD_ENGINEER"
	SecondEngineer = "SECOND_ENGINEER"
	ChiefEngineer  = "CHIEF_ENGINEER"

	ElectroCadet     = "ELECTRO_CADET"
	ElectricalRating = "ELECTRICAL_RATING"
	ETO              = "ETO"

	Messman   = "MESSMAN"
	Steward   = "STEWARD"
	Cook      = "COOK"
	ChiefCook = "CHIEF_COOK"
)

// ladders lists each department's ranks from lowest to highest. The
// position in the slice (1-based) is the rank level.
var ladders = []struct {
	department model.Department
	codes      []string
}{
	{model.DepartmentDeck, []string{DeckCadet, OrdinarySeaman, AbleSeaman, Bosun, ThirdOfficer, SecondOfficer, ChiefOfficer, Master}},
	{model.DepartmentEngine, []string{EngineCadet, Wiper, Oiler, Fitter, FourthEngineer, ThirdEngineer, SecondEngineer, ChiefEngineer}},
	{model.DepartmentElectrical, []string{ElectroCadet, ElectricalRating, ETO}},
	{model.DepartmentCatering, []string{Messman, Steward, Cook, ChiefCook}},
}

// aliases maps folded free-text spellings onto canonical codes. Keys are
// stored case-folded; separator-free variants are listed where crews
// commonly write them that way.
var aliases = map[string]string{
	// deck
	"deck cadet":         DeckCadet,
	"cadet":              DeckCadet,
	"d/c":                DeckCadet,
	"dc":                 DeckCadet,
	"os":                 OrdinarySeaman,
	"o/s":                OrdinarySeaman,
	"ordinary seaman":    OrdinarySeaman,
	"ab":                 AbleSeaman,
	"a/b":                AbleSeaman,
	"able seaman":        AbleSeaman,
	"able bodied seaman": AbleSeaman,
	"bosun":              Bosun,
	"boatswain":          Bosun,
	"3/o":                ThirdOfficer,
	"3o":                 ThirdOfficer,
	"3rd officer":        ThirdOfficer,
	"third officer":      ThirdOfficer,
	"third mate":         ThirdOfficer,
	"2/o":                SecondOfficer,
	"2o":                 SecondOfficer,
	"2nd officer":        SecondOfficer,
	"second officer":     SecondOfficer,
	"second mate":        SecondOfficer,
	"c/o":                ChiefOfficer,
	"co":                 ChiefOfficer,
	"chief officer":      ChiefOfficer,
	"chief mate":         ChiefOfficer,
	"1/o":                ChiefOfficer,
	"first officer":      ChiefOfficer,
	"master":             Master,
	"captain":            Master,
	"capt":               Master,

	// engine
	"engine cadet":    EngineCadet,
	"e/c":             EngineCadet,
	"wiper":           Wiper,
	"oiler":           Oiler,
	"motorman":        Oiler,
	"fitter":          Fitter,
	"4/e":             FourthEngineer,
	"4e":              FourthEngineer,
	"4th engineer":    FourthEngineer,
	"fourth engineer": FourthEngineer,
	"3/e":             ThirdEngineer,
	"3e":              ThirdEngineer,
	"3rd engineer":    ThirdEngineer,
	"third engineer":  ThirdEngineer,
	"2/e":             SecondEngineer,
	"2e":              SecondEngineer,
	"2nd engineer":    SecondEngineer,
	"second engineer": SecondEngineer,
	"c/e":             ChiefEngineer,
	"ce":              ChiefEngineer,
	"chief engineer":  ChiefEngineer,

	// electrical
	"electro cadet":             ElectroCadet,
	"electrical cadet":          ElectroCadet,
	"electrician":               ElectricalRating,
	"electrical rating":         ElectricalRating,
	"eto":                       ETO,
	"electro technical officer": ETO,
	"electro-technical officer": ETO,
	"electrical officer":        ETO,

	// catering
	"messman":    Messman,
	"mess boy":   Messman,
	"steward":    Steward,
	"cook":       Cook,
	"2nd cook":   Cook,
	"chief cook": ChiefCook,
	"ch/cook":    ChiefCook,
}

// separators are stripped for the last lookup attempt.
var separators = strings.NewReplacer(".", "", "-", "", "_", "")

var (
	byCode   map[string]model.CanonicalRank
	byFolded map[string]string
)

func init() {
	byCode = make(map[string]model.CanonicalRank)
	byFolded = make(map[string]string)
	for _, l := range ladders {
		for i, code := range l.codes {
			byCode[code] = model.CanonicalRank{Code: code, Department: l.department, Level: i + 1}
			byFolded[fold(code)] = code
		}
	}
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Normalize resolves a free-text rank onto its canonical rank. It tries,
// in order, an alias lookup, a canonical code match and an alias lookup
// with '.', '-' and '_' removed. Unresolvable input returns nil.
func Normalize(raw string) *model.CanonicalRank {
	key := fold(raw)
	if key == "" {
		return nil
	}
	if code, ok := aliases[key]; ok {
		return Lookup(code)
	}
	if code, ok := byFolded[key]; ok {
		return Lookup(code)
	}
	if code, ok := aliases[separators.Replace(key)]; ok {
		return Lookup(code)
	}
	return nil
}

// Lookup returns the canonical rank for an exact canonical code.
func Lookup(code string) *model.CanonicalRank {
	r, ok := byCode[code]
	if !ok {
		return nil
	}
	return &r
}

// DetectDepartment returns the department whose ladder contains the code.
func DetectDepartment(code string) (model.Department, bool) {
	r, ok := byCode[code]
	if !ok {
		return "", false
	}
	return r.Department, true
}

// Ladder returns the canonical ranks of a department, lowest first.
func Ladder(dept model.Department) []model.CanonicalRank {
	for _, l := range ladders {
		if l.department != dept {
			continue
		}
		out := make([]model.CanonicalRank, len(l.codes))
		for i, code := range l.codes {
			out[i] = byCode[code]
		}
		return out
	}
	return nil
}

// Departments lists every department in ladder order.
func Departments() []model.Department {
	out := make([]model.Department, len(ladders))
	for i, l := range ladders {
		out[i] = l.department
	}
	return out
}
