package analysis

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"intake/internal/domain"
)

// Source tells which path produced a normalized result.
type Source string

const (
	SourceStructured Source = "structured"
	SourceHeuristic  Source = "heuristic"
)

// Normalized pairs a result with the path that produced it. Both paths yield
// the same schema; callers only need Source for logging and tests.
type Normalized[T any] struct {
	Result   T
	Source   Source
	ParseErr error
}

var objectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// NormalizeImage turns raw model text into a complete ImageResult for variant.
func NormalizeImage(raw string, variant domain.ImageVariant) Normalized[domain.ImageResult] {
	obj, err := parseObject(raw)
	if err != nil {
		return Normalized[domain.ImageResult]{
			Result:   heuristicImage(raw, variant),
			Source:   SourceHeuristic,
			ParseErr: err,
		}
	}
	return Normalized[domain.ImageResult]{Result: structuredImage(obj, variant), Source: SourceStructured}
}

// NormalizeSymptoms turns raw model text into a complete SymptomsResult for variant.
func NormalizeSymptoms(raw string, variant domain.SymptomsVariant) Normalized[domain.SymptomsResult] {
	obj, err := parseObject(raw)
	if err != nil {
		return Normalized[domain.SymptomsResult]{
			Result:   heuristicSymptoms(raw, variant),
			Source:   SourceHeuristic,
			ParseErr: err,
		}
	}
	return Normalized[domain.SymptomsResult]{Result: structuredSymptoms(obj, variant), Source: SourceStructured}
}

// parseObject takes the greedy span from the first '{' to the last '}' and
// decodes it. Anything other than a JSON object is an error.
func parseObject(raw string) (fields, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, errors.New("empty model response")
	}
	if match := objectPattern.FindString(text); match != "" {
		text = match
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("model response is not an object")
	}
	return fields(obj), nil
}

func structuredImage(f fields, variant domain.ImageVariant) domain.ImageResult {
	res := domain.NewImageResult(variant)
	res.IsHealthInsuranceCard = f.boolean("isHealthInsuranceCard")
	res.IsMedicineNotebook = f.boolean("isMedicineNotebook")
	res.IsContentVisible = f.boolean("isContentVisible")
	res.Analysis = f.str("analysis")
	res.Suggestions = f.str("suggestions")
	if res.Suggestions == "" {
		res.Suggestions = DefaultSuggestion
	}

	if dc := res.DocumentChecks; dc != nil {
		dc.IsHealthInsuranceCardStraight = f.boolean("isHealthInsuranceCardStraight")
		dc.IsMedicineNotebookStraight = f.boolean("isMedicineNotebookStraight")
		dc.IsHealthInsuranceCardObstructed = f.boolean("isHealthInsuranceCardObstructed")
		dc.IsMedicineNotebookObstructed = f.boolean("isMedicineNotebookObstructed")
		dc.CanReadPersonalInfo = f.boolean("canReadPersonalInfo")
		info := f.object("personalInfo")
		dc.PersonalInfo = domain.PersonalInfo{
			Name:      info.str("name"),
			BirthDate: info.str("birthDate"),
			Gender:    info.str("gender"),
		}
	}

	if ac := res.AddressChecks; ac != nil {
		ac.IsAddressDocument = f.boolean("isAddressDocument")
		ac.CanReadAddress = f.boolean("canReadAddress")
		loc := f.object("location")
		ac.Location = domain.Location{
			Zip:                   loc.str("zip"),
			Prefecture:            loc.str("prefecture"),
			Municipality:          loc.str("municipality"),
			Town:                  loc.str("town"),
			HouseNumber:           loc.str("houseNumber"),
			BuildingAndRoomNumber: loc.str("buildingAndRoomNumber"),
		}
	}
	return res
}

func structuredSymptoms(f fields, variant domain.SymptomsVariant) domain.SymptomsResult {
	res := domain.NewSymptomsResult(variant)
	res.MatchedCategories = f.stringList("matched_categories")
	res.IsEmergency = f.boolean("is_emergency")
	res.EmergencyReasons = f.stringList("emergency_reasons")
	res.EmergencyGuidance = f.nullableStr("emergency_guidance")
	if cd := res.ContactDetails; cd != nil {
		cd.NameLastKana = f.str("profile_name_last_kana")
		cd.NameFirstKana = f.str("profile_name_first_kana")
		cd.Phone = f.str("profile_phone")
	}
	return res
}

// fields reads decoded JSON defensively. A nil map reads as all defaults.
type fields map[string]any

// boolean is true only for a JSON true; "true", 1 and the like are false.
func (f fields) boolean(key string) bool {
	v, ok := f[key].(bool)
	return ok && v
}

func (f fields) str(key string) string {
	s, _ := f[key].(string)
	return s
}

func (f fields) nullableStr(key string) *string {
	s, ok := f[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func (f fields) stringList(key string) []string {
	out := []string{}
	items, ok := f[key].([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (f fields) object(key string) fields {
	m, _ := f[key].(map[string]any)
	return fields(m)
}
