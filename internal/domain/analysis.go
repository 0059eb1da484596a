package domain

import (
	"fmt"
	"strings"
)

// ImageVariant selects the prompt template and result schema for image analysis.
// Each variant is a superset of the previous one.
type ImageVariant string

const (
	ImageVariantBasic    ImageVariant = "basic"
	ImageVariantDetailed ImageVariant = "detailed"
	ImageVariantAddress  ImageVariant = "address"
)

// SymptomsVariant selects the prompt template and result schema for symptom analysis.
type SymptomsVariant string

const (
	SymptomsVariantBasic   SymptomsVariant = "basic"
	SymptomsVariantContact SymptomsVariant = "contact"
)

// ParseImageVariant resolves a variant name. An empty name yields fallback.
func ParseImageVariant(name string, fallback ImageVariant) (ImageVariant, error) {
	switch v := ImageVariant(strings.ToLower(strings.TrimSpace(name))); v {
	case "":
		return fallback, nil
	case ImageVariantBasic, ImageVariantDetailed, ImageVariantAddress:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedVariant, name)
	}
}

// ParseSymptomsVariant resolves a variant name. An empty name yields fallback.
func ParseSymptomsVariant(name string, fallback SymptomsVariant) (SymptomsVariant, error) {
	switch v := SymptomsVariant(strings.ToLower(strings.TrimSpace(name))); v {
	case "":
		return fallback, nil
	case SymptomsVariantBasic, SymptomsVariantContact:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedVariant, name)
	}
}

// InlineImage is a base64 payload without any data-URL prefix.
type InlineImage struct {
	MimeType string
	Data     string
}

// ModelRequest is what a model provider receives for a single generation.
type ModelRequest struct {
	Prompt string
	Image  *InlineImage
}

type PersonalInfo struct {
	Name      string `json:"name"`
	BirthDate string `json:"birthDate"`
	Gender    string `json:"gender"`
}

type Location struct {
	Zip                   string `json:"zip"`
	Prefecture            string `json:"prefecture"`
	Municipality          string `json:"municipality"`
	Town                  string `json:"town"`
	HouseNumber           string `json:"houseNumber"`
	BuildingAndRoomNumber string `json:"buildingAndRoomNumber"`
}

// DocumentChecks holds the orientation, obstruction and personal-information
// fields added by the detailed variant.
type DocumentChecks struct {
	IsHealthInsuranceCardStraight   bool         `json:"isHealthInsuranceCardStraight"`
	IsMedicineNotebookStraight      bool         `json:"isMedicineNotebookStraight"`
	IsHealthInsuranceCardObstructed bool         `json:"isHealthInsuranceCardObstructed"`
	IsMedicineNotebookObstructed    bool         `json:"isMedicineNotebookObstructed"`
	CanReadPersonalInfo             bool         `json:"canReadPersonalInfo"`
	PersonalInfo                    PersonalInfo `json:"personalInfo"`
}

// AddressChecks holds the address-document fields added by the address variant.
type AddressChecks struct {
	IsAddressDocument bool     `json:"isAddressDocument"`
	CanReadAddress    bool     `json:"canReadAddress"`
	Location          Location `json:"location"`
}

// ImageResult is the normalized image analysis. The embedded sections are
// nil for variants that do not declare them and are then omitted from JSON.
type ImageResult struct {
	IsHealthInsuranceCard bool `json:"isHealthInsuranceCard"`
	IsMedicineNotebook    bool `json:"isMedicineNotebook"`
	IsContentVisible      bool `json:"isContentVisible"`
	*DocumentChecks
	*AddressChecks
	Analysis    string `json:"analysis"`
	Suggestions string `json:"suggestions"`
}

// NewImageResult returns a zero result carrying every section the variant declares.
func NewImageResult(variant ImageVariant) ImageResult {
	var res ImageResult
	switch variant {
	case ImageVariantAddress:
		res.AddressChecks = &AddressChecks{}
		fallthrough
	case ImageVariantDetailed:
		res.DocumentChecks = &DocumentChecks{}
	}
	return res
}

// ContactDetails are the profile fields the contact variant extracts from a transcript.
type ContactDetails struct {
	NameLastKana  string `json:"profile_name_last_kana"`
	NameFirstKana string `json:"profile_name_first_kana"`
	Phone         string `json:"profile_phone"`
}

type SymptomsResult struct {
	MatchedCategories []string `json:"matched_categories"`
	IsEmergency       bool     `json:"is_emergency"`
	EmergencyReasons  []string `json:"emergency_reasons"`
	EmergencyGuidance *string  `json:"emergency_guidance"`
	*ContactDetails
}

// NewSymptomsResult returns an empty result with non-nil slices for the variant.
func NewSymptomsResult(variant SymptomsVariant) SymptomsResult {
	res := SymptomsResult{
		MatchedCategories: []string{},
		EmergencyReasons:  []string{},
	}
	if variant == SymptomsVariantContact {
		res.ContactDetails = &ContactDetails{}
	}
	return res
}
