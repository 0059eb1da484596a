package analysis

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"intake/internal/domain"
)

var (
	insuranceCardKeywords    = []string{"健康保険証", "保険証"}
	medicineNotebookKeywords = []string{"おくすり手帳", "お薬手帳", "薬手帳"}
	addressDocumentKeywords  = []string{"住民票", "運転免許証", "マイナンバーカード", "在留カード"}

	// undeterminedPhrases force every document determination flag to false.
	undeterminedPhrases = []string{"確認できません", "わかりません", "判定できません"}

	visibleKeywords         = []string{"見える", "読める", "詳細"}
	straightKeywords        = []string{"まっすぐ", "真っ直ぐ", "正面から"}
	obstructedKeywords      = []string{"隠れて", "遮られ", "指で", "重なって"}
	personalInfoKeywords    = []string{"個人情報が読み取れ", "氏名が読み取れ", "生年月日が読み取れ"}
	addressReadableKeywords = []string{"住所が読み取れ", "住所が読め"}
	emergencyKeywords       = []string{"緊急", "救急", "119", "至急", "意識がない", "意識障害"}

	negationSuffixes = []string{"ではな", "ではあり", "じゃな", "じゃあり"}
)

// heuristicImage recovers flags from prose. A document keyword anywhere sets
// its flag, even in a sentence such as "保険証ではありません". Only an
// undetermined phrase clears the document flags; content visibility is read
// either way. Nested personal information and location stay empty.
func heuristicImage(raw string, variant domain.ImageVariant) domain.ImageResult {
	res := domain.NewImageResult(variant)
	res.Analysis = raw
	res.Suggestions = DefaultSuggestion

	text := fold(raw)
	res.IsContentVisible = containsAny(text, visibleKeywords)
	if containsAny(text, undeterminedPhrases) {
		return res
	}

	res.IsHealthInsuranceCard = containsAny(text, insuranceCardKeywords)
	res.IsMedicineNotebook = containsAny(text, medicineNotebookKeywords)

	if dc := res.DocumentChecks; dc != nil {
		straight := containsAny(text, straightKeywords)
		obstructed := containsAny(text, obstructedKeywords)
		dc.IsHealthInsuranceCardStraight = res.IsHealthInsuranceCard && straight
		dc.IsMedicineNotebookStraight = res.IsMedicineNotebook && straight
		dc.IsHealthInsuranceCardObstructed = res.IsHealthInsuranceCard && obstructed
		dc.IsMedicineNotebookObstructed = res.IsMedicineNotebook && obstructed
		dc.CanReadPersonalInfo = containsAny(text, personalInfoKeywords)
	}
	if ac := res.AddressChecks; ac != nil {
		ac.IsAddressDocument = containsAny(text, addressDocumentKeywords)
		ac.CanReadAddress = containsAny(text, addressReadableKeywords)
	}
	return res
}

// heuristicSymptoms matches categories by keyword and treats sentences that
// mention an emergency keyword as emergency reasons.
func heuristicSymptoms(raw string, variant domain.SymptomsVariant) domain.SymptomsResult {
	res := domain.NewSymptomsResult(variant)
	text := fold(raw)

	for _, c := range SymptomCategories {
		if strings.Contains(text, c.Name) || containsAny(text, c.Keywords) {
			res.MatchedCategories = append(res.MatchedCategories, c.Name)
		}
	}

	if containsAny(text, undeterminedPhrases) {
		return res
	}
	for _, sentence := range splitSentences(text) {
		if mentions(sentence, emergencyKeywords) {
			res.EmergencyReasons = append(res.EmergencyReasons, sentence)
		}
	}
	if len(res.EmergencyReasons) > 0 {
		res.IsEmergency = true
		guidance := EmergencyGuidance
		res.EmergencyGuidance = &guidance
	}
	return res
}

// fold maps full-width digits and half-width kana onto their canonical forms
// so keyword matching sees one spelling.
func fold(s string) string {
	return norm.NFKC.String(s)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// mentions reports whether any keyword occurs without being directly negated,
// as in "緊急ではありません".
func mentions(text string, keywords []string) bool {
	for _, kw := range keywords {
		rest := text
		for {
			idx := strings.Index(rest, kw)
			if idx < 0 {
				break
			}
			rest = rest[idx+len(kw):]
			if !hasAnyPrefix(rest, negationSuffixes) {
				return true
			}
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '。' || r == '\n' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
