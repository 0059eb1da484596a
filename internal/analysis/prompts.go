package analysis

import (
	"fmt"
	"strings"

	"intake/internal/domain"
)

// DefaultSuggestion is used when the model leaves suggestions empty.
const DefaultSuggestion = "画像をより鮮明に撮影してください"

// EmergencyGuidance is returned by the heuristic extractor for emergencies.
const EmergencyGuidance = "直ちに119番に電話するか、最寄りの救急医療機関を受診してください。"

type promptSection struct {
	questions []string
	schema    []string
	criteria  []string
}

var imageSections = map[domain.ImageVariant]promptSection{
	domain.ImageVariantBasic: {
		questions: []string{
			"健康保険証（保険証）かどうか",
			"おくすり手帳（薬手帳）かどうか",
			"表紙だけでなく中身（詳細情報）がしっかり見える状態かどうか",
		},
		schema: []string{
			`"isHealthInsuranceCard": boolean`,
			`"isMedicineNotebook": boolean`,
			`"isContentVisible": boolean`,
		},
		criteria: []string{
			"isHealthInsuranceCard: 健康保険証や保険証と明確に判定できる場合のみtrue、それ以外はfalse",
			"isMedicineNotebook: おくすり手帳や薬手帳と明確に判定できる場合のみtrue、それ以外はfalse",
			"isContentVisible: 文字や詳細情報がはっきりと読み取れる場合true、ぼやけている・見えない場合false",
		},
	},
	domain.ImageVariantDetailed: {
		questions: []string{
			"書類がまっすぐ（傾かずに正面から）撮影されているかどうか",
			"指や物で書類の一部が隠れていないかどうか",
			"氏名・生年月日・性別などの個人情報が読み取れるかどうか",
		},
		schema: []string{
			`"isHealthInsuranceCardStraight": boolean`,
			`"isMedicineNotebookStraight": boolean`,
			`"isHealthInsuranceCardObstructed": boolean`,
			`"isMedicineNotebookObstructed": boolean`,
			`"canReadPersonalInfo": boolean`,
			`"personalInfo": {"name": "氏名", "birthDate": "生年月日", "gender": "性別"}`,
		},
		criteria: []string{
			"isHealthInsuranceCardStraight / isMedicineNotebookStraight: 該当する書類が傾かずに正面から写っている場合のみtrue",
			"isHealthInsuranceCardObstructed / isMedicineNotebookObstructed: 該当する書類の一部が指や物で隠れている場合true",
			"canReadPersonalInfo: 個人情報がはっきり読み取れる場合のみtrue。読み取れない項目は空文字にしてください",
		},
	},
	domain.ImageVariantAddress: {
		questions: []string{
			"住民票・運転免許証・マイナンバーカードなど住所が記載された書類かどうか",
			"住所が読み取れるかどうか",
		},
		schema: []string{
			`"isAddressDocument": boolean`,
			`"canReadAddress": boolean`,
			`"location": {"zip": "郵便番号", "prefecture": "都道府県", "municipality": "市区町村", "town": "町名", "houseNumber": "番地", "buildingAndRoomNumber": "建物名・部屋番号"}`,
		},
		criteria: []string{
			"isAddressDocument: 住所が記載された本人確認書類と明確に判定できる場合のみtrue",
			"canReadAddress: 住所がはっきり読み取れる場合のみtrue。読み取れない項目は空文字にしてください",
		},
	},
}

var imageVariantChain = map[domain.ImageVariant][]domain.ImageVariant{
	domain.ImageVariantBasic:    {domain.ImageVariantBasic},
	domain.ImageVariantDetailed: {domain.ImageVariantBasic, domain.ImageVariantDetailed},
	domain.ImageVariantAddress:  {domain.ImageVariantBasic, domain.ImageVariantDetailed, domain.ImageVariantAddress},
}

// ImagePrompt returns the instruction sent along with the image.
func ImagePrompt(variant domain.ImageVariant) string {
	var questions, schema, criteria []string
	for _, v := range imageVariantChain[variant] {
		sec := imageSections[v]
		questions = append(questions, sec.questions...)
		schema = append(schema, sec.schema...)
		criteria = append(criteria, sec.criteria...)
	}
	schema = append(schema, `"analysis": "詳細な分析結果"`, `"suggestions": "改善点があれば提案"`)

	sb := &strings.Builder{}
	sb.WriteString("この画像を詳しく分析して、以下について判定してください：\n\n")
	for i, q := range questions {
		fmt.Fprintf(sb, "%d. %s\n", i+1, q)
	}
	sb.WriteString("\n必ずJSONフォーマットで以下のように返してください：\n{\n  ")
	sb.WriteString(strings.Join(schema, ",\n  "))
	sb.WriteString("\n}\n\n判定基準：\n")
	for _, c := range criteria {
		fmt.Fprintf(sb, "- %s\n", c)
	}
	sb.WriteString("また \"analysis\" の内容をしっかり反芻し、健康保険証やおくすり手帳ではありません。という結果の場合もしっかり isHealthInsuranceCard や isMedicineNotebook の値をfalseにしてください。\n\n")
	sb.WriteString("「確認できません」「わかりません」「判定できません」といった場合は、該当するbool値をfalseにしてください。\n")
	return sb.String()
}

// SymptomCategory is a fixed intake category with the phrases that signal it.
type SymptomCategory struct {
	Name     string
	Keywords []string
}

// SymptomCategories lists the categories the model may choose from.
var SymptomCategories = []SymptomCategory{
	{Name: "発熱", Keywords: []string{"発熱", "熱がある", "熱っぽい", "高熱"}},
	{Name: "咳・喉の痛み", Keywords: []string{"咳", "せき", "喉", "のど"}},
	{Name: "頭痛", Keywords: []string{"頭痛", "頭が痛"}},
	{Name: "腹痛", Keywords: []string{"腹痛", "お腹が痛", "おなかが痛", "胃が痛"}},
	{Name: "吐き気・嘔吐", Keywords: []string{"吐き気", "嘔吐", "吐いた"}},
	{Name: "下痢", Keywords: []string{"下痢"}},
	{Name: "発疹・かゆみ", Keywords: []string{"発疹", "湿疹", "かゆ", "痒"}},
	{Name: "めまい", Keywords: []string{"めまい", "眩暈", "ふらつ"}},
	{Name: "胸の痛み", Keywords: []string{"胸の痛", "胸が痛", "胸痛"}},
	{Name: "息苦しさ", Keywords: []string{"息苦し", "呼吸が苦し", "呼吸困難"}},
	{Name: "けが", Keywords: []string{"けが", "怪我", "骨折", "やけど", "火傷"}},
}

// SymptomsPrompt returns the instruction for a transcript analysis.
func SymptomsPrompt(variant domain.SymptomsVariant, transcript string) string {
	names := make([]string, 0, len(SymptomCategories))
	for _, c := range SymptomCategories {
		names = append(names, c.Name)
	}

	schema := []string{
		`"matched_categories": string[]`,
		`"is_emergency": boolean`,
		`"emergency_reasons": string[]`,
		`"emergency_guidance": string | null`,
	}
	if variant == domain.SymptomsVariantContact {
		schema = append(schema,
			`"profile_name_last_kana": "姓（カタカナ）"`,
			`"profile_name_first_kana": "名（カタカナ）"`,
			`"profile_phone": "電話番号"`,
		)
	}

	sb := &strings.Builder{}
	sb.WriteString("以下は患者が話した症状の書き起こしです。内容を分析してください。\n\n")
	fmt.Fprintf(sb, "書き起こし：\n%s\n\n", strings.TrimSpace(transcript))
	fmt.Fprintf(sb, "該当する症状カテゴリを次の一覧から選んでください：%s\n", strings.Join(names, "、"))
	sb.WriteString("意識障害・激しい胸の痛み・呼吸困難・大量の出血など、救急対応が必要な兆候がある場合は is_emergency を true にし、理由と取るべき行動を記載してください。\n")
	if variant == domain.SymptomsVariantContact {
		sb.WriteString("話の中に氏名や電話番号が含まれていれば抽出してください。含まれていない場合は空文字にしてください。\n")
	}
	sb.WriteString("\n必ずJSONフォーマットで以下のように返してください：\n{\n  ")
	sb.WriteString(strings.Join(schema, ",\n  "))
	sb.WriteString("\n}\n")
	return sb.String()
}
