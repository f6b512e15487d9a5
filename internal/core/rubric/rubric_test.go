package rubric

import (
	"reflect"
	"testing"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
)

func baseForm() domain.IntakeForm {
	return domain.IntakeForm{
		Patient: domain.Patient{Name: "Taro", Age: 7},
		Questionnaire: domain.Questionnaire{
			MouthBreathing:    domain.AnswerNo,
			ThumbSucking:      domain.AnswerNo,
			NailBiting:        domain.AnswerNo,
			TongueThrust:      domain.AnswerNo,
			Snoring:           domain.AnswerNo,
			TonsilSwelling:    domain.AnswerNo,
			AllergicRhinitis:  domain.AnswerNo,
			EatingSounds:      domain.AnswerNo,
			SwallowingPattern: domain.AnswerNo,
		},
		Exam: domain.OralExam{
			UpperJaw:  domain.JawNormal,
			LowerJaw:  domain.JawNormal,
			Crossbite: domain.AnswerNo,
		},
	}
}

func mm(t *testing.T, raw string) domain.Millimeters {
	t.Helper()
	value, err := domain.ParseMillimeters(raw)
	if err != nil {
		t.Fatalf("ParseMillimeters(%q) error = %v", raw, err)
	}
	return value
}

func TestMuscleScoreCountsYesAnswersInDeclarationOrder(t *testing.T) {
	form := baseForm()
	form.Questionnaire.SwallowingPattern = domain.AnswerYes
	form.Questionnaire.MouthBreathing = domain.AnswerYes
	form.Questionnaire.Snoring = domain.AnswerYes

	got := Classify(form)
	if got.MuscleScore != 3 {
		t.Fatalf("expected mfs 3, got %d", got.MuscleScore)
	}
	want := []string{"口呼吸", "いびき", "嚥下パターン"}
	if !reflect.DeepEqual(got.MuscleItems, want) {
		t.Fatalf("expected items %v, got %v", want, got.MuscleItems)
	}
}

func TestMuscleScoreStaysWithinBounds(t *testing.T) {
	none := Classify(baseForm())
	if none.MuscleScore != 0 || len(none.MuscleItems) != 0 {
		t.Fatalf("expected empty mfs, got %d %v", none.MuscleScore, none.MuscleItems)
	}

	all := baseForm()
	all.Questionnaire = domain.Questionnaire{
		MouthBreathing:    domain.AnswerYes,
		ThumbSucking:      domain.AnswerYes,
		NailBiting:        domain.AnswerYes,
		TongueThrust:      domain.AnswerYes,
		Snoring:           domain.AnswerYes,
		TonsilSwelling:    domain.AnswerYes,
		AllergicRhinitis:  domain.AnswerYes,
		EatingSounds:      domain.AnswerYes,
		SwallowingPattern: domain.AnswerYes,
	}
	got := Classify(all)
	if got.MuscleScore != domain.MaxMuscleScore {
		t.Fatalf("expected mfs %d, got %d", domain.MaxMuscleScore, got.MuscleScore)
	}
	if len(got.MuscleItems) != domain.MaxMuscleScore {
		t.Fatalf("expected %d items, got %d", domain.MaxMuscleScore, len(got.MuscleItems))
	}
}

func TestUnrecognisedAnswersDoNotFire(t *testing.T) {
	form := baseForm()
	form.Questionnaire.MouthBreathing = "YES"
	form.Questionnaire.TongueThrust = "maybe"
	form.Exam.UpperJaw = "Crowding"
	form.Exam.Crossbite = "1"

	got := Classify(form)
	if got.MuscleScore != 0 || got.AlignmentScore != 0 {
		t.Fatalf("expected lenient zero scores, got mfs=%d das=%d", got.MuscleScore, got.AlignmentScore)
	}
	if got.Risk != domain.RiskLow {
		t.Fatalf("expected low risk, got %s", got.Risk)
	}
}

func TestAlignmentScoreSumsFiredRules(t *testing.T) {
	form := baseForm()
	form.Exam.UpperJaw = domain.JawCrowding
	form.Exam.LowerJaw = domain.JawSpacing
	form.Exam.MidlineDeviation = mm(t, "1.2")
	form.Exam.Crossbite = domain.AnswerYes

	got := Classify(form)
	if got.AlignmentScore != 7 {
		t.Fatalf("expected das 7, got %d", got.AlignmentScore)
	}
	want := []string{"上顎の叢生", "下顎の空隙歯列", "正中線のずれ (1.2mm)", "交叉咬合"}
	if !reflect.DeepEqual(got.AlignmentItems, want) {
		t.Fatalf("expected items %v, got %v", want, got.AlignmentItems)
	}
}

func TestAlignmentWeights(t *testing.T) {
	tests := []struct {
		name  string
		upper domain.JawCondition
		lower domain.JawCondition
		mid   string
		cross domain.Answer
		want  int
	}{
		{name: "both crowding", upper: domain.JawCrowding, lower: domain.JawCrowding, mid: "0", cross: domain.AnswerNo, want: 6},
		{name: "both spacing", upper: domain.JawSpacing, lower: domain.JawSpacing, mid: "0", cross: domain.AnswerNo, want: 2},
		{name: "midline at threshold", upper: domain.JawNormal, lower: domain.JawNormal, mid: "1.0", cross: domain.AnswerNo, want: 1},
		{name: "midline below threshold", upper: domain.JawNormal, lower: domain.JawNormal, mid: "0.99", cross: domain.AnswerNo, want: 0},
		{name: "crossbite only", upper: domain.JawNormal, lower: domain.JawNormal, mid: "0", cross: domain.AnswerYes, want: 2},
		{name: "everything", upper: domain.JawCrowding, lower: domain.JawCrowding, mid: "3", cross: domain.AnswerYes, want: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := baseForm()
			form.Exam.UpperJaw = tt.upper
			form.Exam.LowerJaw = tt.lower
			form.Exam.MidlineDeviation = mm(t, tt.mid)
			form.Exam.Crossbite = tt.cross
			if got := Classify(form).AlignmentScore; got != tt.want {
				t.Fatalf("expected das %d, got %d", tt.want, got)
			}
		})
	}
}

func TestMidlineItemKeepsSuppliedPrecision(t *testing.T) {
	form := baseForm()
	form.Exam.MidlineDeviation = mm(t, "2.50")

	got := Classify(form)
	if len(got.AlignmentItems) != 1 || got.AlignmentItems[0] != "正中線のずれ (2.50mm)" {
		t.Fatalf("unexpected midline item: %v", got.AlignmentItems)
	}
}

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		name   string
		mouth  domain.Answer
		tongue domain.Answer
		upper  domain.JawCondition
		lower  domain.JawCondition
		want   domain.RiskLevel
	}{
		{name: "all high conditions upper", mouth: domain.AnswerYes, tongue: domain.AnswerYes, upper: domain.JawCrowding, lower: domain.JawNormal, want: domain.RiskHigh},
		{name: "all high conditions lower", mouth: domain.AnswerYes, tongue: domain.AnswerYes, upper: domain.JawNormal, lower: domain.JawCrowding, want: domain.RiskHigh},
		{name: "no crowding", mouth: domain.AnswerYes, tongue: domain.AnswerYes, upper: domain.JawNormal, lower: domain.JawNormal, want: domain.RiskMedium},
		{name: "no tongue thrust", mouth: domain.AnswerYes, tongue: domain.AnswerNo, upper: domain.JawCrowding, lower: domain.JawCrowding, want: domain.RiskMedium},
		{name: "no mouth breathing", mouth: domain.AnswerNo, tongue: domain.AnswerYes, upper: domain.JawCrowding, lower: domain.JawNormal, want: domain.RiskMedium},
		{name: "spacing is not crowding", mouth: domain.AnswerYes, tongue: domain.AnswerYes, upper: domain.JawSpacing, lower: domain.JawSpacing, want: domain.RiskMedium},
		{name: "no habits", mouth: domain.AnswerNo, tongue: domain.AnswerNo, upper: domain.JawCrowding, lower: domain.JawCrowding, want: domain.RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := baseForm()
			form.Questionnaire.MouthBreathing = tt.mouth
			form.Questionnaire.TongueThrust = tt.tongue
			form.Exam.UpperJaw = tt.upper
			form.Exam.LowerJaw = tt.lower
			if got := Classify(form).Risk; got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestApplianceRecommendation(t *testing.T) {
	tests := []struct {
		name  string
		age   int
		upper domain.JawCondition
		want  domain.Appliance
	}{
		{name: "school age crowding", age: 8, upper: domain.JawCrowding, want: domain.ApplianceT4K},
		{name: "lower bound crowding", age: 6, upper: domain.JawCrowding, want: domain.ApplianceT4K},
		{name: "upper bound crowding", age: 10, upper: domain.JawCrowding, want: domain.ApplianceT4K},
		{name: "school age without crowding", age: 8, upper: domain.JawNormal, want: domain.ApplianceConsultation},
		{name: "junior", age: 4, upper: domain.JawNormal, want: domain.ApplianceMyobraceJr},
		{name: "junior crowding", age: 3, upper: domain.JawCrowding, want: domain.ApplianceMyobraceJr},
		{name: "junior upper bound", age: 5, upper: domain.JawSpacing, want: domain.ApplianceMyobraceJr},
		{name: "teen", age: 15, upper: domain.JawCrowding, want: domain.ApplianceConsultation},
		{name: "toddler", age: 2, upper: domain.JawCrowding, want: domain.ApplianceConsultation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := baseForm()
			form.Patient.Age = tt.age
			form.Exam.UpperJaw = tt.upper
			if got := Classify(form).Appliance; got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	form := baseForm()
	form.Questionnaire.MouthBreathing = domain.AnswerYes
	form.Questionnaire.TongueThrust = domain.AnswerYes
	form.Exam.UpperJaw = domain.JawCrowding
	form.Exam.MidlineDeviation = mm(t, "1.5")

	first := Classify(form)
	second := Classify(form)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical summaries, got %+v and %+v", first, second)
	}
}
