// Package rubric scores an intake form. Classify is pure and deterministic.
package rubric

import (
	"fmt"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
)

const (
	crowdingWeight  = 3
	spacingWeight   = 1
	midlineWeight   = 1
	crossbiteWeight = 2

	midlineThresholdMM = 1.0
)

type habit struct {
	label  string
	answer func(domain.Questionnaire) domain.Answer
}

// habits is the MFS questionnaire in declaration order.
var habits = []habit{
	{"口呼吸", func(q domain.Questionnaire) domain.Answer { return q.MouthBreathing }},
	{"指しゃぶり", func(q domain.Questionnaire) domain.Answer { return q.ThumbSucking }},
	{"爪噛み", func(q domain.Questionnaire) domain.Answer { return q.NailBiting }},
	{"舌癖", func(q domain.Questionnaire) domain.Answer { return q.TongueThrust }},
	{"いびき", func(q domain.Questionnaire) domain.Answer { return q.Snoring }},
	{"扁桃腺の腫れ", func(q domain.Questionnaire) domain.Answer { return q.TonsilSwelling }},
	{"アレルギー性鼻炎", func(q domain.Questionnaire) domain.Answer { return q.AllergicRhinitis }},
	{"食事中の音", func(q domain.Questionnaire) domain.Answer { return q.EatingSounds }},
	{"嚥下パターン", func(q domain.Questionnaire) domain.Answer { return q.SwallowingPattern }},
}

func Classify(form domain.IntakeForm) domain.ScoreSummary {
	muscleScore, muscleItems := muscleFunction(form.Questionnaire)
	alignmentScore, alignmentItems := dentalAlignment(form.Exam)

	return domain.ScoreSummary{
		MuscleScore:    muscleScore,
		MuscleItems:    muscleItems,
		AlignmentScore: alignmentScore,
		AlignmentItems: alignmentItems,
		Risk:           riskLevel(form),
		Appliance:      appliance(form),
	}
}

func muscleFunction(q domain.Questionnaire) (int, []string) {
	items := make([]string, 0, len(habits))
	for _, h := range habits {
		if h.answer(q).IsYes() {
			items = append(items, h.label)
		}
	}
	return len(items), items
}

func dentalAlignment(exam domain.OralExam) (int, []string) {
	score := 0
	items := make([]string, 0, 4)

	jaws := []struct {
		condition domain.JawCondition
		crowding  string
		spacing   string
	}{
		{exam.UpperJaw, "上顎の叢生", "上顎の空隙歯列"},
		{exam.LowerJaw, "下顎の叢生", "下顎の空隙歯列"},
	}
	for _, jaw := range jaws {
		switch jaw.condition {
		case domain.JawCrowding:
			score += crowdingWeight
			items = append(items, jaw.crowding)
		case domain.JawSpacing:
			score += spacingWeight
			items = append(items, jaw.spacing)
		}
	}

	if exam.MidlineDeviation.Value >= midlineThresholdMM {
		score += midlineWeight
		items = append(items, fmt.Sprintf("正中線のずれ (%smm)", exam.MidlineDeviation))
	}

	if exam.Crossbite.IsYes() {
		score += crossbiteWeight
		items = append(items, "交叉咬合")
	}

	return score, items
}

// riskLevel checks the high-risk predicate first; it short-circuits the rest.
func riskLevel(form domain.IntakeForm) domain.RiskLevel {
	q := form.Questionnaire
	crowded := form.Exam.UpperJaw == domain.JawCrowding || form.Exam.LowerJaw == domain.JawCrowding

	switch {
	case q.MouthBreathing.IsYes() && q.TongueThrust.IsYes() && crowded:
		return domain.RiskHigh
	case q.MouthBreathing.IsYes() || q.TongueThrust.IsYes():
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// appliance evaluates brackets in priority order; keep the order if ranges change.
func appliance(form domain.IntakeForm) domain.Appliance {
	age := form.Patient.Age
	switch {
	case age >= 6 && age <= 10 && form.Exam.UpperJaw == domain.JawCrowding:
		return domain.ApplianceT4K
	case age >= 3 && age <= 5:
		return domain.ApplianceMyobraceJr
	default:
		return domain.ApplianceConsultation
	}
}
