package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Answer is a questionnaire response. Only "yes" ever fires a rule.
type Answer string

const (
	AnswerYes Answer = "yes"
	AnswerNo  Answer = "no"
)

func (a Answer) IsYes() bool { return a == AnswerYes }

type JawCondition string

const (
	JawNormal   JawCondition = "normal"
	JawCrowding JawCondition = "crowding"
	JawSpacing  JawCondition = "spacing"
)

// Millimeters keeps the value as supplied so reports can echo the original precision.
type Millimeters struct {
	Value float64
	Text  string
}

func ParseMillimeters(raw string) (Millimeters, error) {
	text := strings.TrimSpace(raw)
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Millimeters{}, fmt.Errorf("parse millimeters %q: %w", raw, err)
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return Millimeters{}, fmt.Errorf("parse millimeters %q: not a finite number", raw)
	}
	return Millimeters{Value: value, Text: text}, nil
}

func (m Millimeters) String() string {
	if m.Text != "" {
		return m.Text
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

type Patient struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	BirthDate      string `json:"birth_date"`
	Gender         string `json:"gender"`
	GuardianName   string `json:"guardian_name"`
	PhoneNumber    string `json:"phone_number"`
	Email          string `json:"email"`
	ChiefComplaint string `json:"chief_complaint"`
	MedicalHistory string `json:"medical_history"`
}

// Questionnaire holds the nine habit answers in their fixed declaration order.
type Questionnaire struct {
	MouthBreathing    Answer `json:"mouth_breathing"`
	ThumbSucking      Answer `json:"thumb_sucking"`
	NailBiting        Answer `json:"nail_biting"`
	TongueThrust      Answer `json:"tongue_thrust"`
	Snoring           Answer `json:"snoring"`
	TonsilSwelling    Answer `json:"tonsil_swelling"`
	AllergicRhinitis  Answer `json:"allergic_rhinitis"`
	EatingSounds      Answer `json:"eating_sounds"`
	SwallowingPattern Answer `json:"swallowing_pattern"`
}

type OralExam struct {
	UpperJaw         JawCondition `json:"upper_jaw_condition"`
	LowerJaw         JawCondition `json:"lower_jaw_condition"`
	MidlineDeviation Millimeters  `json:"-"`
	Crossbite        Answer       `json:"crossbite"`
	TonguePosition   string       `json:"tongue_position"`
	LipClosure       string       `json:"lip_closure"`
	FacialAppearance string       `json:"facial_appearance"`
	TMDSymptoms      string       `json:"tmd_symptoms"`
	OtherFindings    string       `json:"other_findings"`
}

type IntakeForm struct {
	Patient       Patient
	Questionnaire Questionnaire
	Exam          OralExam
}
