package domain

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type Appliance string

const (
	ApplianceT4K          Appliance = "T4K"
	ApplianceMyobraceJr   Appliance = "Myobrace for Juniors"
	ApplianceConsultation Appliance = "consultation"
)

const MaxMuscleScore = 9

type ScoreSummary struct {
	MuscleScore    int       `json:"mfs_score"`
	MuscleItems    []string  `json:"mfs_items"`
	AlignmentScore int       `json:"das_score"`
	AlignmentItems []string  `json:"das_items"`
	Risk           RiskLevel `json:"risk_level"`
	Appliance      Appliance `json:"appliance"`
}
