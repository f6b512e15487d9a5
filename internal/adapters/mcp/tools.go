package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
	"github.com/kirillkom/mrc-intake/internal/core/rubric"
)

const classifyToolName = "classify_intake"

var answerArguments = []struct {
	name        string
	description string
}{
	{"mouth_breathing", "口呼吸 (yes/no)"},
	{"thumb_sucking", "指しゃぶり (yes/no)"},
	{"nail_biting", "爪噛み (yes/no)"},
	{"tongue_thrust", "舌癖 (yes/no)"},
	{"snoring", "いびき (yes/no)"},
	{"tonsil_swelling", "扁桃腺の腫れ (yes/no)"},
	{"allergic_rhinitis", "アレルギー性鼻炎 (yes/no)"},
	{"eating_sounds", "咀嚼音 (yes/no)"},
	{"swallowing_pattern", "嚥下パターンの異常 (yes/no)"},
	{"crossbite", "交叉咬合 (yes/no)"},
}

// NewServer exposes the scoring rubric as an MCP tool. It never calls the vision model
// and never writes files.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer("mrc-intake", version, server.WithToolCapabilities(false))
	s.AddTool(classifyIntakeTool(), handleClassifyIntake)
	return s
}

func classifyIntakeTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Score a pediatric intake with the MFS/DAS rubric and return risk level and recommended appliance as JSON."),
		mcp.WithNumber("patient_age", mcp.Description("Patient age in years")),
		mcp.WithString("upper_jaw_condition", mcp.Description("normal, crowding or spacing")),
		mcp.WithString("lower_jaw_condition", mcp.Description("normal, crowding or spacing")),
		mcp.WithString("midline_deviation", mcp.Description("Midline deviation in millimetres, e.g. 1.5")),
	}
	for _, arg := range answerArguments {
		opts = append(opts, mcp.WithString(arg.name, mcp.Description(arg.description)))
	}
	return mcp.NewTool(classifyToolName, opts...)
}

func handleClassifyIntake(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	form, err := intakeFromArguments(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, err := json.MarshalIndent(rubric.Classify(form), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode score summary: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func intakeFromArguments(req mcp.CallToolRequest) (domain.IntakeForm, error) {
	answer := func(name string) domain.Answer {
		return domain.Answer(strings.TrimSpace(req.GetString(name, "")))
	}

	age := req.GetInt("patient_age", 0)
	if age < 0 {
		return domain.IntakeForm{}, fmt.Errorf("patient_age must be >= 0")
	}

	midline := domain.Millimeters{}
	if raw := strings.TrimSpace(req.GetString("midline_deviation", "")); raw != "" {
		parsed, err := domain.ParseMillimeters(raw)
		if err != nil {
			return domain.IntakeForm{}, fmt.Errorf("midline_deviation must be a number")
		}
		if parsed.Value < 0 {
			return domain.IntakeForm{}, fmt.Errorf("midline_deviation must be >= 0")
		}
		midline = parsed
	}

	return domain.IntakeForm{
		Patient: domain.Patient{Age: age},
		Questionnaire: domain.Questionnaire{
			MouthBreathing:    answer("mouth_breathing"),
			ThumbSucking:      answer("thumb_sucking"),
			NailBiting:        answer("nail_biting"),
			TongueThrust:      answer("tongue_thrust"),
			Snoring:           answer("snoring"),
			TonsilSwelling:    answer("tonsil_swelling"),
			AllergicRhinitis:  answer("allergic_rhinitis"),
			EatingSounds:      answer("eating_sounds"),
			SwallowingPattern: answer("swallowing_pattern"),
		},
		Exam: domain.OralExam{
			UpperJaw:         domain.JawCondition(strings.TrimSpace(req.GetString("upper_jaw_condition", ""))),
			LowerJaw:         domain.JawCondition(strings.TrimSpace(req.GetString("lower_jaw_condition", ""))),
			MidlineDeviation: midline,
			Crossbite:        answer("crossbite"),
		},
	}, nil
}
