package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
)

// requiredFields must all be present as keys in the multipart body. Only patient_name
// must also be non-empty.
var requiredFields = []string{
	"patient_name", "patient_age", "birth_date", "gender", "guardian_name",
	"phone_number", "email", "chief_complaint", "medical_history",
	"mouth_breathing", "thumb_sucking", "nail_biting", "tongue_thrust", "snoring",
	"tonsil_swelling", "allergic_rhinitis", "eating_sounds", "swallowing_pattern",
	"upper_jaw_condition", "lower_jaw_condition", "midline_deviation", "crossbite",
	"tongue_position", "lip_closure", "facial_appearance", "tmd_symptoms", "other_findings",
}

var photoFields = map[domain.View]string{
	domain.ViewFront:         "oral_photo_front",
	domain.ViewUpperOcclusal: "oral_photo_upper_occlusal",
	domain.ViewLowerOcclusal: "oral_photo_lower_occlusal",
	domain.ViewRightLateral:  "oral_photo_right_lateral",
	domain.ViewLeftLateral:   "oral_photo_left_lateral",
}

// intakeNumbers carries the fields with range rules after type conversion.
type intakeNumbers struct {
	PatientName      string  `form:"patient_name" validate:"required"`
	PatientAge       int     `form:"patient_age" validate:"min=0"`
	MidlineDeviation float64 `form:"midline_deviation" validate:"min=0"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("form")
	})
	return v
}

func parseIntakeForm(form *multipart.Form, validate *validator.Validate) (domain.IntakeForm, domain.PhotoSet, error) {
	values := form.Value
	var missing []string
	for _, key := range requiredFields {
		if _, ok := values[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return domain.IntakeForm{}, nil, invalidInput(fmt.Errorf("missing form fields: %s", strings.Join(missing, ", ")))
	}
	get := func(key string) string {
		return strings.TrimSpace(values[key][0])
	}

	age, err := strconv.Atoi(get("patient_age"))
	if err != nil {
		return domain.IntakeForm{}, nil, invalidInput(fmt.Errorf("patient_age must be an integer"))
	}
	midline, err := domain.ParseMillimeters(get("midline_deviation"))
	if err != nil {
		return domain.IntakeForm{}, nil, invalidInput(fmt.Errorf("midline_deviation must be a number"))
	}
	numbers := intakeNumbers{PatientName: get("patient_name"), PatientAge: age, MidlineDeviation: midline.Value}
	if err := validate.Struct(numbers); err != nil {
		return domain.IntakeForm{}, nil, invalidInput(describeValidation(err))
	}

	intake := domain.IntakeForm{
		Patient: domain.Patient{
			Name:           numbers.PatientName,
			Age:            age,
			BirthDate:      get("birth_date"),
			Gender:         get("gender"),
			GuardianName:   get("guardian_name"),
			PhoneNumber:    get("phone_number"),
			Email:          get("email"),
			ChiefComplaint: get("chief_complaint"),
			MedicalHistory: get("medical_history"),
		},
		Questionnaire: domain.Questionnaire{
			MouthBreathing:    domain.Answer(get("mouth_breathing")),
			ThumbSucking:      domain.Answer(get("thumb_sucking")),
			NailBiting:        domain.Answer(get("nail_biting")),
			TongueThrust:      domain.Answer(get("tongue_thrust")),
			Snoring:           domain.Answer(get("snoring")),
			TonsilSwelling:    domain.Answer(get("tonsil_swelling")),
			AllergicRhinitis:  domain.Answer(get("allergic_rhinitis")),
			EatingSounds:      domain.Answer(get("eating_sounds")),
			SwallowingPattern: domain.Answer(get("swallowing_pattern")),
		},
		Exam: domain.OralExam{
			UpperJaw:         domain.JawCondition(get("upper_jaw_condition")),
			LowerJaw:         domain.JawCondition(get("lower_jaw_condition")),
			MidlineDeviation: midline,
			Crossbite:        domain.Answer(get("crossbite")),
			TonguePosition:   get("tongue_position"),
			LipClosure:       get("lip_closure"),
			FacialAppearance: get("facial_appearance"),
			TMDSymptoms:      get("tmd_symptoms"),
			OtherFindings:    get("other_findings"),
		},
	}

	photos, err := readPhotos(form)
	if err != nil {
		return domain.IntakeForm{}, nil, err
	}
	return intake, photos, nil
}

func readPhotos(form *multipart.Form) (domain.PhotoSet, error) {
	photos := domain.PhotoSet{}
	for _, view := range domain.Views {
		headers := form.File[photoFields[view]]
		if len(headers) == 0 || headers[0].Filename == "" {
			continue
		}
		header := headers[0]
		f, err := header.Open()
		if err != nil {
			return nil, invalidInput(fmt.Errorf("open %s: %w", photoFields[view], err))
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, invalidInput(fmt.Errorf("read %s: %w", photoFields[view], err))
		}
		photos[view] = domain.Photo{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	}
	return photos, nil
}

func describeValidation(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "min":
			parts = append(parts, fe.Field()+" must be >= "+fe.Param())
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}

func invalidInput(err error) error {
	return domain.WrapError(domain.ErrInvalidInput, "parse intake form", err)
}
