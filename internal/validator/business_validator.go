package validator

import (
	"fmt"
	"unicode/utf8"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/go-playground/validator/v10"
)

// registerRules registers the custom tags used by the DTOs
func registerRules(validate *validator.Validate) {
	// Passing score validation (0-100)
	_ = validate.RegisterValidation("passing_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Int()
		return score >= 0 && score <= 100
	})

	// Points must be positive; zero-point questions would make the score meaningless
	_ = validate.RegisterValidation("points_range", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() >= 1
	})

	_ = validate.RegisterValidation("answer_text", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) <= MaxAnswerTextLength
	})

	_ = validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		switch models.QuestionType(fl.Field().String()) {
		case models.MultipleChoice, models.TrueFalse, models.Essay:
			return true
		}
		return false
	})
}

// ValidateQuizDefinition validates struct tags plus the cross-field rules of a
// catalog import
func (v *Validator) ValidateQuizDefinition(def *QuizDefinition) error {
	var errors ValidationErrors

	if err := v.validate.Struct(def); err != nil {
		errors = append(errors, ToValidationErrors(err)...)
	}
	errors = append(errors, validateCrossFieldRules(def)...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func validateCrossFieldRules(def *QuizDefinition) ValidationErrors {
	var errors ValidationErrors

	if def.StartTime != nil && def.EndTime != nil && def.EndTime.Before(*def.StartTime) {
		errors = append(errors, ValidationError{
			Field:   "end_time",
			Message: "must not be before start_time",
			Value:   def.EndTime,
			Rule:    "business_logic",
		})
	}

	for i, q := range def.Questions {
		field := fmt.Sprintf("questions[%d].options", i)
		correct := 0
		for _, o := range q.Options {
			if o.IsCorrect {
				correct++
			}
		}

		switch q.Type {
		case models.Essay:
			if len(q.Options) > 0 {
				errors = append(errors, ValidationError{
					Field:   field,
					Message: "essay questions cannot have options",
					Value:   len(q.Options),
					Rule:    "business_logic",
				})
			}
		case models.TrueFalse:
			if len(q.Options) != 2 || correct != 1 {
				errors = append(errors, ValidationError{
					Field:   field,
					Message: "true/false questions need exactly two options, one correct",
					Value:   len(q.Options),
					Rule:    "business_logic",
				})
			}
		case models.MultipleChoice:
			if len(q.Options) < 2 || correct < 1 {
				errors = append(errors, ValidationError{
					Field:   field,
					Message: "multiple choice questions need at least two options and one correct",
					Value:   len(q.Options),
					Rule:    "business_logic",
				})
			}
		}
	}

	return errors
}
