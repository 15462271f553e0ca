package types

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

// AskParams is the body of POST /ask_question. Content carries inline
// extracted text for the sourceless fallback path; SelectedExtractions names
// stored extraction files.
type AskParams struct {
	ConversationID      string   `json:"conversation_id"`
	CompetenceLevel     string   `json:"competence_level" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Question            string   `json:"question"`
	SelectedExtractions []string `json:"selected_extractions"`
	SelectedModel       string   `json:"selected_model"`
	Content             string   `json:"content"`
	URLs                string   `json:"urls"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *AskParams) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: http.StatusUnprocessableEntity,
		Errors: errors,
	}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

// AskResponse is returned by the ask endpoint.
type AskResponse struct {
	Response         string   `json:"response"`
	AudioURL         string   `json:"audio_url,omitempty"`
	PerSourceAnswers []string `json:"per_source_answers,omitempty"`
}

// ExtractResponse is returned by the extract endpoint.
type ExtractResponse struct {
	Content string `json:"content"`
}
