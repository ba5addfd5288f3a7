package submission

import (
	"log/slog"

	"formgate/internal/form"
	dErrors "formgate/pkg/domain-errors"
)

// Pipeline annotates and validates raw responses against a form schema.
type Pipeline struct {
	validator form.FieldValidator
	logic     form.LogicEvaluator
	logger    *slog.Logger
}

type PipelineOption func(*Pipeline)

func WithValidator(v form.FieldValidator) PipelineOption {
	return func(p *Pipeline) { p.validator = v }
}

func WithLogic(l form.LogicEvaluator) PipelineOption {
	return func(p *Pipeline) { p.logic = l }
}

func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		validator: form.BasicValidator{},
		logic:     form.ShowAllLogic{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process matches every response to its field, applies the form's logic, and
// validates visible answers. Any unmatched response, blocked submission, or
// validation failure fails the whole batch; partial results are never
// returned.
func (p *Pipeline) Process(frm *form.Form, responses []form.Response) ([]ProcessedResponse, error) {
	for _, r := range responses {
		if _, ok := frm.FieldByID(r.FieldID); !ok {
			p.logger.Error("response matches no form field",
				"formId", frm.ID,
				"fieldId", r.FieldID)
			return nil, dErrors.New(dErrors.CodeProcessingFailed, "response matches no form field")
		}
	}

	if p.logic.PreventSubmit(frm, responses) {
		p.logger.Info("submission blocked by form logic", "formId", frm.ID)
		return nil, dErrors.New(dErrors.CodeProcessingFailed, "submission is blocked by form logic")
	}
	visible := p.logic.VisibleFieldIDs(frm, responses)

	processed := make([]ProcessedResponse, 0, len(responses))
	for _, r := range responses {
		field, _ := frm.FieldByID(r.FieldID)
		_, isVisible := visible[field.ID]

		if isVisible {
			if err := p.validator.Validate(field, r.Answer); err != nil {
				p.logger.Error("response failed field validation",
					"formId", frm.ID,
					"fieldId", field.ID)
				return nil, dErrors.Wrap(err, dErrors.CodeProcessingFailed, "response failed field validation")
			}
		}

		processed = append(processed, ProcessedResponse{
			FieldID:   field.ID,
			FieldType: field.Type,
			Question:  field.Title,
			Answer:    r.Answer,
			IsVisible: isVisible,
			Attribute: field.Attribute,
		})
	}
	return processed, nil
}

// NationalIDFieldID names the synthetic response carrying the
// provider-asserted respondent identifier.
const NationalIDFieldID = "identity.nationalId"

// AppendIdentityResponses adds the provider-asserted identity of the
// respondent as a synthetic, already-verified response. These fields are not
// editable on the form but must appear in the submitted record.
func AppendIdentityResponses(processed []ProcessedResponse, nationalID string) []ProcessedResponse {
	if nationalID == "" {
		return processed
	}
	return append(processed, ProcessedResponse{
		FieldID:        NationalIDFieldID,
		FieldType:      form.TypeShortText,
		Question:       "NRIC",
		Answer:         nationalID,
		IsVisible:      true,
		IsUserVerified: true,
	})
}
