package api

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"tradelens/models"
)

// AnalyzeRequest is the POST /api/analyze body
type AnalyzeRequest struct {
	Ticker    string `json:"ticker" validate:"required,alpha,max=5"`
	Context   string `json:"context" validate:"required,oneof=investment trading"`
	Timeframe string `json:"trading_timeframe" validate:"omitempty,oneof=1D 1W 1M 3M 6M 1Y"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// normalize trims and upper-cases the ticker and timeframe before validation
func (r *AnalyzeRequest) normalize() {
	r.Ticker = strings.ToUpper(strings.TrimSpace(r.Ticker))
	r.Context = strings.ToLower(strings.TrimSpace(r.Context))
	r.Timeframe = strings.ToUpper(strings.TrimSpace(r.Timeframe))
}

// Validate checks the request and converts it to an AnalysisRequest.
// Failures are *models.AppError with the matching public code.
func (r *AnalyzeRequest) Validate() (models.AnalysisRequest, error) {
	r.normalize()

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return models.AnalysisRequest{}, models.NewAppError(models.CodeInvalidParameter, "invalid request", err)
		}
		return models.AnalysisRequest{}, fieldError(verrs[0])
	}

	return models.NewAnalysisRequest(r.Ticker, models.AnalysisContext(r.Context), models.Timeframe(r.Timeframe)), nil
}

func fieldError(fe validator.FieldError) error {
	param := jsonField(fe.Field())
	if fe.Tag() == "required" {
		return models.NewAppError(models.CodeMissingParameter, param+" is required", nil)
	}

	switch fe.Field() {
	case "Ticker":
		return models.NewAppError(models.CodeInvalidTicker, "ticker must be 1 to 5 letters", nil)
	case "Context":
		return models.NewAppError(models.CodeInvalidParameter, "context must be investment or trading", nil)
	case "Timeframe":
		return models.NewAppError(models.CodeInvalidParameter, "trading_timeframe must be one of 1D, 1W, 1M, 3M, 6M, 1Y", nil)
	default:
		return models.NewAppError(models.CodeInvalidParameter, param+" is invalid", nil)
	}
}

func jsonField(field string) string {
	switch field {
	case "Ticker":
		return "ticker"
	case "Context":
		return "context"
	case "Timeframe":
		return "trading_timeframe"
	default:
		return strings.ToLower(field)
	}
}
