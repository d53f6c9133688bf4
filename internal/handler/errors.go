package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	customError "github.com/segyhp/microloan-engine/pkg/errors"
	"github.com/segyhp/microloan-engine/pkg/response"
)

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, customError.ErrInvalidInput):
		return http.StatusBadRequest, customError.ErrCodeInvalidInput
	case errors.Is(err, customError.ErrNotFound):
		return http.StatusNotFound, customError.ErrCodeNotFound
	case errors.Is(err, customError.ErrConcurrencyConflict):
		return http.StatusConflict, customError.ErrCodeConcurrencyConflict
	case errors.Is(err, customError.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, customError.ErrCodeInvalidTransition
	case errors.Is(err, customError.ErrInvalidLoanState):
		return http.StatusUnprocessableEntity, customError.ErrCodeInvalidLoanState
	case errors.Is(err, customError.ErrScheduleNotInitialized):
		return http.StatusUnprocessableEntity, customError.ErrCodeScheduleNotInitialized
	case errors.Is(err, customError.ErrPlanInUse):
		return http.StatusUnprocessableEntity, customError.ErrCodePlanInUse
	}
	return http.StatusInternalServerError, customError.ErrCodeInternal
}

func (h *LoanHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	message := http.StatusText(status)
	var businessErr *customError.BusinessError
	if errors.As(err, &businessErr) {
		message = businessErr.Message
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Unhandled error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		// internals stay in the log
		response.ErrorWithCode(w, status, code, "An unexpected error occurred", nil)
		return
	}

	response.ErrorWithCode(w, status, code, message, nil)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return customError.WrapInvalidInput("body", "is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return customError.NewBusinessError(customError.ErrCodeInvalidInput, "Invalid request body", fmt.Errorf("%w: %v", customError.ErrInvalidInput, err))
	}
	return nil
}

// validationError turns the first failed validator rule into an invalid-input error
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := "failed " + fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return customError.WrapInvalidInput(fe.Field(), reason)
	}
	return customError.NewBusinessError(customError.ErrCodeInvalidInput, "Invalid request", fmt.Errorf("%w: %v", customError.ErrInvalidInput, err))
}
