package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	customerdomain "memberd/internal/customer/domain"
	discountdomain "memberd/internal/discount/domain"
	gatewaydomain "memberd/internal/gateway/domain"
	leveldomain "memberd/internal/level/domain"
	membershipdomain "memberd/internal/membership/domain"
	paymentdomain "memberd/internal/payment/domain"
	registrationdomain "memberd/internal/registration/domain"
	restrictiondomain "memberd/internal/restriction/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isCustomerValidationError(err),
		isLevelValidationError(err),
		isMembershipValidationError(err),
		isDiscountValidationError(err),
		isPaymentValidationError(err),
		isRestrictionValidationError(err),
		isRegistrationValidationError(err),
		isGatewayValidationError(err):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, customerdomain.ErrEmailTaken),
		errors.Is(err, discountdomain.ErrCodeTaken),
		errors.Is(err, paymentdomain.ErrDuplicateTransaction),
		errors.Is(err, membershipdomain.ErrPaymentPlanComplete),
		errors.Is(err, membershipdomain.ErrNotCancellable):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, leveldomain.ErrNotFound),
		errors.Is(err, membershipdomain.ErrNotFound),
		errors.Is(err, discountdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, restrictiondomain.ErrNotFound),
		errors.Is(err, gatewaydomain.ErrProviderNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func isCustomerValidationError(err error) bool {
	switch err {
	case customerdomain.ErrInvalidEmail,
		customerdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}

func isLevelValidationError(err error) bool {
	switch err {
	case leveldomain.ErrInvalidName,
		leveldomain.ErrInvalidDuration,
		leveldomain.ErrInvalidUnit,
		leveldomain.ErrInvalidStatus,
		leveldomain.ErrInvalidID:
		return true
	default:
		return false
	}
}

func isMembershipValidationError(err error) bool {
	switch err {
	case membershipdomain.ErrInvalidID,
		membershipdomain.ErrInvalidCustomer,
		membershipdomain.ErrInvalidLevel,
		membershipdomain.ErrInvalidStatus,
		membershipdomain.ErrLevelInactive,
		membershipdomain.ErrNoLevel:
		return true
	default:
		return false
	}
}

func isDiscountValidationError(err error) bool {
	switch err {
	case discountdomain.ErrInvalidCode,
		discountdomain.ErrInvalidAmount,
		discountdomain.ErrInvalidUnit,
		discountdomain.ErrInactive,
		discountdomain.ErrExpired,
		discountdomain.ErrMaxedOut,
		discountdomain.ErrLevelMismatch:
		return true
	default:
		return false
	}
}

func isPaymentValidationError(err error) bool {
	switch err {
	case paymentdomain.ErrInvalidID,
		paymentdomain.ErrInvalidMembership:
		return true
	default:
		return false
	}
}

func isRestrictionValidationError(err error) bool {
	switch err {
	case restrictiondomain.ErrInvalidContent,
		restrictiondomain.ErrInvalidTerm,
		restrictiondomain.ErrInvalidMode,
		restrictiondomain.ErrInvalidLevel:
		return true
	default:
		return false
	}
}

func isRegistrationValidationError(err error) bool {
	switch err {
	case registrationdomain.ErrInvalidLevel,
		registrationdomain.ErrInvalidCustomer,
		registrationdomain.ErrLevelInactive:
		return true
	default:
		return false
	}
}

func isGatewayValidationError(err error) bool {
	switch err {
	case gatewaydomain.ErrInvalidSignature,
		gatewaydomain.ErrInvalidPayload,
		gatewaydomain.ErrInvalidEvent:
		return true
	default:
		return false
	}
}
