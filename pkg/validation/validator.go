package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate = validator.New()

// Request size limits
const (
	MaxUserIDLength = 64
	MaxKeyLength    = 256
	MaxBatchKeys    = 500
)

// CheckRequest asks whether a user may invoke a command at a tier
type CheckRequest struct {
	UserID       string `json:"userId" validate:"required,max=64"`
	RequiredTier string `json:"requiredTier" validate:"omitempty,oneof=FREE BASIC PRO"`
}

// RedeemRequest submits a license key for a user
type RedeemRequest struct {
	UserID string `json:"userId" validate:"required,max=64"`
	Key    string `json:"key" validate:"required,max=256"`
}

// IssueRequest mints new unassigned license keys
type IssueRequest struct {
	Tier  string `json:"tier" validate:"required,oneof=FREE BASIC PRO"`
	Count int    `json:"count" validate:"omitempty,min=1,max=500"`
}

// LoginRequest authenticates an operator
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// ValidateCheckRequest validates an authorization check request
func ValidateCheckRequest(req *CheckRequest) error {
	if req == nil {
		return errors.New("check request cannot be nil")
	}
	return validateStruct(req)
}

// ValidateRedeemRequest validates a redemption request
func ValidateRedeemRequest(req *RedeemRequest) error {
	if req == nil {
		return errors.New("redeem request cannot be nil")
	}
	if strings.TrimSpace(req.Key) == "" {
		return errors.New("Key: license key cannot be blank")
	}
	return validateStruct(req)
}

// ValidateIssueRequest validates a key issuance request
func ValidateIssueRequest(req *IssueRequest) error {
	if req == nil {
		return errors.New("issue request cannot be nil")
	}
	return validateStruct(req)
}

// ValidateLoginRequest validates an operator login request
func ValidateLoginRequest(req *LoginRequest) error {
	if req == nil {
		return errors.New("login request cannot be nil")
	}
	return validateStruct(req)
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into user-facing messages
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s: field is required", fe.Field()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s: exceeds maximum length of %s", fe.Field(), fe.Param()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s: below minimum of %s", fe.Field(), fe.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s: must be one of %s", fe.Field(), fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s: failed %s validation", fe.Field(), fe.Tag()))
		}
	}

	return errors.New(strings.Join(messages, "; "))
}
