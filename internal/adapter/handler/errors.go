package handler

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"google.golang.org/grpc/codes"

	"github.com/rl1809/vending-machine/internal/core/domain"
)

const (
	TextCodeUnknownCategory    = "VENDING_UNKNOWN_CATEGORY"
	TextCodeInsufficientStock  = "VENDING_INSUFFICIENT_STOCK"
	TextCodeRefillOverflow     = "VENDING_REFILL_OVERFLOW"
	TextCodeUnauthorized       = "VENDING_UNAUTHORIZED"
	TextCodeAlreadyExists      = "VENDING_ALREADY_EXISTS"
	TextCodeStorageFailure     = "VENDING_STORAGE_FAILURE"
	TextCodeNotInitialized     = "VENDING_NOT_INITIALIZED"
	TextCodeAlreadyInitialized = "VENDING_ALREADY_INITIALIZED"
	TextCodeBadInput           = "VENDING_BAD_INPUT"
	TextCodeUnsupported        = "VENDING_UNSUPPORTED_COMMAND"
	TextCodeInternal           = "VENDING_INTERNAL"
)

type errorRule struct {
	target   error
	category goerrors.Category
	status   int
	code     codes.Code
	textCode string
}

var errorRules = []errorRule{
	{domain.ErrUnknownCategory, goerrors.CategoryBadInput, http.StatusBadRequest, codes.InvalidArgument, TextCodeUnknownCategory},
	{domain.ErrInsufficientStock, goerrors.CategoryConflict, http.StatusConflict, codes.FailedPrecondition, TextCodeInsufficientStock},
	{domain.ErrRefillOverflow, goerrors.CategoryValidation, http.StatusUnprocessableEntity, codes.OutOfRange, TextCodeRefillOverflow},
	{domain.ErrUnauthorized, goerrors.CategoryAuthz, http.StatusForbidden, codes.PermissionDenied, TextCodeUnauthorized},
	{domain.ErrAlreadyExists, goerrors.CategoryConflict, http.StatusConflict, codes.AlreadyExists, TextCodeAlreadyExists},
	{domain.ErrStorageFailure, goerrors.CategoryExternal, http.StatusServiceUnavailable, codes.Unavailable, TextCodeStorageFailure},
	{domain.ErrNotInitialized, goerrors.CategoryNotFound, http.StatusNotFound, codes.FailedPrecondition, TextCodeNotInitialized},
	{domain.ErrAlreadyInitialized, goerrors.CategoryConflict, http.StatusConflict, codes.AlreadyExists, TextCodeAlreadyInitialized},
	{domain.ErrInvalidPrincipal, goerrors.CategoryBadInput, http.StatusBadRequest, codes.InvalidArgument, TextCodeBadInput},
	{domain.ErrInvalidMessage, goerrors.CategoryBadInput, http.StatusBadRequest, codes.InvalidArgument, TextCodeBadInput},
	{domain.ErrUnsupportedCommand, goerrors.CategoryOperation, http.StatusBadRequest, codes.Unimplemented, TextCodeUnsupported},
}

// ErrorBody is the JSON error envelope returned by the HTTP API.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Category string `json:"category"`
	Code     int    `json:"code"`
	TextCode string `json:"text_code"`
	Message  string `json:"message"`
}

// mapError classifies err into a rich error and the matching gRPC code.
func mapError(err error) (*goerrors.Error, codes.Code) {
	for _, rule := range errorRules {
		if !errors.Is(err, rule.target) {
			continue
		}
		message := err.Error()
		if rule.target == domain.ErrStorageFailure {
			message = domain.ErrStorageFailure.Error()
		}
		return goerrors.New(message, rule.category).
			WithCode(rule.status).
			WithTextCode(rule.textCode), rule.code
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if rich.Code == 0 {
			rich.Code = http.StatusInternalServerError
		}
		if rich.TextCode == "" {
			rich.TextCode = TextCodeInternal
		}
		return rich, codes.Internal
	}

	return goerrors.New("internal error", goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeInternal), codes.Internal
}

func errorBody(rich *goerrors.Error) ErrorBody {
	return ErrorBody{Error: ErrorDetail{
		Category: fmt.Sprint(rich.Category),
		Code:     rich.Code,
		TextCode: rich.TextCode,
		Message:  rich.Message,
	}}
}
