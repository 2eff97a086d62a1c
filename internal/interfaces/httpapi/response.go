package httpapi

import (
	"context"
	"errors"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/goldstats-live/internal/usecase"
)

const (
	envelopeAPIVersion = "2.0"
	errorDomain        = "goldstats-live"
)

// envelope is the body of every JSON response: data on success, error otherwise.
type envelope struct {
	APIVersion string     `json:"apiVersion"`
	Data       any        `json:"data,omitempty"`
	Error      *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Status  string      `json:"status"`
	Errors  []errorItem `json:"errors,omitempty"`
}

type errorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type errorClass struct {
	httpStatus int
	reason     string
	status     string
	header     http.Header
}

// errorClasses is matched in order; specific errors come before the sentinels
// they wrap.
var errorClasses = []struct {
	target error
	class  errorClass
}{
	{errUpgradeRequired, errorClass{
		httpStatus: http.StatusUpgradeRequired,
		reason:     "upgradeRequired",
		status:     "FAILED_PRECONDITION",
		header:     http.Header{"Upgrade": {"websocket"}, "Connection": {"Upgrade"}},
	}},
	{usecase.ErrInvalidInput, errorClass{httpStatus: http.StatusBadRequest, reason: "invalidInput", status: "INVALID_ARGUMENT"}},
	{usecase.ErrNotFound, errorClass{httpStatus: http.StatusNotFound, reason: "notFound", status: "NOT_FOUND"}},
	{usecase.ErrDependencyUnavailable, errorClass{httpStatus: http.StatusServiceUnavailable, reason: "dependencyUnavailable", status: "UNAVAILABLE"}},
	{context.DeadlineExceeded, errorClass{httpStatus: http.StatusGatewayTimeout, reason: "deadlineExceeded", status: "DEADLINE_EXCEEDED"}},
}

var internalErrorClass = errorClass{httpStatus: http.StatusInternalServerError, reason: "internalError", status: "INTERNAL"}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	_, span := startSpan(ctx, "httpapi.writeJSON")
	defer span.End()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func writeSuccess(ctx context.Context, w http.ResponseWriter, status int, data any) {
	writeJSON(ctx, w, status, envelope{APIVersion: envelopeAPIVersion, Data: data})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	ctx, span := startSpan(ctx, "httpapi.writeError")
	defer span.End()

	class := classifyError(err)
	for key, values := range class.header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	writeErrorBody(ctx, w, class, err.Error())
}

func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	writeErrorBody(ctx, w, internalErrorClass, "internal server error")
}

func writeErrorBody(ctx context.Context, w http.ResponseWriter, class errorClass, msg string) {
	writeJSON(ctx, w, class.httpStatus, envelope{
		APIVersion: envelopeAPIVersion,
		Error: &errorBody{
			Code:    class.httpStatus,
			Message: msg,
			Status:  class.status,
			Errors:  []errorItem{{Domain: errorDomain, Reason: class.reason, Message: msg}},
		},
	})
}

func classifyError(err error) errorClass {
	for _, candidate := range errorClasses {
		if errors.Is(err, candidate.target) {
			return candidate.class
		}
	}
	return internalErrorClass
}
