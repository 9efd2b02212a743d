package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/saferoad/routesafety/internal/logging"
)

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.FromContext(r.Context()).Error("Failed to encode response", "error", err)
	}
}

// writeError maps a status error onto its HTTP status. Errors without a
// status are reported as Internal without exposing their text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	st, ok := status.FromError(err)
	if !ok {
		logging.LogError(logging.FromContext(r.Context()), "Unhandled error", err)
		st = status.New(codes.Internal, "internal error")
	}

	writeJSON(w, r, runtime.HTTPStatusFromCode(st.Code()), ErrorResponse{
		Error: st.Message(),
		Code:  st.Code().String(),
	})
}
