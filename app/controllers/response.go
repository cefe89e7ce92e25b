package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"postsapi/app/models"
	"postsapi/app/services"
	"postsapi/app/validation"

	"github.com/pkg/errors"
)

const maxBodyBytes = 1 << 20

// Response is the success envelope for a single record.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// ListResponse is the success envelope for a page of records.
type ListResponse struct {
	Success    bool                `json:"success"`
	Count      int                 `json:"count"`
	Pagination services.Pagination `json:"pagination"`
	Data       []*models.Post      `json:"data"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool               `json:"success"`
	Error   string             `json:"error"`
	Details []models.Violation `json:"details,omitempty"`
	Stack   string             `json:"stack,omitempty"`
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendData(w http.ResponseWriter, status int, data interface{}) {
	sendJSON(w, status, Response{Success: true, Data: data})
}

// decodeInput reads the request body as a JSON object. An empty body is an
// empty object.
func decodeInput(w http.ResponseWriter, r *http.Request) (validation.Input, error) {
	if r.Body == nil {
		return validation.Input{}, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(ErrMalformedBody, err.Error())
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return validation.Input{}, nil
	}

	var in validation.Input
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, errors.Wrap(ErrMalformedBody, err.Error())
	}
	if in == nil {
		return nil, errors.WithStack(ErrMalformedBody)
	}
	return in, nil
}
