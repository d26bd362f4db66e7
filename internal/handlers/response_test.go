package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/meroguru/meroguru-backend/internal/apierr"
)

func TestClassifyServiceError_StatusAndCode(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", fmt.Errorf("%w: title is required", apierr.ErrValidation), http.StatusBadRequest, "validation_error"},
		{"not found", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{"store down", fmt.Errorf("%w: dial tcp", apierr.ErrStoreUnavailable), http.StatusServiceUnavailable, "store_unavailable"},
		{"index down", fmt.Errorf("%w: 503", apierr.ErrIndexUnavailable), http.StatusServiceUnavailable, "index_unavailable"},
		{"generation failed", fmt.Errorf("%w: rate limited", apierr.ErrGenerationFailed), http.StatusBadGateway, "generation_failed"},
		{"unclassified", errors.New("pq: deadlock detected"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			apiErr := classifyServiceError(tc.err)
			if apiErr.Status != tc.wantStatus {
				t.Fatalf("status = %d, want %d", apiErr.Status, tc.wantStatus)
			}
			if apiErr.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", apiErr.Code, tc.wantCode)
			}
		})
	}
}

func TestClassifyServiceError_ValidationDetailSurvives(t *testing.T) {
	apiErr := classifyServiceError(fmt.Errorf("%w: answer_body or content_body is required", apierr.ErrValidation))
	if !strings.Contains(apiErr.Error(), "answer_body or content_body is required") {
		t.Fatalf("validation detail lost: %q", apiErr.Error())
	}
	if !errors.Is(apiErr, apierr.ErrValidation) {
		t.Fatalf("expected classified error to unwrap to the validation sentinel")
	}
}

func TestClassifyServiceError_HidesInternalDetail(t *testing.T) {
	cases := []error{
		errors.New("pq: relation \"knowledge_entries\" does not exist"),
		fmt.Errorf("%w: dial tcp 10.0.0.1:5432", apierr.ErrStoreUnavailable),
		fmt.Errorf("%w: upstream key leaked-secret", apierr.ErrGenerationFailed),
	}
	for _, err := range cases {
		apiErr := classifyServiceError(err)
		if strings.Contains(apiErr.Error(), "tcp") || strings.Contains(apiErr.Error(), "pq:") || strings.Contains(apiErr.Error(), "secret") {
			t.Fatalf("internal detail leaked into response message: %q", apiErr.Error())
		}
	}
}
