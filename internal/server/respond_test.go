package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/markgwharry/modiniapps/internal/services/iam"
)

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"", "/"},
		{"/dashboard?tab=apps", "/dashboard?tab=apps"},
		{"//evil.example.net", "/"},
		{"/\\evil.example.net", "/"},
		{"https://crm.example.com/leads", "https://crm.example.com/leads"},
		{"https://CRM.example.com", "https://CRM.example.com"},
		{"https://evil.example.net", "/"},
		{"javascript:alert(1)", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, safeRedirect(tt.target, testCatalog))
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"exists", iam.ErrAccountExists, http.StatusConflict, msgAccountExists},
		{"credentials", iam.ErrInvalidCredentials, http.StatusUnauthorized, msgInvalidLogin},
		{"pending", iam.ErrPendingApproval, http.StatusUnauthorized, msgPendingApproval},
		{"current password", iam.ErrInvalidPassword, http.StatusBadRequest, msgCurrentPassword},
		{"not found", fmt.Errorf("approve: %w", iam.ErrUserNotFound), http.StatusNotFound, msgUserNotFound},
		{"weak", &iam.WeakPasswordError{Message: iam.MsgPasswordTooShort}, http.StatusBadRequest, iam.MsgPasswordTooShort},
		{"token", &iam.TokenInvalidError{Reason: iam.ReasonTokenExpired}, http.StatusBadRequest, iam.ReasonTokenExpired},
		{"validation", &iam.ValidationError{Problems: []string{"first", "second"}}, http.StatusBadRequest, "first"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, msgRateLimited},
		{"storage", &iam.StorageError{Op: "get user", Err: errors.New("disk I/O error")}, http.StatusInternalServerError, msgInternal},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, msgInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, body.Error)
		})
	}
}
