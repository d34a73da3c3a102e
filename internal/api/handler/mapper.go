package handler

import (
	"strings"
	"time"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

// --- Service output → Response ---

func toUserResponse(v ports.UserView) userResponse {
	return userResponse{
		ID:                v.ID,
		Name:              v.Name,
		Email:             v.Email,
		Role:              string(v.Role),
		ApprovalState:     string(v.ApprovalState),
		ClassOrDepartment: v.ClassOrDepartment,
		ApprovedBy:        v.ApprovedBy,
		ApproverName:      v.ApproverName,
		CreatedAt:         v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toUserResponses(vs []ports.UserView) []userResponse {
	out := make([]userResponse, len(vs))
	for i, v := range vs {
		out[i] = toUserResponse(v)
	}
	return out
}

func toLicenseResponse(l *domain.License) licenseResponse {
	return licenseResponse{
		ID:            l.ID,
		LicenseKey:    l.Key,
		ProductName:   l.ProductName,
		CustomerName:  l.CustomerName,
		CustomerEmail: l.CustomerEmail,
		IssueDate:     formatDate(l.IssueDate),
		ExpiryDate:    formatDate(l.ExpiryDate),
		Status:        string(l.Status),
		MaxUsers:      l.MaxUsers,
		CurrentUsers:  l.CurrentUsers,
		Description:   l.Description,
		CreatedBy:     l.CreatedBy,
		CreatedAt:     l.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     l.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toLicenseResponses(ls []*domain.License) []licenseResponse {
	out := make([]licenseResponse, len(ls))
	for i, l := range ls {
		out[i] = toLicenseResponse(l)
	}
	return out
}

// --- Request → Service input ---

func toUserPatch(req userPatchRequest) ports.UserPatch {
	return ports.UserPatch{
		Name:              req.Name,
		Email:             req.Email,
		ClassOrDepartment: req.ClassOrDepartment,
	}
}

// toLicenseInput assumes req passed validation, so dates parse.
func toLicenseInput(req licenseRequest) ports.LicenseInput {
	issue, _ := parseDate(req.IssueDate)
	expiry, _ := parseDate(req.ExpiryDate)
	return ports.LicenseInput{
		Key:           strings.TrimSpace(req.LicenseKey),
		ProductName:   req.ProductName,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		IssueDate:     issue,
		ExpiryDate:    expiry,
		Status:        domain.LicenseStatus(req.Status),
		MaxUsers:      req.MaxUsers,
		Description:   req.Description,
	}
}

// parseDate accepts an empty string as the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(domain.DateLayout, s)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(domain.DateLayout)
}
