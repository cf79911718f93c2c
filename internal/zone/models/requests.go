package models

import (
	"strings"

	dErrors "zonegrid/pkg/domain-errors"
)

// CreateZoneInput carries the caller-supplied fields for zone creation.
type CreateZoneInput struct {
	Code        string        `json:"code"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Geometry    *MultiPolygon `json:"geometry"`
}

func (in *CreateZoneInput) Normalize() {
	in.Code = NormalizeCode(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
}

func (in *CreateZoneInput) Validate() error {
	if err := ValidateCode(in.Code); err != nil {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if err := ValidateName(in.Name); err != nil {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if in.Geometry != nil {
		return in.Geometry.Validate()
	}
	return nil
}

// UpdateZoneInput carries a partial field merge; nil pointers leave the
// current value untouched.
type UpdateZoneInput struct {
	Code        *string `json:"code"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

func (in *UpdateZoneInput) Normalize() {
	if in.Code != nil {
		normalized := NormalizeCode(*in.Code)
		in.Code = &normalized
	}
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if in.Description != nil {
		trimmed := strings.TrimSpace(*in.Description)
		in.Description = &trimmed
	}
}

func (in *UpdateZoneInput) Validate() error {
	if in.Code == nil && in.Name == nil && in.Description == nil && in.Active == nil {
		return dErrors.New(dErrors.CodeValidation, "update requires at least one field")
	}
	if in.Code != nil {
		if err := ValidateCode(*in.Code); err != nil {
			return dErrors.New(dErrors.CodeValidation, err.Error())
		}
	}
	if in.Name != nil {
		if err := ValidateName(*in.Name); err != nil {
			return dErrors.New(dErrors.CodeValidation, err.Error())
		}
	}
	return nil
}

// StatusFilter narrows listings on the Active flag.
type StatusFilter string

const (
	StatusAny      StatusFilter = ""
	StatusActive   StatusFilter = "active"
	StatusInactive StatusFilter = "inactive"
)

// ListFilter holds the optional listing filters. Search matches code or name
// case-insensitively as a substring.
type ListFilter struct {
	Status StatusFilter
	Search string
}

func (f *ListFilter) Validate() error {
	switch f.Status {
	case StatusAny, StatusActive, StatusInactive:
		return nil
	default:
		return dErrors.New(dErrors.CodeValidation, "status must be active or inactive")
	}
}

// SortOrder is the listing sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

var sortableColumns = map[string]struct{}{
	"code":       {},
	"name":       {},
	"created_at": {},
	"updated_at": {},
}

// PageRequest holds pagination and sorting. Zero values fall back to page 1,
// limit 20, created_at descending.
type PageRequest struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder SortOrder
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Normalize applies defaults and bounds.
func (p *PageRequest) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.SortBy == "" {
		p.SortBy = "created_at"
		if p.SortOrder == "" {
			p.SortOrder = SortDesc
		}
	}
	if p.SortOrder == "" {
		p.SortOrder = SortAsc
	}
}

func (p *PageRequest) Validate() error {
	if _, ok := sortableColumns[p.SortBy]; !ok {
		return dErrors.New(dErrors.CodeValidation, "sort_by must be one of code, name, created_at, updated_at")
	}
	if p.SortOrder != SortAsc && p.SortOrder != SortDesc {
		return dErrors.New(dErrors.CodeValidation, "sort_order must be asc or desc")
	}
	return nil
}

// Offset returns the row offset for the requested page.
func (p *PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is one page of zones plus the total match count.
type Page struct {
	Items []*Zone `json:"items"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}
