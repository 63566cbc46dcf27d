package models

import (
	"errors"
	"fmt"
)

var (
	ErrMissingColumns     = errors.New("missing required column(s)")
	ErrUnsupportedFile    = errors.New("file must be .csv or .xlsx")
	ErrNoFileAttached     = errors.New("attach a CSV or Excel file to the upload command")
	ErrAdminLocked        = errors.New("admin dashboard is locked")
	ErrWrongPassphrase    = errors.New("incorrect passphrase")
	ErrAdminNotConfigured = errors.New("missing admin API key")
)

// Upload column headers. They double as the JSON keys of a registry row.
const (
	ColRegionCode   = "RegionCode"
	ColCustomerID   = "CustomerID"
	ColEmail        = "Email"
	ColMemberStatus = "MemberStatus"
)

// RegistryRow carries provider region codes (PAW/PAS/PAE), not voter regions.
type RegistryRow struct {
	RegionCode   string `json:"RegionCode"`
	CustomerID   string `json:"CustomerID"`
	Email        string `json:"Email"`
	MemberStatus string `json:"MemberStatus"`
}

type UpsertRegistryRequest struct {
	Rows []RegistryRow `json:"rows"`
	Sync bool          `json:"sync"`
}

type NonVotersResponse struct {
	NonVoters []map[string]any `json:"non_voters"`
}

type TalliesResponse struct {
	Tallies []map[string]any `json:"tallies"`
}

// AdminResult keeps the raw body so operators can read what the service said.
type AdminResult struct {
	StatusCode int
	Body       []byte
	Records    []map[string]any
}

// AdminResponseError is a non-2xx answer to an admin call.
type AdminResponseError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *AdminResponseError) Error() string {
	return fmt.Sprintf("%s: edge service answered %d", e.Op, e.StatusCode)
}
