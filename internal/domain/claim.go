package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// FNOL is the First-Notice-of-Loss payload submitted for a claim.
// Every sub-object is optional; absent objects behave as empty.
type FNOL struct {
	ClaimID   string         `json:"claim_id"`
	Policy    Policy         `json:"policy"`
	Vehicle   Vehicle        `json:"vehicle"`
	Incident  Incident       `json:"incident"`
	Claimant  Claimant       `json:"claimant"`
	Documents Documents      `json:"documents"`
	History   map[string]any `json:"history,omitempty"`
}

// Policy holds the policy details attached to an FNOL.
type Policy struct {
	PolicyNumber    string `json:"policy_number,omitempty"`
	PolicyStatus    string `json:"policy_status"`
	CoverageType    string `json:"coverage_type,omitempty"`
	PolicyStartDate string `json:"policy_start_date,omitempty"`
	PolicyEndDate   string `json:"policy_end_date,omitempty"`
}

// Vehicle holds the insured vehicle details.
type Vehicle struct {
	RegistrationNumber string      `json:"registration_number,omitempty"`
	Make               string      `json:"make,omitempty"`
	Model              string      `json:"model,omitempty"`
	Year               LooseString `json:"year,omitempty"`
}

// Incident describes the loss event.
type Incident struct {
	DateTimeOfLoss  string  `json:"date_time_of_loss,omitempty"`
	LossDescription string  `json:"loss_description"`
	ClaimType       string  `json:"claim_type,omitempty"`
	Location        string  `json:"location,omitempty"`
	EstimatedAmount float64 `json:"estimated_amount"`
}

// Claimant identifies the person reporting the loss.
type Claimant struct {
	DriverName string `json:"driver_name,omitempty"`
}

// Documents lists the supporting documents that came with the FNOL.
type Documents struct {
	RCCopyUploaded bool     `json:"rc_copy_uploaded,omitempty"`
	DLCopyUploaded bool     `json:"dl_copy_uploaded,omitempty"`
	FIRUploaded    bool     `json:"fir_uploaded,omitempty"`
	PhotosUploaded bool     `json:"photos_uploaded"`
	Photos         []string `json:"photos"`
	FIRPath        string   `json:"fir_path,omitempty"`
	InsurancePath  string   `json:"insurance_path,omitempty"`
}

// LooseString accepts a JSON string, number, or null and keeps its text form.
// Fields such as vehicle.year arrive as either 2021 or "2021" from intake forms.
type LooseString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = LooseString(str)
		return nil
	}
	*s = LooseString(data)
	return nil
}

// Int parses the value as an integer. Integral floats such as 2099.0 or
// 2.099e3 are accepted; fractional values are not.
func (s LooseString) Int() (int, bool) {
	text := strings.TrimSpace(string(s))
	if v, err := strconv.Atoi(text); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) ||
		f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// ClaimRecord is an FNOL as persisted by intake, with its current status.
type ClaimRecord struct {
	ClaimID      string    `json:"complaint_id"`
	PolicyNumber string    `json:"policy_number"`
	PolicyStatus string    `json:"policy_status"`
	HolderName   string    `json:"policy_holder_name"`
	IncidentTime string    `json:"incident_date_time"`
	Description  string    `json:"incident_description"`
	StatusID     int64     `json:"status_id"`
	StatusName   string    `json:"status"`
	Photos       []string  `json:"-"`
	Payload      *FNOL     `json:"raw_response"`
	CreatedAt    time.Time `json:"created_date"`
	CreatedBy    string    `json:"created_by,omitempty"`
	UpdatedAt    time.Time `json:"updated_date"`
	UpdatedBy    string    `json:"updated_by,omitempty"`
}

// ClaimStatus is one row of the claim status lookup table.
type ClaimStatus struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"status_name" db:"status_name"`
}

// Claim status lookup identifiers. Rows are seeded by the schema.
const (
	ClaimStatusOpen               int64 = 1
	ClaimStatusUnderReview        int64 = 2
	ClaimStatusFraudulent         int64 = 3
	ClaimStatusPendingDamage      int64 = 4
	ClaimStatusClosedAutoApproved int64 = 5
	ClaimStatusClosedManualReview int64 = 6
)
