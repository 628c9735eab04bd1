// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Step ids of the origination flow.
const (
	StepApplication  = "application"
	StepOffers       = "offers"
	StepBankDetails  = "bank-details"
	StepKYC          = "kyc"
	StepEMandate     = "emandate"
	StepAgreement    = "agreement"
	StepDisbursement = "disbursement"
	StepDashboard    = "dashboard"
)

var ErrUnknownStep = errors.New("UNKNOWN_STEP")

// LoadRegistry reads a registry from a JSON file and validates it.
func LoadRegistry(path string) (*FlowRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg FlowRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &reg, nil
}

// Load returns the registry at path, or Default when path is empty.
func Load(path string) (*FlowRegistry, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadRegistry(path)
}

// Default is the built-in origination order.
func Default() *FlowRegistry {
	txn := []string{"transactionId"}
	return &FlowRegistry{
		Version: "1",
		Steps: []Step{
			{ID: StepApplication, DisplayName: "Application", Category: "application", TaskType: "submit-application", Retries: 0},
			{ID: StepOffers, DisplayName: "Loan offers", Category: "offers", TaskType: "select-offer", Requires: txn, Retries: 0},
			{ID: StepBankDetails, DisplayName: "Bank details", Category: "application", TaskType: "bank-details", Requires: txn},
			{ID: StepKYC, DisplayName: "KYC", Category: "verification", TaskType: "external-action", Requires: txn},
			{ID: StepEMandate, DisplayName: "eMandate", Category: "verification", TaskType: "external-action", Requires: txn},
			{ID: StepAgreement, DisplayName: "Loan agreement", Category: "verification", TaskType: "external-action", Requires: txn},
			{ID: StepDisbursement, DisplayName: "Disbursement", Category: "disbursement", TaskType: "track-disbursal", Requires: txn},
			{ID: StepDashboard, DisplayName: "Dashboard", Category: "servicing", TaskType: "loan-dashboard"},
		},
	}
}

// Validate rejects empty or duplicate step ids.
func (r *FlowRegistry) Validate() error {
	if len(r.Steps) == 0 {
		return fmt.Errorf("registry has no steps")
	}
	seen := make(map[string]bool, len(r.Steps))
	for i, s := range r.Steps {
		if s.ID == "" {
			return fmt.Errorf("step %d has no id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate step %q", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

func (r *FlowRegistry) index(id string) int {
	for i, s := range r.Steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Step looks up a step by id.
func (r *FlowRegistry) Step(id string) (*Step, error) {
	i := r.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	return &r.Steps[i], nil
}

// Next returns the step that follows id, or "" after the last one.
func (r *FlowRegistry) Next(id string) (string, error) {
	i := r.index(id)
	if i < 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	if i+1 >= len(r.Steps) {
		return "", nil
	}
	return r.Steps[i+1].ID, nil
}

// MustNext is Next for ids known to be registered; unknown ids yield "".
func (r *FlowRegistry) MustNext(id string) string {
	next, _ := r.Next(id)
	return next
}

// IDs returns the step ids in order.
func (r *FlowRegistry) IDs() []string {
	out := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.ID
	}
	return out
}
