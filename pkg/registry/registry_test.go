package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Order(t *testing.T) {
	reg := Default()
	require.NoError(t, reg.Validate())
	assert.Equal(t, []string{
		StepApplication, StepOffers, StepBankDetails, StepKYC,
		StepEMandate, StepAgreement, StepDisbursement, StepDashboard,
	}, reg.IDs())
}

func TestNext(t *testing.T) {
	reg := Default()
	tests := []struct {
		step string
		want string
	}{
		{StepApplication, StepOffers},
		{StepOffers, StepBankDetails},
		{StepBankDetails, StepKYC},
		{StepKYC, StepEMandate},
		{StepEMandate, StepAgreement},
		{StepAgreement, StepDisbursement},
		{StepDisbursement, StepDashboard},
		{StepDashboard, ""},
	}
	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			got, err := reg.Next(tt.step)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := reg.Next("video-kyc")
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.Empty(t, reg.MustNext("video-kyc"))
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": "2",
		"steps": [
			{"id": "application", "taskType": "submit-application"},
			{"id": "kyc", "taskType": "external-action", "requires": ["transactionId"]}
		]
	}`), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "kyc", reg.MustNext("application"))

	step, err := reg.Step("kyc")
	require.NoError(t, err)
	assert.Equal(t, []string{"transactionId"}, step.Requires)
}

func TestLoadRegistry_Invalid(t *testing.T) {
	dir := t.TempDir()
	dup := filepath.Join(dir, "dup.json")
	require.NoError(t, os.WriteFile(dup, []byte(`{"steps":[{"id":"kyc"},{"id":"kyc"}]}`), 0o644))
	_, err := LoadRegistry(dup)
	assert.ErrorContains(t, err, "duplicate step")

	_, err = LoadRegistry(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	reg, err := Load("")
	require.NoError(t, err)
	assert.Len(t, reg.Steps, 8)
}
