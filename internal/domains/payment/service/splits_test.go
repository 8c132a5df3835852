package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ticketing-backend/internal/domains/payment/gateway"
)

func TestComputeSplitsFloorsOrganizerShare(t *testing.T) {
	cases := []struct {
		total            int64
		organizerPercent int
		organizer        int64
		platform         int64
	}{
		{10000, 90, 9000, 1000},
		{10000, 85, 8500, 1500},
		{999, 90, 899, 100},  // residue stays with the platform
		{1, 90, 0, 1},        // sub-percent amounts floor to zero
		{10000, 100, 10000, 0},
		{10000, 0, 0, 10000},
	}

	for _, tc := range cases {
		splits := ComputeSplits(tc.total, tc.organizerPercent)
		assert.Equal(t, tc.organizer, splits.OrganizerAmount, "organizer share of %d at %d%%", tc.total, tc.organizerPercent)
		assert.Equal(t, tc.platform, splits.PlatformAmount, "platform share of %d at %d%%", tc.total, tc.organizerPercent)
		assert.Equal(t, tc.total, splits.OrganizerAmount+splits.PlatformAmount, "shares must sum to total")
	}
}

func TestSplitsFromGatewayAdoptsSubaccountSettlement(t *testing.T) {
	data := &gateway.VerifyData{
		Fees: 150,
		Subaccount: &gateway.SubaccountShare{
			Code:         "ACCT_x1",
			SharedAmount: 1000,
		},
	}

	splits := splitsFromGateway(10000, 85, data, nil)

	// The gateway's applied share wins over the configured percent.
	assert.Equal(t, int64(9000), splits.OrganizerAmount)
	assert.Equal(t, int64(1000), splits.PlatformAmount)
	assert.Equal(t, int64(150), splits.Fees)
	if assert.NotNil(t, splits.SubaccountCode) {
		assert.Equal(t, "ACCT_x1", *splits.SubaccountCode)
	}
}

func TestSplitsFromGatewayFallsBackToPercent(t *testing.T) {
	code := "ACCT_cfg"
	data := &gateway.VerifyData{Fees: 200}

	splits := splitsFromGateway(10000, 90, data, &code)

	assert.Equal(t, int64(9000), splits.OrganizerAmount)
	assert.Equal(t, int64(1000), splits.PlatformAmount)
	// Fees are informational: the gross split is untouched.
	assert.Equal(t, int64(200), splits.Fees)
	assert.Equal(t, &code, splits.SubaccountCode)
}

func TestSplitsFromGatewayNilData(t *testing.T) {
	splits := splitsFromGateway(5000, 90, nil, nil)

	assert.Equal(t, int64(4500), splits.OrganizerAmount)
	assert.Equal(t, int64(500), splits.PlatformAmount)
	assert.Zero(t, splits.Fees)
	assert.Nil(t, splits.SubaccountCode)
}
