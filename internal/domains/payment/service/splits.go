package service

import (
	"ticketing-backend/internal/domains/payment/gateway"
	"ticketing-backend/internal/domains/payment/model"
)

// ComputeSplits divides a payment between organizer and platform in
// integer math. The organizer share floors; the platform keeps the
// rounding residue.
func ComputeSplits(total int64, organizerPercent int) model.Splits {
	organizer := total * int64(organizerPercent) / 100
	return model.Splits{
		OrganizerAmount: organizer,
		PlatformAmount:  total - organizer,
	}
}

// splitsFromGateway adopts the settlement the gateway actually applied
// when a subaccount was charged; otherwise falls back to the
// configured percentage. Gateway fees are recorded but never change
// the gross split amounts.
func splitsFromGateway(total int64, organizerPercent int, data *gateway.VerifyData, subaccountCode *string) model.Splits {
	var splits model.Splits
	if data != nil && data.Subaccount != nil {
		platform := data.Subaccount.SharedAmount
		splits = model.Splits{
			OrganizerAmount: total - platform,
			PlatformAmount:  platform,
		}
		code := data.Subaccount.Code
		splits.SubaccountCode = &code
	} else {
		splits = ComputeSplits(total, organizerPercent)
		splits.SubaccountCode = subaccountCode
	}
	if data != nil {
		splits.Fees = data.Fees
	}
	return splits
}
