package services

// PlatformFeePercent is retained from every released escrow.
const PlatformFeePercent = 15

// PlatformFee is PlatformFeePercent of price, rounded half up to a whole unit.
func PlatformFee(price int64) int64 {
	if price <= 0 {
		return 0
	}
	return (price*PlatformFeePercent + 50) / 100
}

// TutorAmount is derived from the fee so that fee + tutor amount == price exactly.
func TutorAmount(price int64) int64 {
	return price - PlatformFee(price)
}
