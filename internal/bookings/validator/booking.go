package validator

import (
	"time"

	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
	"hotelbook/pkg/validation"
)

const (
	Day = 24 * time.Hour

	// MaxStay is exclusive: a stay must be strictly shorter.
	MaxStay = 4 * Day
)

const (
	MsgCheckInPast   = "check-in must not precede current time"
	MsgCheckOutOrder = "check-out must be after check-in"
	MsgStayTooLong   = "stay exceeds 3 nights"
)

// ValidateStay checks a proposed range against now. Rules run in order and
// the first failure is returned.
func ValidateStay(checkIn, checkOut, now time.Time) error {
	if checkIn.Before(now) {
		return apperrors.InvalidInput(MsgCheckInPast).WithDetails(map[string]any{"field": "checkIn"})
	}
	if !checkIn.Before(checkOut) {
		return apperrors.InvalidInput(MsgCheckOutOrder).WithDetails(map[string]any{"field": "checkOut"})
	}
	if checkOut.Sub(checkIn) >= MaxStay {
		return apperrors.InvalidInput(MsgStayTooLong).WithDetails(map[string]any{"field": "checkOut"})
	}
	return nil
}

type BookingValidator struct {
	validate *validation.Validator
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	return &BookingValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *BookingValidator) ValidateCreate(req *model.CreateBookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		v.logger.Debug("Booking create request rejected", "error", err)
		return err
	}
	return nil
}

func (v *BookingValidator) ValidatePatch(patch *model.BookingPatch) error {
	if patch.IsEmpty() {
		return apperrors.InvalidInput("update must change at least one of hotel, checkIn, checkOut")
	}
	if err := v.validate.Struct(patch); err != nil {
		v.logger.Debug("Booking patch rejected", "error", err)
		return err
	}
	return nil
}
