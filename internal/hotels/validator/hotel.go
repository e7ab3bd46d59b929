package validator

import (
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
	"hotelbook/pkg/validation"
)

type HotelValidator struct {
	validate *validation.Validator
	logger   *logger.Logger
}

func NewHotelValidator(log *logger.Logger) *HotelValidator {
	return &HotelValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *HotelValidator) ValidateCreate(req *model.CreateHotelRequest) error {
	if err := v.validate.Struct(req); err != nil {
		v.logger.Debug("Hotel create request rejected", "error", err)
		return err
	}
	return nil
}

func (v *HotelValidator) ValidatePatch(patch *model.HotelPatch) error {
	if patch.IsEmpty() {
		return apperrors.InvalidInput("update must change at least one of name, address, tel")
	}
	if err := v.validate.Struct(patch); err != nil {
		v.logger.Debug("Hotel patch rejected", "error", err)
		return err
	}
	return nil
}
