package validator

import (
	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"
	"hotelbook/pkg/validation"
)

type UserValidator struct {
	validate *validation.Validator
	logger   *logger.Logger
}

func NewUserValidator(log *logger.Logger) *UserValidator {
	return &UserValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *UserValidator) ValidateCreate(req *model.CreateUserRequest) error {
	if err := v.validate.Struct(req); err != nil {
		v.logger.Debug("User create request rejected", "error", err)
		return err
	}
	return nil
}

func (v *UserValidator) ValidatePatch(patch *model.UserPatch) error {
	if patch.IsEmpty() {
		return apperrors.InvalidInput("update must change at least one of name, email, tel, role")
	}
	if err := v.validate.Struct(patch); err != nil {
		v.logger.Debug("User patch rejected", "error", err)
		return err
	}
	return nil
}
