package controller

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/primeapparel/marketplace-backend/internal/app/model"
)

var registerOnce sync.Once

// RegisterValidators installs the domain binding rules on gin's validator:
//
//	role            any known role, case-insensitive
//	signup_role     SELLER or BUYER, case-insensitive
//	approval_status PENDING, APPROVED or REJECTED, case-insensitive
//	lead_status     an exact lead status
//
// Field names in validation errors use the json tag.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			_, err := model.ParseRole(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("signup_role", func(fl validator.FieldLevel) bool {
			role, err := model.ParseRole(fl.Field().String())
			return err == nil && role != model.RoleAdmin
		})
		_ = v.RegisterValidation("approval_status", func(fl validator.FieldLevel) bool {
			_, err := model.ParseApprovalStatus(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("lead_status", func(fl validator.FieldLevel) bool {
			return model.LeadStatus(fl.Field().String()).Valid()
		})
	})
}
