package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/syncbridge/backend/internal/domain/connector"
)

// SetupValidator registers custom binding validations on gin's validator
// engine. Call once at startup, before serving requests.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("resourcetype", validResourceType)
}

func validResourceType(fl validator.FieldLevel) bool {
	return connector.ResourceType(fl.Field().String()).IsValid()
}
