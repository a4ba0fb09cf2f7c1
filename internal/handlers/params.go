package handlers

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/yukikurage/tasktide/internal/errors"
	"github.com/yukikurage/tasktide/internal/middleware"
)

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors name params the way the shell
// sends them ("taskId", not "TaskID").
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// bindParams decodes and validates the call params into req. On failure
// the call is answered with VALIDATION_FAILURE and false is returned.
func bindParams(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apierrors.Respond(c, validationError(err))
		return false
	}
	return true
}

func validationError(err error) *apierrors.APIError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		return apierrors.ValidationFailureWithDetails("Invalid params.", details)
	}
	return apierrors.ValidationFailure("Invalid params: " + err.Error())
}

// currentUser returns the identity set by RequireAuth. A route registered
// without it is a wiring bug, answered as an internal error.
func currentUser(c *gin.Context) (string, bool) {
	username, ok := middleware.GetUsername(c)
	if !ok {
		apierrors.Respond(c, apierrors.InternalError(""))
	}
	return username, ok
}
