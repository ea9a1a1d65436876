package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"taskflow/internal/middleware"
	"taskflow/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func getUserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, ok := c.Get(middleware.ContextUserID)
	if !ok {
		return primitive.NilObjectID, false
	}
	hex, ok := v.(string)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// bindError shapes a binding failure into the structured 400 body: a
// per-field details list for validator errors, the raw message otherwise.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]gin.H, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, gin.H{
				"path":    fieldName(fe.Field()),
				"message": fieldMessage(fe),
			})
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation error", "details": details})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func fieldName(structField string) string {
	if structField == "" {
		return structField
	}
	return strings.ToLower(structField[:1]) + structField[1:]
}

func fieldMessage(fe validator.FieldError) string {
	name := fieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", name, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", name)
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

// serviceError is the single place service failures map to status codes.
func serviceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "email already exists"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
