// Package apierr defines the machine-checkable error kinds returned by
// every endpoint together with small helpers to write them
package apierr

import "github.com/gin-gonic/gin"

type Kind string

const (
	Validation             Kind = "validation"
	Unauthorized           Kind = "unauthorized"
	InvalidCredentials     Kind = "invalid_credentials"
	TwoFactorRequired      Kind = "two_factor_required"
	TwoFactorSetupRequired Kind = "two_factor_setup_required"
	MustChangePassword     Kind = "must_change_password"
	InvalidCode            Kind = "invalid_code"
	AmbiguousLogin         Kind = "ambiguous_login"
	Forbidden              Kind = "forbidden"
	NotFound               Kind = "not_found"
	BoardNotSelected       Kind = "board_not_selected"
	Conflict               Kind = "conflict"
	Internal               Kind = "internal"
)

// Abort writes a structured error response and stops the handler chain
func Abort(c *gin.Context, status int, kind Kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     kind,
		"message":   message,
		"requestID": c.GetString("requestID"),
	})
}

// AbortFields is Abort with per-field validation detail attached
func AbortFields(c *gin.Context, status int, kind Kind, message string, fields map[string]string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     kind,
		"message":   message,
		"fields":    fields,
		"requestID": c.GetString("requestID"),
	})
}
