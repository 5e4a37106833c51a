package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sawirricardo/remix-realworld/internal/apperr"
)

func httpStatus(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotAuthenticated:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func rpcCode(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return ErrInvalidParams
	case apperr.KindForbidden:
		return ErrForbidden
	case apperr.KindNotAuthenticated:
		return ErrNotAuthenticated
	case apperr.KindNotFound:
		return ErrNotFound
	case apperr.KindConflict:
		return ErrConflict
	default:
		return ErrServerError
	}
}

func kindName(kind apperr.Kind) string {
	switch kind {
	case apperr.KindValidation:
		return "validation"
	case apperr.KindForbidden:
		return "forbidden"
	case apperr.KindNotAuthenticated:
		return "not_authenticated"
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// wantsHTML reports whether the caller is a browser expecting pages
func wantsHTML(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
}

// respondError renders err for REST clients. Anonymous browsers are sent
// to the login page; API clients get 401 with the same location.
func (r *Router) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := httpStatus(kind)

	if kind == apperr.KindInternal {
		r.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	var (
		verr   *apperr.ValidationError
		unauth *apperr.NotAuthenticatedError
	)
	switch {
	case errors.As(err, &unauth):
		location := unauth.RedirectTo
		if location == "" {
			location = r.gate.LoginRedirect(c.Request.URL.RequestURI())
		}
		if wantsHTML(c) {
			c.Redirect(http.StatusSeeOther, location)
			return
		}
		c.JSON(status, gin.H{"error": err.Error(), "redirect_to": location})
	case errors.As(err, &verr):
		c.JSON(status, gin.H{"errors": verr.Fields})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

// respondOK renders a successful mutation. Browsers follow location when
// one is given.
func respondOK(c *gin.Context, status int, body interface{}, location string) {
	if location != "" && wantsHTML(c) {
		c.Redirect(http.StatusSeeOther, location)
		return
	}
	c.JSON(status, body)
}
