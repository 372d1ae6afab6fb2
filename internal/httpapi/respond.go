package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/parking/pkg/parking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statusByKind = map[parking.Kind]int{
	parking.KindInvalidInput:    http.StatusBadRequest,
	parking.KindUnauthenticated: http.StatusUnauthorized,
	parking.KindForbidden:       http.StatusForbidden,
	parking.KindNotFound:        http.StatusNotFound,
	parking.KindConflict:        http.StatusConflict,
	parking.KindUnexpected:      http.StatusInternalServerError,
}

// respondError maps a domain failure onto an HTTP status exactly once,
// at this boundary. Unexpected failures are logged but never leaked.
func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	kind := parking.KindOf(err)
	status, known := statusByKind[kind]
	if !known {
		status = http.StatusInternalServerError
	}
	if kind == parking.KindUnexpected {
		handler.logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		ctx.JSON(status, gin.H{"error": "internal error"})
		return
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}
