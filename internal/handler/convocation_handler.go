package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examops/examsched-api/internal/service"
	appErrors "github.com/examops/examsched-api/pkg/errors"
	"github.com/examops/examsched-api/pkg/response"
)

// ConvocationHandler serves generated documents through signed links. The
// download route is public: the token itself carries the authorization.
type ConvocationHandler struct {
	convocations *service.ConvocationService
}

// NewConvocationHandler constructs ConvocationHandler.
func NewConvocationHandler(convocations *service.ConvocationService) *ConvocationHandler {
	return &ConvocationHandler{convocations: convocations}
}

// Download godoc
// @Summary Download a generated document with a signed token
// @Tags Convocations
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /downloads [get]
func (h *ConvocationHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing token"))
		return
	}
	f, name, err := h.convocations.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to stat document"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", f, nil)
}
