package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/response"
)

type quotationDownloader interface {
	OpenByToken(token string) (*os.File, error)
}

// QuotationDownloadHandler serves generated quotation PDFs. The signed token
// is the only credential: links from notification emails work without a
// portal session.
type QuotationDownloadHandler struct {
	service quotationDownloader
}

// NewQuotationDownloadHandler constructs the handler.
func NewQuotationDownloadHandler(service quotationDownloader) *QuotationDownloadHandler {
	return &QuotationDownloadHandler{service: service}
}

// Download godoc
// @Summary Download a quotation document
// @Tags Quotations
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /quotations/download [get]
func (h *QuotationDownloadHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing download token"))
		return
	}
	file, err := h.service.OpenByToken(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	name := filepath.Base(file.Name())
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	http.ServeContent(c.Writer, c.Request, name, fileModTime(file), file)
}

func fileModTime(file *os.File) time.Time {
	if info, err := file.Stat(); err == nil {
		return info.ModTime()
	}
	return time.Time{}
}
