package adminapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ummitifli/storefront/internal/admin"
	"github.com/ummitifli/storefront/internal/webserver"
)

const maxImportSize = 8 << 20

// registerTransferRoutes registers catalog export and bulk import
func registerTransferRoutes() {
	webserver.ApiGET("/export.csv", exportCSV)
	webserver.ApiGET("/export.xlsx", exportXLSX)
	webserver.ApiPOST("/import", importProducts)
}

func attachment(c echo.Context, ext string) {
	filename := fmt.Sprintf("products-%s.%s", time.Now().Format("20060102-150405"), ext)
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
}

func exportCSV(c echo.Context) error {
	var buf bytes.Buffer
	if err := admin.ExportCSV(&buf, GetAppContext(c).Catalog().Snapshot()); err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export products", err.Error())
	}
	attachment(c, "csv")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func exportXLSX(c echo.Context) error {
	var buf bytes.Buffer
	if err := admin.ExportXLSX(&buf, GetAppContext(c).Catalog().Snapshot()); err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export products", err.Error())
	}
	attachment(c, "xlsx")
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// importProducts accepts a multipart "file" field or a raw text/csv body
func importProducts(c echo.Context) error {
	var r io.Reader
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_FILE", "Unable to read upload", err.Error())
		}
		defer f.Close()
		r = f
	} else {
		r = c.Request().Body
	}

	appCtx := GetAppContext(c)
	res, err := appCtx.Gateway().Import(operatorContext(c), io.LimitReader(r, maxImportSize),
		appCtx.Config().Cart.ImportWorkers)
	if err != nil {
		return webserver.FailErr(c, err)
	}
	return ok(c, res)
}
