package echoapi

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/beasiswa/core"
	"github.com/trezcool/beasiswa/services/export"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the `ordering` query param; fields missing from `allowed` are ignored.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	if val := ctx.QueryParam(orderingParam); val != "" {
		ord.Orderings = core.ParseOrderings(val, allowed...)
	}
}

// idParam parses the `:id` path param; malformed IDs are not found.
func idParam(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// formUpload reads a file of a multipart form; nil is returned when there is none.
func formUpload(ctx echo.Context, field string) (*core.Upload, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading form file")
	}
	if fh.Filename == "" {
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening form file")
	}
	defer f.Close()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "reading form file")
	}
	return &core.Upload{Filename: fh.Filename, ContentType: fh.Header.Get(echo.HeaderContentType), Data: data}, nil
}

// sendFile responds with a downloadable file; its checksum is the ETag.
func sendFile(ctx echo.Context, name, contentType string, data []byte, checksum string, inline bool) error {
	if checksum == "" {
		checksum = core.Checksum(data)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	etag := strconv.Quote(checksum)

	header := ctx.Response().Header()
	header.Set("ETag", etag)
	header.Set("Cache-Control", "private, max-age=0")
	if ctx.Request().Header.Get("If-None-Match") == etag {
		return ctx.NoContent(http.StatusNotModified)
	}

	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf("%s; filename=%q", disposition, name))
	return ctx.Blob(http.StatusOK, contentType, data)
}

func sendSheet(ctx echo.Context, sheet core.Sheet) error {
	data, err := export.XLSX(sheet)
	if err != nil {
		return errors.Wrap(err, "building spreadsheet")
	}
	return sendFile(ctx, sheet.Filename, export.XLSXContentType, data, "", false)
}

type SuccessResponse struct {
	Success string `json:"success"`
}
