package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

// LicenseHandler handles HTTP requests for license management.
type LicenseHandler struct {
	licenses ports.LicenseService
}

func NewLicenseHandler(licenses ports.LicenseService) *LicenseHandler {
	return &LicenseHandler{licenses: licenses}
}

// Create handles POST /licenses.
//
// @Summary      Create a license
// @Description  A key is generated when license_key is empty.
// @Tags         licenses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      licenseRequest  true  "License"
// @Success      201   {object}  licenseResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /licenses [post]
func (h *LicenseHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req licenseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	l, err := h.licenses.Create(c.Request().Context(), p, toLicenseInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toLicenseResponse(l))
}

// List handles GET /licenses.
//
// @Summary      List licenses
// @Tags         licenses
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  licenseResponse
// @Router       /licenses [get]
func (h *LicenseHandler) List(c echo.Context) error {
	ls, err := h.licenses.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLicenseResponses(ls))
}

// Get handles GET /licenses/:id.
//
// @Summary      Get a license by id
// @Tags         licenses
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "License id"
// @Success      200  {object}  licenseResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /licenses/{id} [get]
func (h *LicenseHandler) Get(c echo.Context) error {
	l, err := h.licenses.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLicenseResponse(l))
}

// GetByKey handles GET /licenses/key/:key.
//
// @Summary      Get a license by key
// @Tags         licenses
// @Produce      json
// @Security     BearerAuth
// @Param        key  path      string  true  "License key"
// @Success      200  {object}  licenseResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /licenses/key/{key} [get]
func (h *LicenseHandler) GetByKey(c echo.Context) error {
	l, err := h.licenses.GetByKey(c.Request().Context(), c.Param("key"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLicenseResponse(l))
}

// ByCustomer handles GET /licenses/customer/:name.
//
// @Summary      Licenses of a customer
// @Tags         licenses
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Customer name, case-insensitive"
// @Success      200   {array}   licenseResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /licenses/customer/{name} [get]
func (h *LicenseHandler) ByCustomer(c echo.Context) error {
	ls, err := h.licenses.ListByCustomer(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLicenseResponses(ls))
}

// ByProduct handles GET /licenses/product/:name.
//
// @Summary      Licenses of a product
// @Tags         licenses
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Product name, case-insensitive"
// @Success      200   {array}   licenseResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /licenses/product/{name} [get]
func (h *LicenseHandler) ByProduct(c echo.Context) error {
	ls, err := h.licenses.ListByProduct(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLicenseResponses(ls))
}

// ByStatus handles GET /licenses/status/:status.
//
// @Summary      Licenses in a status
// @Tags         licenses
// @Produce      json
// @Security     BearerAuth
// @Param        status  path      string  true  "ACTIVE, EXPIRED, REVOKED or SUSPENDED"
// @Success      200     {array}   licenseResponse
// @Failure      400     {object}  ErrorResponse
// @Router       /licenses/status/{status} [get]
func (h *LicenseHandler) ByStatus(c echo.Context) error {
	ls, err := h.licenses.ListByStatus(c.Request().Context(), domain.LicenseStatus(c.Param("status")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLicenseResponses(ls))
}

// Expired handles GET /licenses/expired.
//
// @Summary      Licenses expired on or before a date
// @Tags         licenses
// @Produce      json
// @Security     BearerAuth
// @Param        asOf  query     string  false  "YYYY-MM-DD, defaults to today (UTC)"
// @Success      200   {array}   licenseResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /licenses/expired [get]
func (h *LicenseHandler) Expired(c echo.Context) error {
	asOf, err := parseDate(c.QueryParam("asOf"))
	if err != nil {
		return domain.NewValidationError("asOf", "must be a date in YYYY-MM-DD format")
	}

	ls, err := h.licenses.FindExpired(c.Request().Context(), asOf)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLicenseResponses(ls))
}

// Expiring handles GET /licenses/expiring.
//
// @Summary      Licenses expiring within a date range
// @Tags         licenses
// @Produce      json
// @Security     BearerAuth
// @Param        from  query     string  true  "YYYY-MM-DD"
// @Param        to    query     string  true  "YYYY-MM-DD"
// @Success      200   {array}   licenseResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /licenses/expiring [get]
func (h *LicenseHandler) Expiring(c echo.Context) error {
	from, ferr := parseDate(c.QueryParam("from"))
	to, terr := parseDate(c.QueryParam("to"))
	if ferr != nil || terr != nil {
		verr := &domain.ValidationError{Fields: map[string]string{}}
		if ferr != nil {
			verr.Fields["from"] = "must be a date in YYYY-MM-DD format"
		}
		if terr != nil {
			verr.Fields["to"] = "must be a date in YYYY-MM-DD format"
		}
		return verr
	}

	ls, err := h.licenses.ListExpiringBetween(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLicenseResponses(ls))
}

// Customers handles GET /licenses/customers.
//
// @Summary      Distinct customer names
// @Tags         licenses
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  string
// @Router       /licenses/customers [get]
func (h *LicenseHandler) Customers(c echo.Context) error {
	names, err := h.licenses.CustomerNames(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, names)
}

// Products handles GET /licenses/products.
//
// @Summary      Distinct product names
// @Tags         licenses
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  string
// @Router       /licenses/products [get]
func (h *LicenseHandler) Products(c echo.Context) error {
	names, err := h.licenses.ProductNames(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, names)
}

// Update handles PUT /licenses/:id.
//
// @Summary      Replace a license
// @Description  The key and the creator are kept.
// @Tags         licenses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "License id"
// @Param        body  body      licenseRequest  true  "License"
// @Success      200   {object}  licenseResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /licenses/{id} [put]
func (h *LicenseHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req licenseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	l, err := h.licenses.Update(c.Request().Context(), p, c.Param("id"), toLicenseInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLicenseResponse(l))
}

// UpdateStatus handles PATCH /licenses/:id/status.
//
// @Summary      Change a license's status
// @Tags         licenses
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true  "License id"
// @Param        status  query     string  true  "ACTIVE, EXPIRED, REVOKED or SUSPENDED"
// @Success      200     {object}  licenseResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /licenses/{id}/status [patch]
func (h *LicenseHandler) UpdateStatus(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	status := c.QueryParam("status")
	if status == "" {
		return domain.NewValidationError("status", "is required")
	}

	l, err := h.licenses.UpdateStatus(c.Request().Context(), p, c.Param("id"), domain.LicenseStatus(status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLicenseResponse(l))
}

// Delete handles DELETE /licenses/:id.
//
// @Summary      Delete a license
// @Tags         licenses
// @Security     BearerAuth
// @Param        id  path  string  true  "License id"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /licenses/{id} [delete]
func (h *LicenseHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.licenses.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// GenerateKey handles GET /licenses/generate-key.
//
// @Summary      Generate an unused license key
// @Tags         licenses
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  generatedKeyResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /licenses/generate-key [get]
func (h *LicenseHandler) GenerateKey(c echo.Context) error {
	key, err := h.licenses.GenerateKey(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, generatedKeyResponse{LicenseKey: key})
}
