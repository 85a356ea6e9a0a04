package v1

import (
	"net/http"

	"github.com/flexprice/taxsync/internal/api/dto"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/logger"
	"github.com/flexprice/taxsync/internal/service"
	"github.com/gin-gonic/gin"
)

// TaxAdminHandler manages companies, tax forms, tax rules and company tax settings
type TaxAdminHandler struct {
	service service.TaxRuleAdminService
	logger  *logger.Logger
}

func NewTaxAdminHandler(service service.TaxRuleAdminService, logger *logger.Logger) *TaxAdminHandler {
	return &TaxAdminHandler{
		service: service,
		logger:  logger,
	}
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return false
	}
	return true
}

// @Summary Create a company
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body dto.CreateCompanyRequest true "Company to create"
// @Success 201 {object} company.Company
// @Router /companies [post]
func (h *TaxAdminHandler) CreateCompany(c *gin.Context) {
	var req dto.CreateCompanyRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateCompany(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Create a tax form
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body dto.CreateTaxFormRequest true "Tax form to create"
// @Success 201 {object} taxform.TaxForm
// @Failure 409 {object} ierr.ErrorResponse
// @Router /tax-forms [post]
func (h *TaxAdminHandler) CreateTaxForm(c *gin.Context) {
	var req dto.CreateTaxFormRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateTaxForm(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Close a tax form
// @Description Ends the validity window of the form
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Tax form ID"
// @Param request body dto.CloseTaxFormRequest true "End of validity"
// @Success 200 {object} taxform.TaxForm
// @Router /tax-forms/{id}/close [post]
func (h *TaxAdminHandler) CloseTaxForm(c *gin.Context) {
	var req dto.CloseTaxFormRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CloseTaxForm(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Create a tax rule
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body dto.CreateTaxRuleRequest true "Tax rule to create"
// @Success 201 {object} taxrule.TaxRule
// @Router /tax-rules [post]
func (h *TaxAdminHandler) CreateTaxRule(c *gin.Context) {
	var req dto.CreateTaxRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateTaxRule(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Update a tax rule
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Tax rule ID"
// @Param request body dto.UpdateTaxRuleRequest true "Fields to change"
// @Success 200 {object} taxrule.TaxRule
// @Router /tax-rules/{id} [put]
func (h *TaxAdminHandler) UpdateTaxRule(c *gin.Context) {
	var req dto.UpdateTaxRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.UpdateTaxRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Opt a company into a tax form
// @Tags Admin
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param request body dto.CreateCompanyTaxSettingsRequest true "Tax settings"
// @Success 201 {object} taxsettings.CompanyTaxSettings
// @Failure 409 {object} ierr.ErrorResponse
// @Router /companies/{company_id}/tax-settings [post]
func (h *TaxAdminHandler) CreateCompanyTaxSettings(c *gin.Context) {
	var req dto.CreateCompanyTaxSettingsRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateCompanyTaxSettings(c.Request.Context(), c.Param("company_id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Select, deselect or narrow a company tax form
// @Tags Admin
// @Accept json
// @Produce json
// @Param company_id path string true "Company ID"
// @Param tax_form_id path string true "Tax form ID"
// @Param request body dto.UpdateCompanyTaxSettingsRequest true "Fields to change"
// @Success 200 {object} taxsettings.CompanyTaxSettings
// @Router /companies/{company_id}/tax-settings/{tax_form_id} [put]
func (h *TaxAdminHandler) UpdateCompanyTaxSettings(c *gin.Context) {
	var req dto.UpdateCompanyTaxSettingsRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.UpdateCompanyTaxSettings(c.Request.Context(), c.Param("company_id"), c.Param("tax_form_id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List company tax settings
// @Tags Admin
// @Produce json
// @Param company_id path string true "Company ID"
// @Success 200 {array} taxsettings.CompanyTaxSettings
// @Router /companies/{company_id}/tax-settings [get]
func (h *TaxAdminHandler) ListCompanyTaxSettings(c *gin.Context) {
	resp, err := h.service.ListCompanyTaxSettings(c.Request.Context(), c.Param("company_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
