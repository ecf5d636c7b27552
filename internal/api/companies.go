package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type companyRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) createCompany(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	company, err := h.companies.CreateCompany(c.Request.Context(), req.Name)
	h.record(c, "create_company", err, "company="+req.Name)
	if err != nil {
		respondError(c, "Failed to create company", err)
		return
	}

	c.JSON(http.StatusCreated, company)
}

func (h *Handler) listCompanies(c *gin.Context) {
	companies, err := h.companies.ListCompanies(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to list companies", err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

func (h *Handler) listCompaniesWithModels(c *gin.Context) {
	companies, err := h.companies.ListCompaniesWithCounts(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to list companies", err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

func (h *Handler) renameCompany(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	oldName := c.Param("company")
	company, err := h.companies.RenameCompany(c.Request.Context(), oldName, req.Name)
	h.record(c, "rename_company", err, "company="+oldName+" new_name="+req.Name)
	if err != nil {
		respondError(c, "Failed to rename company", err)
		return
	}

	c.JSON(http.StatusOK, company)
}

func (h *Handler) deleteCompany(c *gin.Context) {
	name := c.Param("company")
	err := h.companies.DeleteCompany(c.Request.Context(), name)
	h.record(c, "delete_company", err, "company="+name)
	if err != nil {
		respondError(c, "Failed to delete company", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Company deleted",
	})
}
