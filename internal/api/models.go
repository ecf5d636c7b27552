package api

import (
	"fmt"
	"net/http"

	"backoffice-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listModels(c *gin.Context) {
	h.respondModels(c, c.Param("company"))
}

// listModelsByQuery serves /api/models?table=<company>&q=
func (h *Handler) listModelsByQuery(c *gin.Context) {
	company := c.Query("table")
	if company == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing table parameter",
		})
		return
	}
	h.respondModels(c, company)
}

func (h *Handler) respondModels(c *gin.Context, company string) {
	list, err := h.stock.ListModels(c.Request.Context(), company, c.Query("q"))
	if err != nil {
		respondError(c, "Failed to list models", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getModel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	model, err := h.stock.GetModel(c.Request.Context(), c.Param("company"), id)
	if err != nil {
		respondError(c, "Model not found", err)
		return
	}
	c.JSON(http.StatusOK, model)
}

func (h *Handler) createModel(c *gin.Context) {
	var in service.ModelInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	company := c.Param("company")
	model, err := h.stock.CreateModel(c.Request.Context(), company, in)
	details := fmt.Sprintf("company=%s name=%s", company, in.Name)
	h.record(c, "create_model", err, details)
	if err != nil {
		respondError(c, "Failed to create model", err)
		return
	}

	c.JSON(http.StatusCreated, model)
}

func (h *Handler) updateModel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var in service.ModelInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	company := c.Param("company")
	model, err := h.stock.UpdateModel(c.Request.Context(), company, id, in)
	h.record(c, "update_model", err, fmt.Sprintf("company=%s id=%d", company, id))
	if err != nil {
		respondError(c, "Failed to update model", err)
		return
	}

	c.JSON(http.StatusOK, model)
}

func (h *Handler) deleteModel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	company := c.Param("company")
	err := h.stock.DeleteModel(c.Request.Context(), company, id)
	h.record(c, "delete_model", err, fmt.Sprintf("company=%s id=%d", company, id))
	if err != nil {
		respondError(c, "Failed to delete model", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Model deleted",
	})
}
