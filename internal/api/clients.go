package api

import (
	"fmt"
	"net/http"

	"backoffice-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createClient(c *gin.Context) {
	var in service.ClientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	client, err := h.clients.CreateClient(c.Request.Context(), in)
	h.record(c, "create_client", err, "name="+in.Name)
	if err != nil {
		respondError(c, "Failed to create client", err)
		return
	}

	c.JSON(http.StatusCreated, client)
}

func (h *Handler) searchClients(c *gin.Context) {
	clients, err := h.clients.SearchClients(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, "Failed to search clients", err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (h *Handler) updateClient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var in service.ClientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	client, err := h.clients.UpdateClient(c.Request.Context(), id, in)
	h.record(c, "update_client", err, fmt.Sprintf("id=%d", id))
	if err != nil {
		respondError(c, "Failed to update client", err)
		return
	}

	c.JSON(http.StatusOK, client)
}

func (h *Handler) deleteClient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	err := h.clients.DeleteClient(c.Request.Context(), id)
	h.record(c, "delete_client", err, fmt.Sprintf("id=%d", id))
	if err != nil {
		respondError(c, "Failed to delete client", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Client deleted",
	})
}

func (h *Handler) listClientExports(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	exports, err := h.clients.ListClientExports(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Failed to list exports", err)
		return
	}
	c.JSON(http.StatusOK, exports)
}
