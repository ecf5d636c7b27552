package api

import (
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// runBackup takes a dump of the requested type and returns it as a download
func (h *Handler) runBackup(c *gin.Context) {
	backupType := c.DefaultQuery("type", "daily")

	record, err := h.backups.Run(c.Request.Context(), backupType)
	h.record(c, "backup", err, "type="+backupType)
	if err != nil {
		respondError(c, "Backup failed", err)
		return
	}

	c.FileAttachment(record.FilePath, filepath.Base(record.FilePath))
}
