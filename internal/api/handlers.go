package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pfrederiksen/visa-bulletin/internal/archive"
	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
	"github.com/pfrederiksen/visa-bulletin/internal/digest"
	"github.com/pfrederiksen/visa-bulletin/internal/logger"
	"github.com/pfrederiksen/visa-bulletin/internal/storage"
)

// BulletinReader reads stored artifacts
type BulletinReader interface {
	List() ([]bulletin.Period, error)
	Load(period bulletin.Period) (bulletin.Artifact, error)
}

// HistoryReader queries the cut-off date archive
type HistoryReader interface {
	History(ctx context.Context, q archive.Query) ([]bulletin.CutOffDate, error)
}

// Handler serves the API routes
type Handler struct {
	store   BulletinReader
	history HistoryReader
	log     *logger.Logger
}

// NewHandler creates a handler. history may be nil when no archive is configured.
func NewHandler(store BulletinReader, history HistoryReader, log *logger.Logger) *Handler {
	return &Handler{store: store, history: history, log: log}
}

func (h *Handler) Health(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"archive":   h.history != nil,
	}
	if periods, err := h.store.List(); err == nil {
		health["bulletins"] = len(periods)
	}
	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListBulletins(c *gin.Context) {
	periods, err := h.store.List()
	if err != nil {
		h.log.Error("listing bulletins failed", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot list bulletins"})
		return
	}

	bulletins := make([]gin.H, 0, len(periods))
	for _, p := range periods {
		bulletins = append(bulletins, gin.H{
			"year":  p.Year,
			"month": p.Month,
			"title": digest.Title(p),
			"href":  "/bulletins/" + p.Year + "/" + p.Month,
		})
	}
	c.JSON(http.StatusOK, gin.H{"bulletins": bulletins})
}

func (h *Handler) GetBulletin(c *gin.Context) {
	artifact, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, artifact)
}

func (h *Handler) GetDigest(c *gin.Context) {
	artifact, ok := h.load(c)
	if !ok {
		return
	}

	d, err := digest.Render(artifact)
	if err != nil {
		h.log.Error("rendering digest failed", logger.Fields{"period": artifact.Period.String()}, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot render digest"})
		return
	}

	switch c.DefaultQuery("format", "html") {
	case "html":
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(d.HTML))
	case "text":
		c.String(http.StatusOK, d.Text)
	case "json":
		c.JSON(http.StatusOK, d)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be html, text or json"})
	}
}

func (h *Handler) GetHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history archive is not configured"})
		return
	}

	q := archive.Query{
		VisaType:    c.Query("visa_type"),
		VisaArea:    c.Query("visa_area"),
		DateType:    bulletin.DateType(c.Query("date_type")),
		Sponsorship: bulletin.Sponsorship(c.Query("sponsorship")),
	}
	if q.VisaType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "visa_type is required"})
		return
	}
	switch q.DateType {
	case "", bulletin.DateFinal, bulletin.DateFiling:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "date_type must be final or filing"})
		return
	}

	dates, err := h.history.History(c.Request.Context(), q)
	if err != nil {
		h.log.Error("history query failed", logger.Fields{"visa_type": q.VisaType}, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": dates})
}

// load reads the artifact named by the :year and :month route parameters
func (h *Handler) load(c *gin.Context) (bulletin.Artifact, bool) {
	period := bulletin.Period{Year: c.Param("year"), Month: c.Param("month")}

	artifact, err := h.store.Load(period)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "bulletin not found"})
		return artifact, false
	}
	if err != nil {
		h.log.Error("loading bulletin failed", logger.Fields{"period": period.String()}, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot load bulletin"})
		return artifact, false
	}
	return artifact, true
}
