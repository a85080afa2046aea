package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	stationapp "github.com/fmanana/autosense-backend/internal/stations/application"
	stations "github.com/fmanana/autosense-backend/internal/stations/domain"
)

const (
	messageCreated        = "Created"
	messageDeleted        = "Station deleted successfully"
	messageInvalidStation = "Invalid station ID"
	messageInvalidPump    = "Invalid pump ID"
	messageStationMissing = "Station not found"
	messageInternal       = "internal error"
)

// Handler provides station and pump HTTP endpoints.
type Handler struct {
	service *stationapp.StationService
	logger  hclog.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *stationapp.StationService, logger hclog.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("stations handler: nil service")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Handler{service: service, logger: logger}, nil
}

// Register mounts the station routes.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/stations", h.list)
	r.POST("/stations", h.create)
	r.GET("/stations/:id", h.get)
	r.PUT("/stations/:id", h.update)
	r.DELETE("/stations/:id", h.delete)
	r.GET("/pumps/:id", h.getPump)
	r.GET("/exports/stations/:format", h.export)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stations": list})
}

func (h *Handler) create(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		writeMessage(c, http.StatusBadRequest, "The request body could not be read")
		return
	}
	req, err := stations.ParseCreateStationRequest(body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	id, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": messageCreated, "id": id})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := parseID(c, messageInvalidStation)
	if !ok {
		return
	}
	station, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, station)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := parseID(c, messageInvalidStation)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		writeMessage(c, http.StatusBadRequest, "The request body could not be read")
		return
	}
	req, err := stations.ParseUpdateStationRequest(body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	station, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, station)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := parseID(c, messageInvalidStation)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": messageDeleted})
}

func (h *Handler) getPump(c *gin.Context) {
	id, ok := parseID(c, messageInvalidPump)
	if !ok {
		return
	}
	pump, err := h.service.GetPump(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pump)
}

func parseID(c *gin.Context, message string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeMessage(c, http.StatusBadRequest, message)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		verr *stations.ValidationError
		nf   *stations.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		writeMessage(c, http.StatusBadRequest, verr.Message())
	case errors.As(err, &nf):
		if nf.Resource == stations.ResourcePump {
			writeMessage(c, http.StatusNotFound, fmt.Sprintf("Pump with ID %d not found", nf.ID))
			return
		}
		writeMessage(c, http.StatusNotFound, messageStationMissing)
	default:
		h.logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		writeMessage(c, http.StatusInternalServerError, messageInternal)
	}
}

func writeMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   http.StatusText(status),
		"message": message,
	})
}
