package handlers

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"

	"github.com/mchoapp/backend/config"
	"github.com/mchoapp/backend/history"
	"github.com/mchoapp/backend/middleware"
)

// HistoryHandler exposes the medical history editor: per-category CRUD
// and the Not Applicable toggle. Every successful mutation leaves an
// audit document behind.
type HistoryHandler struct {
	config      *config.Config
	logger      *zap.Logger
	service     *history.Service
	mongoClient *mongo.Client
}

func NewHistoryHandler(cfg *config.Config, logger *zap.Logger, service *history.Service, mongoClient *mongo.Client) *HistoryHandler {
	return &HistoryHandler{
		config:      cfg,
		logger:      logger,
		service:     service,
		mongoClient: mongoClient,
	}
}

type toggleNARequest struct {
	Enabled bool `json:"enabled"`
}

func (h *HistoryHandler) patientID(c *fiber.Ctx) (uuid.UUID, error) {
	if raw := c.Params("id"); raw != "" {
		return uuid.Parse(raw)
	}
	raw, _ := c.Locals("userID").(string)
	return uuid.Parse(raw)
}

func (h *HistoryHandler) category(c *fiber.Ctx) (history.Category, error) {
	return history.ParseCategory(c.Params("category"))
}

// ListCategory returns every record of one category for the patient.
func (h *HistoryHandler) ListCategory(c *fiber.Ctx) error {
	cat, err := h.category(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("UNKNOWN_CATEGORY", "Unknown medical history category"))
	}
	patientID, err := h.patientID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid patient ID",
		})
	}

	records := h.service.FetchCategory(c.Context(), patientID, cat)

	notApplicable := false
	for _, rec := range records {
		if rec.NotApplicable {
			notApplicable = true
			break
		}
	}

	return c.JSON(fiber.Map{
		"category":       cat,
		"records":        records,
		"not_applicable": notApplicable,
	})
}

// AddRecord inserts a new record into one category.
func (h *HistoryHandler) AddRecord(c *fiber.Ctx) error {
	cat, err := h.category(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("UNKNOWN_CATEGORY", "Unknown medical history category"))
	}
	patientID, err := h.patientID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid patient ID",
		})
	}

	var fields map[string]string
	if err := c.BodyParser(&fields); err != nil {
		h.logger.Error("failed to parse record body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request data",
		})
	}

	record, err := h.service.Add(c.Context(), patientID, cat, fields)
	if err != nil {
		return h.mutationError(c, err)
	}

	h.audit(c, "add", cat, patientID, record.ID.String())

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Record added successfully",
		"record":  record,
	})
}

// UpdateRecord rewrites an existing record.
func (h *HistoryHandler) UpdateRecord(c *fiber.Ctx) error {
	cat, err := h.category(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("UNKNOWN_CATEGORY", "Unknown medical history category"))
	}
	patientID, err := h.patientID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid patient ID",
		})
	}
	recordID, err := uuid.Parse(c.Params("recordId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid record ID",
		})
	}

	var fields map[string]string
	if err := c.BodyParser(&fields); err != nil {
		h.logger.Error("failed to parse record body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request data",
		})
	}

	if err := h.service.Update(c.Context(), cat, recordID, patientID, fields); err != nil {
		return h.mutationError(c, err)
	}

	h.audit(c, "update", cat, patientID, recordID.String())

	return c.JSON(fiber.Map{
		"message": "Record updated successfully",
	})
}

// DeleteRecord removes one record.
func (h *HistoryHandler) DeleteRecord(c *fiber.Ctx) error {
	cat, err := h.category(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("UNKNOWN_CATEGORY", "Unknown medical history category"))
	}
	recordID, err := uuid.Parse(c.Params("recordId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid record ID",
		})
	}

	if err := h.service.Delete(c.Context(), cat, recordID); err != nil {
		return h.mutationError(c, err)
	}

	patientID, _ := h.patientID(c)
	h.audit(c, "delete", cat, patientID, recordID.String())

	return c.JSON(fiber.Map{
		"message": "Record deleted successfully",
	})
}

// ToggleNA marks a category Not Applicable or clears the mark. The
// client refetches the profile afterwards so the completion score and
// tables reflect the new state.
func (h *HistoryHandler) ToggleNA(c *fiber.Ctx) error {
	cat, err := h.category(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("UNKNOWN_CATEGORY", "Unknown medical history category"))
	}
	patientID, err := h.patientID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid patient ID",
		})
	}

	var req toggleNARequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Error("failed to parse toggle body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request data",
		})
	}

	changed, err := h.service.ToggleNA(c.Context(), patientID, cat, req.Enabled)
	if err != nil {
		return h.mutationError(c, err)
	}

	if changed {
		action := "na_enable"
		if !req.Enabled {
			action = "na_disable"
		}
		h.audit(c, action, cat, patientID, "")
	}

	return c.JSON(fiber.Map{
		"message":        "Category updated successfully",
		"not_applicable": req.Enabled,
		"changed":        changed,
	})
}

// mutationError maps service errors onto HTTP statuses: validation
// problems are the caller's fault, a missing record is 404, anything
// else is a store failure.
func (h *HistoryHandler) mutationError(c *fiber.Ctx, err error) error {
	var validationErr *history.ValidationError
	switch {
	case stderrors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("VALIDATION_ERROR", validationErr.Msg))
	case stderrors.Is(err, history.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse("RECORD_NOT_FOUND", "Medical history record not found"))
	case stderrors.Is(err, history.ErrUnknownCategory):
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("UNKNOWN_CATEGORY", "Unknown medical history category"))
	default:
		h.logger.Error("history mutation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}
}

// audit records the mutation in the audit collection. Failures are
// logged only; the mutation already succeeded and auditing must never
// undo that from the caller's point of view.
func (h *HistoryHandler) audit(c *fiber.Ctx, action string, cat history.Category, patientID uuid.UUID, recordID string) {
	actor, _ := c.Locals("userID").(string)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	doc := bson.M{
		"action":     action,
		"category":   string(cat),
		"patient_id": patientID.String(),
		"record_id":  recordID,
		"actor":      actor,
		"at":         time.Now(),
	}
	if role, ok := c.Locals("role").(middleware.Role); ok {
		doc["role"] = string(role)
	}

	collection := h.mongoClient.Database(h.config.MongoDBName).Collection("history_audit")
	if _, err := collection.InsertOne(ctx, doc); err != nil {
		h.logger.Warn("failed to write audit record",
			zap.Error(err),
			zap.String("action", action),
			zap.String("category", string(cat)))
	}
}
