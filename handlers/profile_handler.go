package handlers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mchoapp/backend/config"
	"github.com/mchoapp/backend/history"
	"github.com/mchoapp/backend/patients"
	"github.com/mchoapp/backend/profile"
)

const (
	maxFileSize = 5 * 1024 * 1024 // 5MB
	photoBucket = "patient-photos"
	photoSize   = 512
	jpegQuality = 85
)

// ProfileHandler serves the patient profile read model: the resolved
// canonical attributes, the seven history categories, and the completion
// report computed fresh on every view.
type ProfileHandler struct {
	config       *config.Config
	logger       *zap.Logger
	patientStore *patients.Store
	historySvc   *history.Service
	minioClient  *minio.Client
}

func NewProfileHandler(cfg *config.Config, logger *zap.Logger, patientStore *patients.Store, historySvc *history.Service, minioClient *minio.Client) *ProfileHandler {
	return &ProfileHandler{
		config:       cfg,
		logger:       logger,
		patientStore: patientStore,
		historySvc:   historySvc,
		minioClient:  minioClient,
	}
}

// patientID resolves which patient the request is about: the :id route
// param on staff routes, the session owner on portal routes.
func (h *ProfileHandler) patientID(c *fiber.Ctx) (uuid.UUID, error) {
	if raw := c.Params("id"); raw != "" {
		return uuid.Parse(raw)
	}
	raw, ok := c.Locals("userID").(string)
	if !ok {
		return uuid.Nil, errors.New("userID not found in context")
	}
	return uuid.Parse(raw)
}

// GetProfile returns the full profile read model.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	patientID, err := h.patientID(c)
	if err != nil {
		h.logger.Error("invalid patient id", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid patient ID",
		})
	}

	patientRow, err := h.patientStore.GetPatient(c.Context(), patientID)
	if err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Patient not found",
			})
		}
		h.logger.Error("failed to fetch patient",
			zap.Error(err),
			zap.String("patient_id", patientID.String()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	personalRow := h.patientStore.GetPersonalInfo(c.Context(), patientID)
	emergencyRow := h.patientStore.GetEmergencyContact(c.Context(), patientID)
	lifestyleRow := h.patientStore.GetLifestyleInfo(c.Context(), patientID)

	resolved := profile.BuildProfile(patientID.String(),
		patientRow, personalRow, emergencyRow, lifestyleRow, time.Now())
	records := h.historySvc.FetchAll(c.Context(), patientID)
	report := profile.Score(resolved, records)

	h.logger.Info("profile served",
		zap.String("patient_id", patientID.String()),
		zap.Int("completion", report.Percentage))

	return c.JSON(fiber.Map{
		"profile":    resolved,
		"history":    records,
		"completion": report,
	})
}

// UploadPhoto stores a patient photo: validated, resized to a square
// thumbnail, re-encoded as JPEG and written to the photo bucket.
func (h *ProfileHandler) UploadPhoto(c *fiber.Ctx) error {
	patientID, err := h.patientID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid patient ID",
		})
	}

	file, err := c.FormFile("photo")
	if err != nil {
		h.logger.Error("failed to get file from form", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
		})
	}

	if file.Size > maxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("File size exceeds maximum limit of %d MB", maxFileSize/(1024*1024)),
		})
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only JPG and PNG files are allowed",
		})
	}

	src, err := file.Open()
	if err != nil {
		h.logger.Error("failed to open uploaded file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process uploaded file",
		})
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		h.logger.Error("failed to decode image", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid image format",
		})
	}

	resized := resize.Resize(photoSize, photoSize, img, resize.Lanczos3)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		h.logger.Error("failed to encode image", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process image",
		})
	}

	filename := fmt.Sprintf("%s.jpg", uuid.New().String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	info, err := h.minioClient.PutObject(
		ctx,
		photoBucket,
		filename,
		bytes.NewReader(buf.Bytes()),
		int64(buf.Len()),
		minio.PutObjectOptions{
			ContentType: "image/jpeg",
		},
	)
	if err != nil {
		h.logger.Error("failed to upload to minio",
			zap.Error(err),
			zap.String("bucket", photoBucket),
			zap.String("filename", filename))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store image",
		})
	}
	if info.Size == 0 {
		h.logger.Error("upload completed but file size is 0",
			zap.String("filename", filename))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store image properly",
		})
	}

	photoURL := fmt.Sprintf("/api/media/%s/%s", photoBucket, filename)
	if err := h.patientStore.UpdatePhotoURL(c.Context(), patientID, photoURL); err != nil {
		h.logger.Error("failed to update photo url",
			zap.Error(err),
			zap.String("patient_id", patientID.String()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update patient photo",
		})
	}

	h.logger.Info("patient photo uploaded",
		zap.String("patient_id", patientID.String()),
		zap.String("filename", filename))

	return c.JSON(fiber.Map{
		"message": "Photo updated successfully",
		"url":     photoURL,
	})
}

// GetPhoto streams a stored patient photo back to the client.
func (h *ProfileHandler) GetPhoto(c *fiber.Ctx) error {
	filename := c.Params("filename")

	// Basic validation to prevent path traversal
	if strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid filename",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	obj, err := h.minioClient.GetObject(ctx, photoBucket, filename, minio.GetObjectOptions{})
	if err != nil {
		h.logger.Error("failed to get object from minio",
			zap.Error(err),
			zap.String("filename", filename))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve image",
		})
	}

	objInfo, err := obj.Stat()
	if err != nil {
		h.logger.Error("failed to get object stats",
			zap.Error(err),
			zap.String("filename", filename))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Image not found",
		})
	}

	c.Set("Content-Type", objInfo.ContentType)
	c.Set("Content-Length", fmt.Sprintf("%d", objInfo.Size))
	c.Set("Cache-Control", "public, max-age=86400") // Cache for 24 hours
	c.Set("ETag", objInfo.ETag)

	buffer := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(c, obj, buffer); err != nil {
		h.logger.Error("failed to stream file to client",
			zap.Error(err),
			zap.String("filename", filename))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to stream image data",
		})
	}

	return nil
}
