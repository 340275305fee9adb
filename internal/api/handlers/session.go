package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/waconnect/waconnect-go/internal/client"
	"github.com/waconnect/waconnect-go/internal/qrcode"
)

// SessionHandler exposes a device session's pairing lifecycle (create,
// list, inspect, fetch QR, tear down) over HTTP. It never touches the
// authenticator or noise handshake directly — that's SessionManager and
// the WAClient it owns.
type SessionHandler struct {
	sessionManager *client.SessionManager
	logger         *zap.SugaredLogger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sm *client.SessionManager, logger *zap.SugaredLogger) *SessionHandler {
	return &SessionHandler{
		sessionManager: sm,
		logger:         logger,
	}
}

// CreateRequest names the device session to pair; a generated ID is used
// when the caller leaves it blank.
type CreateRequest struct {
	SessionID string `json:"sessionId"`
}

// Create registers a new device session and kicks off its connection in
// the background; the caller polls GetStatus/GetQR to watch it pair.
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	session, err := h.sessionManager.CreateSession(req.SessionID)
	if err != nil {
		switch err {
		case client.ErrSessionExists:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"error":   "Session already exists",
			})
		case client.ErrInvalidSessionID:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Session id must be 1-64 characters of letters, digits, '-' or '_'",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    session.GetSession(),
	})
}

// List returns every device session in the registry, paired or still
// pairing, plus aggregate counts.
func (h *SessionHandler) List(c *fiber.Ctx) error {
	sessions := h.sessionManager.GetAllSessions()
	
	sessionInfos := make([]client.SessionInfo, len(sessions))
	for i, s := range sessions {
		sessionInfos[i] = s.GetSession()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"sessions": sessionInfos,
			"stats":    h.sessionManager.GetStats(),
		},
	})
}

// Get returns a specific session
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	session, exists := h.sessionManager.GetSession(sessionID)
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Session not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    session.GetSession(),
	})
}

// GetQR returns the session's current pairing QR, both as the raw
// comma-joined string the authenticator emits and as a rendered PNG data
// URL the dashboard can drop straight into an <img> tag.
func (h *SessionHandler) GetQR(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	session, exists := h.sessionManager.GetSession(sessionID)
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Session not found",
		})
	}

	qrCode := session.GetQRCode()
	if qrCode == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "QR code not available",
		})
	}

	qrImage, err := qrcode.NewQRGenerator().GenerateBase64(qrCode)
	if err != nil {
		h.logger.Errorf("rendering QR for session %s: %v", sessionID, err)
		qrImage = ""
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"qr":      qrCode,
			"qrImage": qrImage,
			"status":  session.GetStatus(),
		},
	})
}

// GetStatus returns session status
func (h *SessionHandler) GetStatus(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	session, exists := h.sessionManager.GetSession(sessionID)
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Session not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"status":      session.GetStatus(),
			"phoneNumber": session.GetPhoneNumber(),
		},
	})
}

// Delete disconnects a session and wipes its persisted pairing, so a
// later Create with the same ID starts a fresh pairing from scratch.
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	err := h.sessionManager.DeleteSession(sessionID)
	if err != nil {
		if err == client.ErrSessionNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "Session not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Session deleted",
	})
}

func generateSessionID() string {
	return "session-" + time.Now().Format("20060102150405")
}
