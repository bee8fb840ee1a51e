package api

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gorilla/websocket"
	"github.com/pyneda/sukyan/pkg/scan/broadcast"
	"github.com/pyneda/sukyan/pkg/scan/engine"
	"github.com/pyneda/sukyan/pkg/scan/manager"
	"github.com/rs/zerolog/log"
)

type createScanRequest struct {
	Target    string  `json:"target"`
	RateLimit float64 `json:"rate_limit"`
}

// createScan handles POST /api/v1/scans, starting a scan in the background
// and returning its ID immediately.
func createScan(m *manager.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createScanRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if req.Target == "" {
			return fiber.NewError(fiber.StatusBadRequest, "target is required")
		}

		scanID, err := m.StartScan(context.Background(), req.Target, engine.RunOptions{RateLimit: req.RateLimit})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"scan_id": scanID})
	}
}

// listScans handles GET /api/v1/scans.
func listScans(m *manager.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scans, err := m.ListScans(100)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(scans)
	}
}

// getScan handles GET /api/v1/scans/:id.
func getScan(m *manager.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scan, err := m.GetScan(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "scan not found")
		}
		return c.JSON(scan)
	}
}

// getScanFindings handles GET /api/v1/scans/:id/findings.
func getScanFindings(m *manager.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		findings, err := m.GetScanFindings(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(findings)
	}
}

// getTargetFindings handles GET /api/v1/targets/:target/findings.
func getTargetFindings(m *manager.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		findings, err := m.GetTargetFindings(c.Params("target"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(findings)
	}
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// scanWebSocket handles GET /api/v1/scans/:id/ws, streaming this scan's
// progress events as JSON frames until the client disconnects. gorilla/websocket
// is already a module dependency for client-side use; its Upgrader is bridged
// onto fiber's fasthttp request cycle through the stdlib adaptor instead of
// pulling in a second, fiber-native websocket library.
// The scan ID is read from fiber's own router before entering the adapted
// net/http handler, since routing through the adaptor bypasses stdlib
// ServeMux path-value parsing.
func scanWebSocket(b *broadcast.Broadcaster) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scanID := c.Params("id")

		handler := func(w http.ResponseWriter, r *http.Request) {
			conn, err := wsUpgrader.Upgrade(w, r, nil)
			if err != nil {
				log.Warn().Err(err).Msg("websocket upgrade failed")
				return
			}
			defer conn.Close()

			sub, unsubscribe := b.Subscribe(scanID)
			defer unsubscribe()

			for ev := range sub {
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			}
		}

		return adaptor.HTTPHandlerFunc(handler)(c)
	}
}
