package handlers

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strconv"
	"time"

	config "github.com/ashwinm7/postdeck/configs"
	"github.com/ashwinm7/postdeck/internal/service"
	"github.com/ashwinm7/postdeck/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// ConnectorFunc completes an OAuth connect flow for one platform.
type ConnectorFunc func(ctx context.Context, code string, userID, brandID int64) error

// Connector is one platform's OAuth surface: where to send the user and how
// to finish the flow when they come back.
type Connector struct {
	AuthURL  func(state string) string
	Callback ConnectorFunc
}

type PlatformHandler struct {
	ps         service.PlatformService
	connectors map[string]Connector
	cfg        config.Config
}

// NewPlatformHandler dispatches connect flows through a connector map keyed
// by platform. Adding a platform means registering a connector, not editing
// a switch.
func NewPlatformHandler(ps service.PlatformService, connectors map[string]Connector, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{
		ps:         ps,
		connectors: connectors,
		cfg:        cfg,
	}
}

func (h *PlatformHandler) AddSocialAccount(c *fiber.Ctx) error {
	platform := c.Params("platform")
	connector, ok := h.connectors[platform]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported platform",
		})
	}

	userID := GetUserID(c)
	brandID := c.QueryInt("brand_id", 0)
	if brandID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "brand_id is required",
		})
	}

	state, err := utils.GenerateStateToken(h.cfg.SecretKey, strconv.FormatInt(userID, 10), strconv.Itoa(brandID), 15*time.Minute)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to start connect flow",
		})
	}

	return c.Redirect(connector.AuthURL(state))
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	platform := c.Params("platform")

	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	brandID, err := strconv.ParseInt(claims.BrandID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate brand",
		})
	}

	connector, ok := h.connectors[platform]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported platform",
		})
	}

	if err := connector.Callback(c.Context(), code, userID, brandID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accountList, err := h.ps.List(c.Context(), userID)
	if err != nil {
		log.Println(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) ListAccountPages(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("account_id", 0)

	pages, err := h.ps.ListPages(c.Context(), userID, int64(accountID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch pages",
		})
	}

	return c.Status(fiber.StatusOK).JSON(pages)
}

func (h *PlatformHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountId := c.QueryInt("id", 0)

	err := h.ps.Delete(c.Context(), userID, int64(accountId))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to delete social account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
