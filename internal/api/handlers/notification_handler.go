package handlers

import (
	"github.com/ashwinm7/postdeck/internal/service"
	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	s service.NotificationService
}

func NewNotificationHandler(service service.NotificationService) *NotificationHandler {
	return &NotificationHandler{s: service}
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	userId := GetUserID(c)

	notifications, err := h.s.List(c.Context(), userId, c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list notifications",
		})
	}

	return c.Status(fiber.StatusOK).JSON(notifications)
}

func (h *NotificationHandler) CountUnread(c *fiber.Ctx) error {
	userId := GetUserID(c)

	count, err := h.s.CountUnread(c.Context(), userId)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to count notifications",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"unread": count,
	})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userId := GetUserID(c)
	notificationId := c.QueryInt("id", 0)

	err := h.s.MarkRead(c.Context(), userId, int64(notificationId))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to mark notification read",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
