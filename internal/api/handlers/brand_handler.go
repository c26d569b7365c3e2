package handlers

import (
	"github.com/ashwinm7/postdeck/internal/service"
	"github.com/gofiber/fiber/v2"
)

type BrandHandler struct {
	s service.BrandService
}

func NewBrandHandler(service service.BrandService) *BrandHandler {
	return &BrandHandler{s: service}
}

func (h *BrandHandler) CreateBrand(c *fiber.Ctx) error {
	userId := GetUserID(c)

	brandID, err := h.s.Create(c.Context(), userId, c.FormValue("name"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"brand_id": brandID,
	})
}

func (h *BrandHandler) ListBrands(c *fiber.Ctx) error {
	userId := GetUserID(c)

	brands, err := h.s.List(c.Context(), userId)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list brands",
		})
	}

	return c.Status(fiber.StatusOK).JSON(brands)
}

func (h *BrandHandler) AddMember(c *fiber.Ctx) error {
	userId := GetUserID(c)
	brandId := c.QueryInt("id", 0)
	memberId := c.QueryInt("member_id", 0)

	err := h.s.AddMember(c.Context(), userId, int64(brandId), int64(memberId))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
