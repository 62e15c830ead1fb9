package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sugarline/sweetshop/internal/logging"
	"github.com/sugarline/sweetshop/internal/models"
	"github.com/sugarline/sweetshop/internal/mykafka"
	"github.com/sugarline/sweetshop/internal/transport"
	"github.com/sugarline/sweetshop/internal/util"
)

type SweetHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *SweetHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "sweet_events", fmt.Sprint(event["sweetID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func sweetID(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return 0, errors.New("id is not a positive integer")
	}
	return uint(id), nil
}

func (h *SweetHandler) findSweet(ctx context.Context, id uint) (*models.Sweet, error) {
	var sweet models.Sweet
	if err := h.DB.WithContext(ctx).First(&sweet, id).Error; err != nil {
		return nil, err
	}
	return &sweet, nil
}

func (h *SweetHandler) CreateSweet(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet_create")

	var req transport.SweetRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("sweet_create_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.Validate(); err != nil {
		l.Warn("sweet_create_failed", "status", 400, "reason", "validation", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sweet := models.Sweet{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Quantity: req.Quantity,
	}
	if err := h.DB.WithContext(ctx).Create(&sweet).Error; err != nil {
		l.Error("sweet_create_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create sweet")
	}

	h.publish(c, map[string]any{
		"type":    "sweet_created",
		"sweetID": sweet.ID,
		"name":    sweet.Name,
	})

	l.Info("sweet_create_success", "sweet_id", sweet.ID)
	return c.JSON(http.StatusOK, sweet)
}

func (h *SweetHandler) ListSweets(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet_list")

	var sweets []models.Sweet
	if err := h.DB.WithContext(ctx).Order("id ASC").Find(&sweets).Error; err != nil {
		l.Error("sweet_list_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list sweets")
	}

	return c.JSON(http.StatusOK, sweets)
}

func (h *SweetHandler) SearchSweets(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet_search")

	query := h.DB.WithContext(ctx).Model(&models.Sweet{})

	if name := c.QueryParam("name"); name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}
	if category := c.QueryParam("category"); category != "" {
		query = query.Where("category LIKE ?", "%"+category+"%")
	}
	if minPrice := c.QueryParam("min_price"); minPrice != "" {
		if v, err := strconv.ParseFloat(minPrice, 64); err == nil {
			query = query.Where("price >= ?", v)
		}
	}
	if maxPrice := c.QueryParam("max_price"); maxPrice != "" {
		if v, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			query = query.Where("price <= ?", v)
		}
	}

	var sweets []models.Sweet
	if err := query.Order("id ASC").Find(&sweets).Error; err != nil {
		l.Error("sweet_search_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot search sweets")
	}

	return c.JSON(http.StatusOK, sweets)
}

func (h *SweetHandler) UpdateSweet(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet_update")

	id, err := sweetID(c)
	if err != nil {
		l.Warn("sweet_update_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req transport.SweetRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("sweet_update_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.Validate(); err != nil {
		l.Warn("sweet_update_failed", "status", 400, "reason", "validation", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sweet, err := h.findSweet(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("sweet_update_failed", "status", 404, "reason", "not found")
			return echo.NewHTTPError(http.StatusNotFound, "sweet not found")
		}
		l.Error("sweet_update_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load sweet")
	}

	sweet.Name = req.Name
	sweet.Category = req.Category
	sweet.Price = req.Price
	sweet.Quantity = req.Quantity

	if err := h.DB.WithContext(ctx).Save(sweet).Error; err != nil {
		l.Error("sweet_update_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update sweet")
	}

	h.publish(c, map[string]any{
		"type":    "sweet_updated",
		"sweetID": sweet.ID,
		"name":    sweet.Name,
	})

	l.Info("sweet_update_success", "sweet_id", sweet.ID)
	return c.JSON(http.StatusOK, sweet)
}

func (h *SweetHandler) DeleteSweet(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet_delete")

	id, err := sweetID(c)
	if err != nil {
		l.Warn("sweet_delete_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sweet, err := h.findSweet(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("sweet_delete_failed", "status", 404, "reason", "not found")
			return echo.NewHTTPError(http.StatusNotFound, "sweet not found")
		}
		l.Error("sweet_delete_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load sweet")
	}

	if err := h.DB.WithContext(ctx).Delete(sweet).Error; err != nil {
		l.Error("sweet_delete_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete sweet")
	}

	h.publish(c, map[string]any{
		"type":    "sweet_deleted",
		"sweetID": sweet.ID,
	})

	l.Info("sweet_delete_success", "sweet_id", sweet.ID)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Sweet deleted"})
}

func (h *SweetHandler) PurchaseSweet(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet_purchase")

	id, err := sweetID(c)
	if err != nil {
		l.Warn("sweet_purchase_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sweet, err := h.findSweet(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("sweet_purchase_failed", "status", 404, "reason", "not found")
			return echo.NewHTTPError(http.StatusNotFound, "sweet not found")
		}
		l.Error("sweet_purchase_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load sweet")
	}

	if sweet.Quantity <= 0 {
		l.Warn("sweet_purchase_failed", "status", 400, "reason", "out of stock")
		return echo.NewHTTPError(http.StatusBadRequest, "out of stock")
	}

	sweet.Quantity--
	if err := h.DB.WithContext(ctx).Save(sweet).Error; err != nil {
		l.Error("sweet_purchase_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update sweet")
	}

	h.publish(c, map[string]any{
		"type":     "sweet_purchased",
		"sweetID":  sweet.ID,
		"quantity": sweet.Quantity,
	})

	l.Info("sweet_purchase_success", "sweet_id", sweet.ID, "quantity", sweet.Quantity)
	return c.JSON(http.StatusOK, sweet)
}

func (h *SweetHandler) RestockSweet(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweet_restock")

	id, err := sweetID(c)
	if err != nil {
		l.Warn("sweet_restock_failed", "status", 400, "reason", "bad id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	amount := util.ParseIntDefault(c.QueryParam("amount"), 1)
	if amount < 1 {
		l.Warn("sweet_restock_failed", "status", 400, "reason", "bad amount")
		return echo.NewHTTPError(http.StatusBadRequest, "amount must be positive")
	}

	sweet, err := h.findSweet(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("sweet_restock_failed", "status", 404, "reason", "not found")
			return echo.NewHTTPError(http.StatusNotFound, "sweet not found")
		}
		l.Error("sweet_restock_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load sweet")
	}

	sweet.Quantity += amount
	if err := h.DB.WithContext(ctx).Save(sweet).Error; err != nil {
		l.Error("sweet_restock_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update sweet")
	}

	h.publish(c, map[string]any{
		"type":     "sweet_restocked",
		"sweetID":  sweet.ID,
		"amount":   amount,
		"quantity": sweet.Quantity,
	})

	l.Info("sweet_restock_success", "sweet_id", sweet.ID, "quantity", sweet.Quantity)
	return c.JSON(http.StatusOK, sweet)
}
