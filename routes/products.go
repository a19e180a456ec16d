package routes

import (
	"errors"

	"beststore/models"
	"beststore/services"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const listPath = "/products"

type ProductHandler struct {
	service   *services.ProductService
	openImage func(c *fiber.Ctx) (*models.ImageFile, func(), error)
}

func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{service: service, openImage: formImage}
}

func SetupRoutes(app *fiber.App, h *ProductHandler) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(listPath, fiber.StatusSeeOther)
	})

	// Product routes
	products := app.Group("/products")
	products.Get("/", h.List)
	products.Get("/create", h.ShowCreate)
	products.Post("/create", h.Create)
	products.Get("/edit", h.ShowEdit)
	products.Post("/edit", h.Update)
	products.Get("/delete", h.Delete)
}

// List - GET /products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.Render("products/index", fiber.Map{
		"Title":    "Products",
		"Products": products,
	}, "layouts/main")
}

// ShowCreate - GET /products/create
func (h *ProductHandler) ShowCreate(c *fiber.Ctx) error {
	return h.renderCreate(c, models.ProductDto{}, nil)
}

// Create - POST /products/create
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var dto models.ProductDto
	if err := c.BodyParser(&dto); err != nil {
		return h.renderCreate(c, dto, services.FieldErrors{services.FieldForm: "Failed to parse the form"})
	}

	image, closeImage, err := h.openImage(c)
	defer closeImage()
	if err != nil {
		zap.L().Warn("failed to open uploaded image", zap.Error(err))
		return h.renderCreate(c, dto, services.FieldErrors{services.FieldImage: services.MsgImageSaveFailed})
	}
	dto.ImageFile = image

	res := h.service.Create(c.UserContext(), &dto)
	if res.Status != services.StatusDone {
		return h.renderCreate(c, dto, res.Errors)
	}
	return c.Redirect(listPath, fiber.StatusSeeOther)
}

// ShowEdit - GET /products/edit?id=
func (h *ProductHandler) ShowEdit(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return c.Redirect(listPath, fiber.StatusSeeOther)
	}

	product, found, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		zap.L().Warn("edit page: lookup failed", zap.Uint("id", id), zap.Error(err))
		return c.Redirect(listPath, fiber.StatusSeeOther)
	}
	if !found {
		return c.Redirect(listPath, fiber.StatusSeeOther)
	}
	return h.renderEdit(c, product, models.NewProductDto(product), nil)
}

// Update - POST /products/edit?id=
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, ok := productID(c)
	if !ok {
		return c.Redirect(listPath, fiber.StatusSeeOther)
	}

	var dto models.ProductDto
	if err := c.BodyParser(&dto); err != nil {
		zap.L().Warn("edit: failed to parse form", zap.Uint("id", id), zap.Error(err))
		return c.Redirect(listPath, fiber.StatusSeeOther)
	}

	image, closeImage, err := h.openImage(c)
	defer closeImage()
	if err != nil {
		zap.L().Warn("failed to open uploaded image", zap.Uint("id", id), zap.Error(err))
		product, found, lookupErr := h.service.Get(c.UserContext(), id)
		if lookupErr != nil || !found {
			return c.Redirect(listPath, fiber.StatusSeeOther)
		}
		return h.renderEdit(c, product, dto, services.FieldErrors{services.FieldImage: services.MsgImageSaveFailed})
	}
	dto.ImageFile = image

	res := h.service.Edit(c.UserContext(), id, &dto)
	if res.Status == services.StatusInvalid {
		return h.renderEdit(c, res.Product, dto, res.Errors)
	}
	return c.Redirect(listPath, fiber.StatusSeeOther)
}

// Delete - GET /products/delete?id=
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	if id, ok := productID(c); ok {
		h.service.Delete(c.UserContext(), id)
	}
	return c.Redirect(listPath, fiber.StatusSeeOther)
}

func (h *ProductHandler) renderCreate(c *fiber.Ctx, dto models.ProductDto, errs services.FieldErrors) error {
	return c.Render("products/create", fiber.Map{
		"Title":  "New Product",
		"Dto":    dto,
		"Errors": errs,
	}, "layouts/main")
}

func (h *ProductHandler) renderEdit(c *fiber.Ctx, product models.Product, dto models.ProductDto, errs services.FieldErrors) error {
	return c.Render("products/edit", fiber.Map{
		"Title":   "Edit Product",
		"Product": product,
		"Dto":     dto,
		"Errors":  errs,
	}, "layouts/main")
}

func productID(c *fiber.Ctx) (uint, bool) {
	id := c.QueryInt("id", 0)
	if id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// formImage opens the optional imageFile part. The returned close func is
// always safe to call.
func formImage(c *fiber.Ctx) (*models.ImageFile, func(), error) {
	noop := func() {}

	fh, err := c.FormFile("imageFile")
	if err != nil {
		// a missing part is not an error
		if isMissingFile(err) {
			return nil, noop, nil
		}
		return nil, noop, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return &models.ImageFile{
		Filename: fh.Filename,
		Size:     fh.Size,
		Content:  f,
	}, func() { f.Close() }, nil
}

func isMissingFile(err error) bool {
	return errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm)
}
