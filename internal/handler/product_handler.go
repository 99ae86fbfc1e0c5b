package handler

import (
	"errors"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marcwilliam910/scm/internal/domain"
	"github.com/marcwilliam910/scm/internal/middleware"
	"github.com/marcwilliam910/scm/internal/repository"
	"github.com/marcwilliam910/scm/internal/service"
	"github.com/marcwilliam910/scm/pkg/log"
	"github.com/marcwilliam910/scm/pkg/response"
)

const defaultPageSize = 10

// productForm is the multipart body of create/update requests.
type productForm struct {
	Name           string    `form:"name"`
	Price          float64   `form:"price"`
	PurchasingDate time.Time `form:"purchasingDate" time_format:"2006-01-02"`
	Category       string    `form:"category"`
	Description    string    `form:"description"`
	Thumbnail      string    `form:"thumbnail"`
}

// ProductHandler handles product listing HTTP requests.
type ProductHandler struct {
	productService service.ProductService
	authMiddleware *middleware.AuthMiddleware
}

// NewProductHandler creates a new product handler.
func NewProductHandler(productService service.ProductService, authMiddleware *middleware.AuthMiddleware) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *ProductHandler) RegisterRoutes(r *gin.Engine) {
	products := r.Group("/product", h.authMiddleware.RequireAuth())
	{
		products.POST("/list", h.Create)
		products.PATCH("/:id", h.Update)
		products.DELETE("/:id", h.Delete)
		products.DELETE("/image/:productId/:imageId", h.DeleteImage)
		products.GET("/detail/:id", h.Detail)
		products.GET("/by-category/:category", h.ByCategory)
		products.GET("/latest", h.Latest)
		products.GET("/listings", h.Listings)
		products.GET("/search", h.Search)
	}
}

// Create lists a new product with up to five images.
func (h *ProductHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var form productForm
	if err := c.ShouldBind(&form); err != nil {
		l.Warn().Err(err).Msg("invalid product form")
		response.BadRequest(c, err.Error())
		return
	}

	view, err := h.productService.Create(ctx, middleware.GetProfile(c), form.input(), formImages(c))
	if err != nil {
		h.writeProductError(c, err, "create product")
		return
	}

	response.Created(c, gin.H{"product": view})
}

// Update patches a product's fields and appends new images.
func (h *ProductHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	var form productForm
	if err := c.ShouldBind(&form); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile := middleware.GetProfile(c)
	product, err := h.productService.Update(ctx, profile.ID, c.Param("id"), form.input(), formImages(c))
	if err != nil {
		h.writeProductError(c, err, "update product")
		return
	}

	response.OK(c, gin.H{"product": product.ToView(profile.ToPublic())})
}

// Delete removes a product and its stored images.
func (h *ProductHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.productService.Delete(ctx, middleware.GetUserID(c), c.Param("id")); err != nil {
		h.writeProductError(c, err, "delete product")
		return
	}

	response.Message(c, "product deleted")
}

// DeleteImage removes a single product image.
func (h *ProductHandler) DeleteImage(c *gin.Context) {
	ctx := c.Request.Context()

	profile := middleware.GetProfile(c)
	product, err := h.productService.DeleteImage(ctx, profile.ID, c.Param("productId"), c.Param("imageId"))
	if err != nil {
		h.writeProductError(c, err, "delete product image")
		return
	}

	response.OK(c, gin.H{"product": product.ToView(profile.ToPublic())})
}

// Detail returns a single product with its seller resolved.
func (h *ProductHandler) Detail(c *gin.Context) {
	ctx := c.Request.Context()

	view, err := h.productService.Detail(ctx, c.Param("id"))
	if err != nil {
		h.writeProductError(c, err, "product detail")
		return
	}

	response.OK(c, gin.H{"product": view})
}

// ByCategory pages through a category's products, newest first.
func (h *ProductHandler) ByCategory(c *gin.Context) {
	ctx := c.Request.Context()

	views, err := h.productService.ByCategory(ctx, c.Param("category"), pageNo(c), defaultPageSize)
	if err != nil {
		h.writeProductError(c, err, "products by category")
		return
	}

	response.OK(c, gin.H{"products": views})
}

// Latest pages through all products, newest first.
func (h *ProductHandler) Latest(c *gin.Context) {
	ctx := c.Request.Context()

	views, err := h.productService.Latest(ctx, pageNo(c), defaultPageSize)
	if err != nil {
		h.writeProductError(c, err, "latest products")
		return
	}

	response.OK(c, gin.H{"products": views})
}

// Listings pages through the authenticated user's own products.
func (h *ProductHandler) Listings(c *gin.Context) {
	ctx := c.Request.Context()

	views, err := h.productService.Listings(ctx, middleware.GetProfile(c), pageNo(c), defaultPageSize)
	if err != nil {
		h.writeProductError(c, err, "product listings")
		return
	}

	response.OK(c, gin.H{"products": views})
}

// Search matches product names against the query string.
func (h *ProductHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	views, err := h.productService.Search(ctx, c.Query("query"))
	if err != nil {
		h.writeProductError(c, err, "product search")
		return
	}

	response.OK(c, gin.H{"results": views})
}

func (h *ProductHandler) writeProductError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, service.ErrInvalidID):
		response.BadRequest(c, "invalid id")
	case errors.Is(err, service.ErrInvalidReference):
		response.BadRequest(c, "invalid category")
	case errors.Is(err, service.ErrInvalidImage):
		response.BadRequest(c, "files must be images")
	case errors.Is(err, service.ErrTooManyImages):
		response.BadRequest(c, "a product can have at most 5 images")
	case errors.Is(err, repository.ErrProductNotFound):
		response.NotFound(c, "product not found")
	default:
		log.Ctx(c.Request.Context()).Error().Err(err).Str("op", op).Msg("product operation failed")
		response.InternalError(c, "something went wrong")
	}
}

func (f productForm) input() domain.ProductInput {
	return domain.ProductInput{
		Name:           f.Name,
		Price:          f.Price,
		PurchasingDate: f.PurchasingDate,
		Category:       f.Category,
		Description:    f.Description,
		Thumbnail:      f.Thumbnail,
	}
}

// formImages collects the multipart image files, if any.
func formImages(c *gin.Context) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	return form.File["images"]
}

func pageNo(c *gin.Context) int64 {
	page, err := strconv.ParseInt(c.DefaultQuery("pageNo", "1"), 10, 64)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
