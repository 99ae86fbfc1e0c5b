package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marcwilliam910/scm/internal/domain"
	"github.com/marcwilliam910/scm/internal/repository"
	"github.com/marcwilliam910/scm/internal/storage"
	"github.com/marcwilliam910/scm/pkg/log"
)

// maxProductImages caps the number of images per listing.
const maxProductImages = 5

type productService struct {
	products repository.ProductRepository
	users    repository.UserRepository
	storage  storage.Storage
}

// NewProductService creates a new product service.
func NewProductService(products repository.ProductRepository, users repository.UserRepository, st storage.Storage) ProductService {
	return &productService{products: products, users: users, storage: st}
}

func (s *productService) Create(ctx context.Context, seller domain.Profile, in domain.ProductInput, images []*multipart.FileHeader) (*domain.ProductView, error) {
	ownerID, err := primitive.ObjectIDFromHex(seller.ID)
	if err != nil {
		return nil, ErrInvalidID
	}
	if !domain.ValidCategory(in.Category) {
		return nil, ErrInvalidReference
	}
	if len(images) > maxProductImages {
		return nil, ErrTooManyImages
	}

	uploaded, err := s.uploadImages(ctx, images)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{
		Owner:          ownerID,
		Name:           in.Name,
		Price:          in.Price,
		PurchasingDate: in.PurchasingDate,
		Category:       in.Category,
		Description:    in.Description,
		Images:         uploaded,
	}
	if len(uploaded) > 0 {
		product.Thumbnail = uploaded[0].URL
	}

	if err := s.products.Create(ctx, product); err != nil {
		s.deleteImages(ctx, uploaded)
		return nil, err
	}

	view := product.ToView(seller.ToPublic())
	return &view, nil
}

func (s *productService) Update(ctx context.Context, sellerID, productID string, in domain.ProductInput, images []*multipart.FileHeader) (*domain.Product, error) {
	ownerID, pid, err := parsePair(sellerID, productID)
	if err != nil {
		return nil, err
	}
	if in.Category != "" && !domain.ValidCategory(in.Category) {
		return nil, ErrInvalidReference
	}

	product, err := s.products.Update(ctx, pid, ownerID, in)
	if err != nil {
		return nil, err
	}

	if len(images) == 0 {
		return product, nil
	}
	if len(product.Images)+len(images) > maxProductImages {
		return nil, ErrTooManyImages
	}

	uploaded, err := s.uploadImages(ctx, images)
	if err != nil {
		return nil, err
	}

	// First image ever uploaded becomes the thumbnail.
	thumbnail := ""
	if product.Thumbnail == "" {
		thumbnail = uploaded[0].URL
	}

	product, err = s.products.AddImages(ctx, pid, ownerID, uploaded, thumbnail)
	if err != nil {
		s.deleteImages(ctx, uploaded)
		return nil, err
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, sellerID, productID string) error {
	ownerID, pid, err := parsePair(sellerID, productID)
	if err != nil {
		return err
	}

	product, err := s.products.Delete(ctx, pid, ownerID)
	if err != nil {
		return err
	}

	s.deleteImages(ctx, product.Images)
	return nil
}

// DeleteImage removes one image and heals the thumbnail if the removed
// image was backing it.
func (s *productService) DeleteImage(ctx context.Context, sellerID, productID, imageID string) (*domain.Product, error) {
	ownerID, pid, err := parsePair(sellerID, productID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.RemoveImage(ctx, pid, ownerID, imageID)
	if err != nil {
		return nil, err
	}

	if err := s.storage.Delete(ctx, imageID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", imageID).Msg("failed to delete product image")
	}

	thumbnailStale := true
	for _, img := range product.Images {
		if img.URL == product.Thumbnail {
			thumbnailStale = false
			break
		}
	}
	if thumbnailStale {
		thumbnail := ""
		if len(product.Images) > 0 {
			thumbnail = product.Images[0].URL
		}
		if err := s.products.SetThumbnail(ctx, pid, thumbnail); err != nil {
			return nil, err
		}
		product.Thumbnail = thumbnail
	}

	return product, nil
}

func (s *productService) Detail(ctx context.Context, productID string) (*domain.ProductView, error) {
	pid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, ErrInvalidID
	}

	product, err := s.products.GetByID(ctx, pid)
	if err != nil {
		return nil, err
	}

	view := product.ToView(s.sellerProfile(ctx, product.Owner))
	return &view, nil
}

func (s *productService) ByCategory(ctx context.Context, category string, page, limit int64) ([]domain.ProductView, error) {
	if !domain.ValidCategory(category) {
		return nil, ErrInvalidReference
	}
	products, err := s.products.ListByCategory(ctx, category, page, limit)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, products), nil
}

func (s *productService) Latest(ctx context.Context, page, limit int64) ([]domain.ProductView, error) {
	products, err := s.products.ListLatest(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, products), nil
}

func (s *productService) Listings(ctx context.Context, seller domain.Profile, page, limit int64) ([]domain.ProductView, error) {
	ownerID, err := primitive.ObjectIDFromHex(seller.ID)
	if err != nil {
		return nil, ErrInvalidID
	}
	products, err := s.products.ListByOwner(ctx, ownerID, page, limit)
	if err != nil {
		return nil, err
	}

	profile := seller.ToPublic()
	views := make([]domain.ProductView, 0, len(products))
	for i := range products {
		views = append(views, products[i].ToView(profile))
	}
	return views, nil
}

func (s *productService) Search(ctx context.Context, query string) ([]domain.ProductView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.ProductView{}, nil
	}
	products, err := s.products.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, products), nil
}

// uploadImages validates and stores a batch of image files. On partial
// failure the already-uploaded objects are removed.
func (s *productService) uploadImages(ctx context.Context, files []*multipart.FileHeader) ([]domain.ProductImage, error) {
	for _, file := range files {
		if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
			return nil, ErrInvalidImage
		}
	}

	uploaded := make([]domain.ProductImage, 0, len(files))
	for _, file := range files {
		src, err := file.Open()
		if err != nil {
			s.deleteImages(ctx, uploaded)
			return nil, err
		}

		key := "products/" + uuid.New().String()
		obj, err := s.storage.Upload(ctx, key, src, file.Size, file.Header.Get("Content-Type"))
		src.Close()
		if err != nil {
			s.deleteImages(ctx, uploaded)
			return nil, err
		}

		uploaded = append(uploaded, domain.ProductImage{URL: obj.URL, ID: obj.Key})
	}
	return uploaded, nil
}

// deleteImages removes stored objects on a best-effort basis.
func (s *productService) deleteImages(ctx context.Context, images []domain.ProductImage) {
	for _, img := range images {
		if err := s.storage.Delete(ctx, img.ID); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", img.ID).Msg("failed to delete product image")
		}
	}
}

// sellerProfile resolves an owner id to its public profile. A missing
// owner yields a profile with only the id set.
func (s *productService) sellerProfile(ctx context.Context, owner primitive.ObjectID) domain.PublicProfile {
	user, err := s.users.GetByID(ctx, owner)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			log.Ctx(ctx).Warn().Err(err).Str(log.FieldUserID, owner.Hex()).Msg("failed to resolve seller")
		}
		return domain.PublicProfile{ID: owner.Hex()}
	}
	return user.ToPublicProfile()
}

func (s *productService) toViews(ctx context.Context, products []domain.Product) []domain.ProductView {
	// Resolve each distinct seller once per request.
	profiles := make(map[primitive.ObjectID]domain.PublicProfile)
	views := make([]domain.ProductView, 0, len(products))
	for i := range products {
		profile, ok := profiles[products[i].Owner]
		if !ok {
			profile = s.sellerProfile(ctx, products[i].Owner)
			profiles[products[i].Owner] = profile
		}
		views = append(views, products[i].ToView(profile))
	}
	return views
}

func parsePair(sellerID, productID string) (owner, product primitive.ObjectID, err error) {
	owner, err = primitive.ObjectIDFromHex(sellerID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, ErrInvalidID
	}
	product, err = primitive.ObjectIDFromHex(productID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, ErrInvalidID
	}
	return owner, product, nil
}
