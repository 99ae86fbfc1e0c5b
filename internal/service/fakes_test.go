package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/marcwilliam910/scm/internal/domain"
	"github.com/marcwilliam910/scm/internal/repository"
	"github.com/marcwilliam910/scm/internal/storage"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	user.ID = primitive.NewObjectID()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) SetVerified(ctx context.Context, id primitive.ObjectID) error {
	return r.update(id, func(u *domain.User) { u.Verified = true })
}

func (r *fakeUserRepo) UpdateName(ctx context.Context, id primitive.ObjectID, name string) error {
	return r.update(id, func(u *domain.User) { u.Name = name })
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id primitive.ObjectID, hashed string) error {
	return r.update(id, func(u *domain.User) { u.Password = hashed })
}

func (r *fakeUserRepo) UpdateAvatar(ctx context.Context, id primitive.ObjectID, avatar *domain.Avatar) error {
	return r.update(id, func(u *domain.User) { u.Avatar = avatar })
}

func (r *fakeUserRepo) AddRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	return r.update(id, func(u *domain.User) { u.Tokens = append(u.Tokens, token) })
}

func (r *fakeUserRepo) RemoveRefreshToken(ctx context.Context, id primitive.ObjectID, token string) (bool, error) {
	removed := false
	err := r.update(id, func(u *domain.User) {
		kept := u.Tokens[:0]
		for _, t := range u.Tokens {
			if t == token {
				removed = true
				continue
			}
			kept = append(kept, t)
		}
		u.Tokens = kept
	})
	return removed, err
}

func (r *fakeUserRepo) HasRefreshToken(ctx context.Context, id primitive.ObjectID, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return false, repository.ErrUserNotFound
	}
	for _, t := range u.Tokens {
		if t == token {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) ClearRefreshTokens(ctx context.Context, id primitive.ObjectID) error {
	return r.update(id, func(u *domain.User) { u.Tokens = nil })
}

func (r *fakeUserRepo) update(id primitive.ObjectID, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(u)
	return nil
}

// fakeConversationRepo is an in-memory ConversationRepository.
type fakeConversationRepo struct {
	mu    sync.Mutex
	convs map[primitive.ObjectID]*domain.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{convs: make(map[primitive.ObjectID]*domain.Conversation)}
}

func (r *fakeConversationRepo) GetOrCreate(ctx context.Context, a, b primitive.ObjectID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := domain.ParticipantsKey(a.Hex(), b.Hex())
	for _, c := range r.convs {
		if c.ParticipantsKey == key {
			copied := *c
			return &copied, nil
		}
	}
	now := time.Now().UTC()
	conv := &domain.Conversation{
		ID:              primitive.NewObjectID(),
		Participants:    []primitive.ObjectID{a, b},
		ParticipantsKey: key,
		Chats:           []domain.Message{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.convs[conv.ID] = conv
	copied := *conv
	return &copied, nil
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[id]; ok {
		copied := *c
		copied.Chats = append([]domain.Message(nil), c.Chats...)
		return &copied, nil
	}
	return nil, repository.ErrConversationNotFound
}

func (r *fakeConversationRepo) AppendMessage(ctx context.Context, id, sender primitive.ObjectID, text string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok || !c.HasParticipant(sender) {
		return nil, repository.ErrConversationNotFound
	}
	msg := domain.Message{
		ID:        primitive.NewObjectID(),
		SentBy:    sender,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	c.Chats = append(c.Chats, msg)
	c.UpdatedAt = msg.CreatedAt
	return &msg, nil
}

func (r *fakeConversationRepo) ListForUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Conversation
	for _, c := range r.convs {
		if c.HasParticipant(userID) {
			copied := *c
			copied.Chats = append([]domain.Message(nil), c.Chats...)
			out = append(out, copied)
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) MarkViewed(ctx context.Context, id, viewer primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return 0, repository.ErrConversationNotFound
	}
	var updated int64
	for i := range c.Chats {
		if !c.Chats[i].Viewed && c.Chats[i].SentBy != viewer {
			c.Chats[i].Viewed = true
			updated++
		}
	}
	return updated, nil
}

// fakeProductRepo is an in-memory ProductRepository.
type fakeProductRepo struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*domain.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[primitive.ObjectID]*domain.Product)}
}

func (r *fakeProductRepo) Create(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	product.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	copied := *product
	r.products[product.ID] = &copied
	return nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyOf(id)
}

func (r *fakeProductRepo) Update(ctx context.Context, id, owner primitive.ObjectID, in domain.ProductInput) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.owned(id, owner)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		p.Name = in.Name
	}
	if in.Price != 0 {
		p.Price = in.Price
	}
	if !in.PurchasingDate.IsZero() {
		p.PurchasingDate = in.PurchasingDate
	}
	if in.Category != "" {
		p.Category = in.Category
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Thumbnail != "" {
		p.Thumbnail = in.Thumbnail
	}
	p.UpdatedAt = time.Now().UTC()
	return r.copyOf(id)
}

func (r *fakeProductRepo) AddImages(ctx context.Context, id, owner primitive.ObjectID, images []domain.ProductImage, thumbnail string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.owned(id, owner)
	if err != nil {
		return nil, err
	}
	p.Images = append(p.Images, images...)
	if thumbnail != "" {
		p.Thumbnail = thumbnail
	}
	return r.copyOf(id)
}

func (r *fakeProductRepo) RemoveImage(ctx context.Context, id, owner primitive.ObjectID, imageID string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.owned(id, owner)
	if err != nil {
		return nil, err
	}
	kept := p.Images[:0]
	for _, img := range p.Images {
		if img.ID != imageID {
			kept = append(kept, img)
		}
	}
	p.Images = kept
	return r.copyOf(id)
}

func (r *fakeProductRepo) SetThumbnail(ctx context.Context, id primitive.ObjectID, thumbnail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Thumbnail = thumbnail
	return nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id, owner primitive.ObjectID) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.owned(id, owner)
	if err != nil {
		return nil, err
	}
	copied := *p
	delete(r.products, id)
	return &copied, nil
}

func (r *fakeProductRepo) ListByCategory(ctx context.Context, category string, page, limit int64) ([]domain.Product, error) {
	return r.list(func(p *domain.Product) bool { return p.Category == category }), nil
}

func (r *fakeProductRepo) ListLatest(ctx context.Context, page, limit int64) ([]domain.Product, error) {
	return r.list(func(*domain.Product) bool { return true }), nil
}

func (r *fakeProductRepo) ListByOwner(ctx context.Context, owner primitive.ObjectID, page, limit int64) ([]domain.Product, error) {
	return r.list(func(p *domain.Product) bool { return p.Owner == owner }), nil
}

func (r *fakeProductRepo) Search(ctx context.Context, query string) ([]domain.Product, error) {
	q := strings.ToLower(query)
	return r.list(func(p *domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q)
	}), nil
}

func (r *fakeProductRepo) list(match func(*domain.Product) bool) []domain.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Product
	for _, p := range r.products {
		if match(p) {
			copied := *p
			copied.Images = append([]domain.ProductImage(nil), p.Images...)
			out = append(out, copied)
		}
	}
	return out
}

func (r *fakeProductRepo) owned(id, owner primitive.ObjectID) (*domain.Product, error) {
	p, ok := r.products[id]
	if !ok || p.Owner != owner {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (r *fakeProductRepo) copyOf(id primitive.ObjectID) (*domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	copied.Images = append([]domain.ProductImage(nil), p.Images...)
	return &copied, nil
}

// fakeTokenStore is an in-memory TokenStore.
type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]string)}
}

func (s *fakeTokenStore) Save(ctx context.Context, kind, userID, hashedToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[kind+":"+userID] = hashedToken
	return nil
}

func (s *fakeTokenStore) Get(ctx context.Context, kind, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.tokens[kind+":"+userID]; ok {
		return h, nil
	}
	return "", repository.ErrTokenNotFound
}

func (s *fakeTokenStore) Delete(ctx context.Context, kind, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, kind+":"+userID)
	return nil
}

// fakeStorage records uploaded and deleted objects.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*storage.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return &storage.Object{URL: "http://files.test/" + key, Key: key}, nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

// fakeMailer records sent mail.
type fakeMailer struct {
	mu            sync.Mutex
	verifications []string
	resets        []string
	confirmations []string
	lastLink      string
}

func (m *fakeMailer) SendEmailVerification(ctx context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, email)
	m.lastLink = link
	return nil
}

func (m *fakeMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, email)
	m.lastLink = link
	return nil
}

func (m *fakeMailer) SendPasswordResetSuccess(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations = append(m.confirmations, email)
	return nil
}
