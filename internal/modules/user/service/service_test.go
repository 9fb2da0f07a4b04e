package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"skillbridge.io/marketplace/internal/entity"
	notifService "skillbridge.io/marketplace/internal/modules/notification/service"
	"skillbridge.io/marketplace/internal/modules/user/dto"
	"skillbridge.io/marketplace/pkg/apperror"
	commonDto "skillbridge.io/marketplace/pkg/dto"
	"skillbridge.io/marketplace/pkg/logger"
	"skillbridge.io/marketplace/pkg/token"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*entity.User
	touched map[uuid.UUID]time.Time
	filter  dto.FreelancerFilter
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[uuid.UUID]*entity.User), touched: make(map[uuid.UUID]time.Time)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	stored := *u
	f.byID[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *u
	f.byID[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) TouchLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[id] = at
	return nil
}

func (f *fakeUserRepo) SearchFreelancers(_ context.Context, filter dto.FreelancerFilter) ([]*entity.User, int64, error) {
	f.filter = filter
	return []*entity.User{}, 0, nil
}

type capturedNotifier struct {
	msgs []notifService.Message
}

func (c *capturedNotifier) Notify(msg notifService.Message) { c.msgs = append(c.msgs, msg) }

func newAuth(repo *fakeUserRepo, notifier notifService.Notifier) *authService {
	return &authService{
		repo:     repo,
		tokens:   token.NewManager("test-secret", time.Hour),
		notifier: notifier,
		log:      logger.Discard(),
		cost:     bcrypt.MinCost,
		now:      func() time.Time { return time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC) },
	}
}

func TestRegister(t *testing.T) {
	repo := newFakeUserRepo()
	notifier := &capturedNotifier{}
	svc := newAuth(repo, notifier)

	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name:     " Ada ",
		Email:    "Ada@Example.COM",
		Password: "secret123",
		UserType: "freelancer",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, "Ada", resp.User.Name)

	profile, ok := resp.User.Profile.(*entity.FreelancerProfile)
	require.True(t, ok, "got %T", resp.User.Profile)
	assert.Equal(t, "available", profile.Availability)

	stored, err := repo.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))

	require.Len(t, notifier.msgs, 1)
	assert.Equal(t, entity.NotificationWelcome, notifier.msgs[0].Type)
	assert.Equal(t, stored.ID, notifier.msgs[0].RecipientID)

	claims, err := svc.tokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID.String(), claims.UserID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuth(repo, nil)
	req := dto.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret123", UserType: "client"}

	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	req.Email = "ADA@example.com"
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuth(repo, nil)
	_, err := svc.Register(context.Background(), dto.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret123", UserType: "client"})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Email: " ADA@example.com", Password: "secret123", UserType: "client"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	id := uuid.MustParse(resp.User.ID)
	assert.Equal(t, svc.now(), repo.touched[id])
}

func TestLogin_GenericFailure(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuth(repo, nil)
	_, err := svc.Register(context.Background(), dto.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret123", UserType: "client"})
	require.NoError(t, err)

	attempts := []dto.LoginRequest{
		{Email: "nobody@example.com", Password: "secret123", UserType: "client"},
		{Email: "ada@example.com", Password: "secret123", UserType: "freelancer"},
		{Email: "ada@example.com", Password: "wrong-password", UserType: "client"},
	}
	for _, attempt := range attempts {
		_, err := svc.Login(context.Background(), attempt)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
		assert.Equal(t, "invalid credentials", err.Error())
	}
}

func TestMe_Missing(t *testing.T) {
	_, err := newAuth(newFakeUserRepo(), nil).Me(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func seedUser(t *testing.T, repo *fakeUserRepo, role entity.Role) *entity.User {
	t.Helper()
	u := &entity.User{ID: uuid.New(), Name: "user", Email: uuid.NewString() + "@example.com", Role: role}
	require.NoError(t, u.SetProfile(entity.DefaultProfile(role)))
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func ptr[T any](v T) *T { return &v }

func TestUpdateProfile_Freelancer(t *testing.T) {
	repo := newFakeUserRepo()
	u := seedUser(t, repo, entity.RoleFreelancer)
	svc := NewProfileService(repo, nil, logger.Discard())

	resp, err := svc.UpdateProfile(context.Background(), u.ID, dto.UpdateProfileRequest{
		Skills:     ptr([]string{" go ", "react", "go", ""}),
		HourlyRate: ptr(45),
		Location:   ptr(" Lisbon "),
	})
	require.NoError(t, err)

	profile := resp.Profile.(*entity.FreelancerProfile)
	assert.Equal(t, []string{"go", "react"}, profile.Skills)
	assert.Equal(t, 45, profile.HourlyRate)
	assert.Equal(t, "Lisbon", profile.Location)

	_, err = svc.UpdateProfile(context.Background(), u.ID, dto.UpdateProfileRequest{Company: ptr("Acme")})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestUpdateProfile_ClientRejectsFreelancerFields(t *testing.T) {
	repo := newFakeUserRepo()
	u := seedUser(t, repo, entity.RoleClient)
	svc := NewProfileService(repo, nil, logger.Discard())

	_, err := svc.UpdateProfile(context.Background(), u.ID, dto.UpdateProfileRequest{HourlyRate: ptr(10)})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	resp, err := svc.UpdateProfile(context.Background(), u.ID, dto.UpdateProfileRequest{Company: ptr(" Acme ")})
	require.NoError(t, err)
	assert.Equal(t, "Acme", resp.Profile.(*entity.ClientProfile).Company)
}

type fakeImages struct {
	uploaded []string
	deleted  []string
	failDel  bool
}

func (f *fakeImages) UploadImage(_ context.Context, r io.Reader, folder, name string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	url := "https://cdn.example.com/" + folder + "/" + name
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeImages) DeleteImage(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	if f.failDel {
		return errors.New("cdn unavailable")
	}
	return nil
}

func TestUploadAvatar_ReplacesPrevious(t *testing.T) {
	repo := newFakeUserRepo()
	u := seedUser(t, repo, entity.RoleFreelancer)
	images := &fakeImages{failDel: true}
	svc := NewProfileService(repo, images, logger.Discard())

	first, err := svc.UploadAvatar(context.Background(), u.ID, commonDto.UploadFile{FileName: "me.png", Reader: strings.NewReader("png")})
	require.NoError(t, err)
	require.NotNil(t, first.AvatarURL)

	second, err := svc.UploadAvatar(context.Background(), u.ID, commonDto.UploadFile{FileName: "me2.jpg", Reader: strings.NewReader("jpg")})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/me2.jpg", *second.AvatarURL)
	assert.Equal(t, []string{*first.AvatarURL}, images.deleted)
}

func TestUploadAvatar_Rejections(t *testing.T) {
	repo := newFakeUserRepo()
	u := seedUser(t, repo, entity.RoleClient)

	_, err := NewProfileService(repo, &fakeImages{}, logger.Discard()).
		UploadAvatar(context.Background(), u.ID, commonDto.UploadFile{FileName: "virus.exe", Reader: strings.NewReader("x")})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = NewProfileService(repo, nil, logger.Discard()).
		UploadAvatar(context.Background(), u.ID, commonDto.UploadFile{FileName: "me.png", Reader: strings.NewReader("x")})
	assert.Equal(t, 503, apperror.MapErrorToStatus(err))
}

func TestGetPublicProfile_HidesEmail(t *testing.T) {
	repo := newFakeUserRepo()
	u := seedUser(t, repo, entity.RoleFreelancer)

	profile, err := NewProfileService(repo, nil, logger.Discard()).GetPublicProfile(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), profile.ID)

	_, err = NewProfileService(repo, nil, logger.Discard()).GetPublicProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSearchFreelancers_RateRange(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewProfileService(repo, nil, logger.Discard())

	_, err := svc.SearchFreelancers(context.Background(), dto.FreelancerSearchQuery{MinRate: ptr(100), MaxRate: ptr(10)})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	resp, err := svc.SearchFreelancers(context.Background(), dto.FreelancerSearchQuery{Skills: "go, react"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, []string{"go", "react"}, repo.filter.Skills)
}
