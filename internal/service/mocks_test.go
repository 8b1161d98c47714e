package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/sakif/icon-gallery/internal/apperror"
	"github.com/sakif/icon-gallery/internal/model"
	"github.com/sakif/icon-gallery/internal/repository"
)

// Hand-written in-memory mocks for the repository interfaces and the
// content store. The services only see interfaces, so the tests exercise
// the business rules without SQLite or the filesystem. Each mock stores
// copies, never the caller's pointers, so tests can't interfere with one
// another through shared state.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ---- icon repository ----

type mockIconRepo struct {
	icons  map[string]*model.Icon
	nextID int

	// failCreate makes the next Create return this error once, for
	// simulating slug races and insert failures.
	failCreate error
}

func newMockIconRepo() *mockIconRepo {
	return &mockIconRepo{icons: make(map[string]*model.Icon)}
}

func (m *mockIconRepo) Create(_ context.Context, icon *model.Icon) error {
	if m.failCreate != nil {
		err := m.failCreate
		m.failCreate = nil
		return err
	}
	for _, existing := range m.icons {
		if existing.Slug == icon.Slug {
			return apperror.Conflict("icon slug already exists")
		}
	}
	m.nextID++
	icon.ID = fmt.Sprintf("icon-%d", m.nextID)
	stored := *icon
	m.icons[icon.ID] = &stored
	return nil
}

func (m *mockIconRepo) GetByID(_ context.Context, id string) (*model.Icon, error) {
	icon, ok := m.icons[id]
	if !ok {
		return nil, apperror.NotFound("icon", id)
	}
	result := *icon
	return &result, nil
}

func (m *mockIconRepo) GetBySlug(_ context.Context, slug string) (*model.Icon, error) {
	for _, icon := range m.icons {
		if icon.Slug == slug {
			result := *icon
			return &result, nil
		}
	}
	return nil, apperror.NotFound("icon", slug)
}

func (m *mockIconRepo) List(_ context.Context, filter repository.IconFilter) ([]model.Icon, error) {
	result := make([]model.Icon, 0, len(m.icons))
	for _, icon := range m.icons {
		if filter.ApprovedOnly && !icon.IsApproved {
			continue
		}
		if filter.UserID != "" && icon.UserID != filter.UserID {
			continue
		}
		if filter.Category != "" && icon.Category != filter.Category {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(icon.Name), needle) &&
				!strings.Contains(strings.ToLower(icon.Tags), needle) {
				continue
			}
		}
		result = append(result, *icon)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	if filter.Offset >= len(result) {
		return []model.Icon{}, nil
	}
	result = result[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *mockIconRepo) Update(_ context.Context, icon *model.Icon) error {
	if _, ok := m.icons[icon.ID]; !ok {
		return apperror.NotFound("icon", icon.ID)
	}
	stored := *icon
	m.icons[icon.ID] = &stored
	return nil
}

func (m *mockIconRepo) SetApproval(_ context.Context, id string, approved bool) error {
	icon, ok := m.icons[id]
	if !ok {
		return apperror.NotFound("icon", id)
	}
	icon.IsApproved = approved
	return nil
}

func (m *mockIconRepo) IncrementDownloads(_ context.Context, id string) error {
	icon, ok := m.icons[id]
	if !ok {
		return apperror.NotFound("icon", id)
	}
	icon.Downloads++
	return nil
}

func (m *mockIconRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.icons[id]; !ok {
		return apperror.NotFound("icon", id)
	}
	delete(m.icons, id)
	return nil
}

func (m *mockIconRepo) CountByCategory(_ context.Context, categorySlug string) (int64, error) {
	var n int64
	for _, icon := range m.icons {
		if icon.Category == categorySlug {
			n++
		}
	}
	return n, nil
}

func (m *mockIconRepo) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	for _, icon := range m.icons {
		if icon.Slug == slug && icon.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockIconRepo) Totals(_ context.Context) (int64, int64, error) {
	var icons, downloads int64
	for _, icon := range m.icons {
		icons++
		downloads += icon.Downloads
	}
	return icons, downloads, nil
}

func (m *mockIconRepo) UserStats(_ context.Context, userID string) (repository.UserStats, error) {
	var stats repository.UserStats
	for _, icon := range m.icons {
		if icon.UserID == userID {
			stats.Icons++
			stats.Downloads += icon.Downloads
		}
	}
	return stats, nil
}

// ---- category repository ----

type mockCategoryRepo struct {
	categories map[string]*model.Category
	nextID     int
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{categories: make(map[string]*model.Category)}
}

// addCategory seeds a category directly, bypassing the service.
func (m *mockCategoryRepo) addCategory(name, slug string) *model.Category {
	m.nextID++
	c := &model.Category{ID: fmt.Sprintf("cat-%d", m.nextID), Name: name, Slug: slug}
	m.categories[c.ID] = c
	return c
}

func (m *mockCategoryRepo) CreateCategory(_ context.Context, category *model.Category) error {
	for _, existing := range m.categories {
		if existing.Slug == category.Slug {
			return apperror.Conflict("category slug already exists")
		}
	}
	m.nextID++
	category.ID = fmt.Sprintf("cat-%d", m.nextID)
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *mockCategoryRepo) GetCategoryByID(_ context.Context, id string) (*model.Category, error) {
	category, ok := m.categories[id]
	if !ok {
		return nil, apperror.NotFound("category", id)
	}
	result := *category
	return &result, nil
}

func (m *mockCategoryRepo) GetCategoryBySlug(_ context.Context, slug string) (*model.Category, error) {
	for _, category := range m.categories {
		if category.Slug == slug {
			result := *category
			return &result, nil
		}
	}
	return nil, apperror.NotFound("category", slug)
}

func (m *mockCategoryRepo) ListCategories(_ context.Context) ([]model.Category, error) {
	result := make([]model.Category, 0, len(m.categories))
	for _, category := range m.categories {
		result = append(result, *category)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockCategoryRepo) UpdateCategory(_ context.Context, category *model.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return apperror.NotFound("category", category.ID)
	}
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *mockCategoryRepo) DeleteCategory(_ context.Context, id string) error {
	if _, ok := m.categories[id]; !ok {
		return apperror.NotFound("category", id)
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepo) CategorySlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	for _, category := range m.categories {
		if category.Slug == slug && category.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCategoryRepo) CountCategories(_ context.Context) (int64, error) {
	return int64(len(m.categories)), nil
}

// ---- user repository ----

type mockUserRepo struct {
	users  map[string]*model.User
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return apperror.Conflict("email already registered")
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *user
	return &result, nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			result := *user
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) ListUsers(_ context.Context, opts repository.ListOptions) ([]model.User, error) {
	result := make([]model.User, 0, len(m.users))
	for _, user := range m.users {
		result = append(result, *user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	if opts.Offset >= len(result) {
		return []model.User{}, nil
	}
	result = result[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (m *mockUserRepo) UpdateUser(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	for _, existing := range m.users {
		if existing.Email == user.Email && existing.ID != user.ID {
			return apperror.Conflict("email already registered")
		}
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) DeleteUser(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) CountUsers(_ context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

// ---- setting repository ----

type mockSettingRepo struct {
	values map[string]string
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{values: make(map[string]string)}
}

func (m *mockSettingRepo) GetSetting(_ context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", apperror.NotFound("setting", key)
	}
	return value, nil
}

func (m *mockSettingRepo) SetSetting(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

// ---- content store ----

// mockContentStore keeps file contents in a map keyed by the generated
// relative path. saveErr, when set, fails the next save.
type mockContentStore struct {
	files   map[string][]byte
	nextID  int
	saveErr error
}

func newMockContentStore() *mockContentStore {
	return &mockContentStore{files: make(map[string][]byte)}
}

func (m *mockContentStore) save(dir, originalName string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		err := m.saveErr
		m.saveErr = nil
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.nextID++
	path := fmt.Sprintf("%s/%d_%s", dir, m.nextID, originalName)
	m.files[path] = data
	return path, nil
}

func (m *mockContentStore) SaveIcon(originalName string, r io.Reader) (string, error) {
	return m.save("icons", originalName, r)
}

func (m *mockContentStore) SavePreview(originalName string, r io.Reader) (string, error) {
	return m.save("icons/previews", originalName, r)
}

func (m *mockContentStore) Open(relPath string) (io.ReadCloser, int64, error) {
	data, ok := m.files[relPath]
	if !ok {
		return nil, 0, fmt.Errorf("open %s: %w", relPath, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (m *mockContentStore) Remove(relPath string) error {
	delete(m.files, relPath)
	return nil
}
