package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/icon-gallery/internal/apperror"
	"github.com/sakif/icon-gallery/internal/model"
)

func newTestCategoryService(t *testing.T) (*CategoryService, *mockCategoryRepo, *mockIconRepo) {
	t.Helper()
	categories := newMockCategoryRepo()
	icons := newMockIconRepo()
	svc := NewCategoryService(categories, icons, testLogger())
	return svc, categories, icons
}

func TestCategoryCreate_Success(t *testing.T) {
	svc, _, _ := newTestCategoryService(t)

	category, err := svc.Create(context.Background(), "Social Media")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if category.Slug != "social-media" {
		t.Errorf("Slug = %q, want %q", category.Slug, "social-media")
	}
}

func TestCategoryCreate_EmptyName(t *testing.T) {
	svc, _, _ := newTestCategoryService(t)

	_, err := svc.Create(context.Background(), "   ")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestCategoryCreate_NameTooLong(t *testing.T) {
	svc, _, _ := newTestCategoryService(t)

	_, err := svc.Create(context.Background(), strings.Repeat("x", MaxNameLength+1))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestCategoryCreate_DuplicateNameGetsSuffix(t *testing.T) {
	svc, _, _ := newTestCategoryService(t)

	first, err := svc.Create(context.Background(), "Design")
	if err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	second, err := svc.Create(context.Background(), "Design")
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}

	if first.Slug != "design" || second.Slug != "design-1" {
		t.Errorf("slugs = %q, %q; want design, design-1", first.Slug, second.Slug)
	}
}

func TestCategoryUpdate_RenameKeepsSlug(t *testing.T) {
	svc, _, _ := newTestCategoryService(t)

	created, err := svc.Create(context.Background(), "Developement") // typo on purpose
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	updated, err := svc.Update(context.Background(), created.ID, "Development")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Development" {
		t.Errorf("Name = %q, want %q", updated.Name, "Development")
	}
	if updated.Slug != created.Slug {
		t.Errorf("Slug changed on rename: %q -> %q", created.Slug, updated.Slug)
	}
}

func TestCategoryUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestCategoryService(t)

	_, err := svc.Update(context.Background(), "nonexistent", "Name")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCategoryDelete_Empty(t *testing.T) {
	svc, categories, _ := newTestCategoryService(t)

	created, _ := svc.Create(context.Background(), "Ephemeral")

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := categories.GetCategoryByID(context.Background(), created.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("category survived delete: %v", err)
	}
}

func TestCategoryDelete_RefusedWhileInUse(t *testing.T) {
	svc, _, icons := newTestCategoryService(t)

	created, err := svc.Create(context.Background(), "Busy")
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}
	err = icons.Create(context.Background(), &model.Icon{
		Name: "Occupant", Slug: "occupant", Category: created.Slug, UserID: "u1",
	})
	if err != nil {
		t.Fatalf("setup: icon Create() error = %v", err)
	}

	err = svc.Delete(context.Background(), created.ID)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}

	// Still listed.
	list, _ := svc.List(context.Background())
	if len(list) != 1 {
		t.Errorf("List() = %d categories, want 1", len(list))
	}
}

func TestCategoryList_SortedByName(t *testing.T) {
	svc, _, _ := newTestCategoryService(t)

	for _, name := range []string{"Weather", "Arrows", "Media"} {
		if _, err := svc.Create(context.Background(), name); err != nil {
			t.Fatalf("setup: Create(%q) error = %v", name, err)
		}
	}

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"Arrows", "Media", "Weather"}
	for i, name := range want {
		if list[i].Name != name {
			t.Errorf("List()[%d].Name = %q, want %q", i, list[i].Name, name)
		}
	}
}
