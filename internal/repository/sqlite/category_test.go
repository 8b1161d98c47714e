package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/icon-gallery/internal/apperror"
	"github.com/sakif/icon-gallery/internal/model"
)

func TestSeedCategories(t *testing.T) {
	db := newTestDB(t)

	categories, err := db.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(categories) != 9 {
		t.Fatalf("got %d seeded categories, want 9", len(categories))
	}

	// Spot-check a couple of known slugs.
	if _, err := db.GetCategoryBySlug(context.Background(), "design"); err != nil {
		t.Errorf("seeded category 'design' missing: %v", err)
	}
	if _, err := db.GetCategoryBySlug(context.Background(), "other"); err != nil {
		t.Errorf("seeded category 'other' missing: %v", err)
	}
}

func TestCreateCategory(t *testing.T) {
	db := newTestDB(t)

	c := &model.Category{Name: "Finance", Slug: "finance"}
	if err := db.CreateCategory(context.Background(), c); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if c.ID == "" {
		t.Error("CreateCategory() did not set ID")
	}

	found, err := db.GetCategoryBySlug(context.Background(), "finance")
	if err != nil {
		t.Fatalf("GetCategoryBySlug() error = %v", err)
	}
	if found.Name != "Finance" {
		t.Errorf("Name = %q, want %q", found.Name, "Finance")
	}
}

func TestCreateCategory_DuplicateSlug(t *testing.T) {
	db := newTestDB(t)

	dup := &model.Category{Name: "Design Two", Slug: "design"} // seeded
	err := db.CreateCategory(context.Background(), dup)
	if err == nil {
		t.Fatal("CreateCategory() should fail on duplicate slug")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestListCategories_IconCounts(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@example.com")
	createTestIcon(t, db, user.ID, "Safari", "safari") // category "design"

	categories, err := db.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}

	for _, c := range categories {
		want := int64(0)
		if c.Slug == "design" {
			want = 1
		}
		if c.IconCount != want {
			t.Errorf("IconCount for %q = %d, want %d", c.Slug, c.IconCount, want)
		}
	}
}

func TestUpdateCategory(t *testing.T) {
	db := newTestDB(t)

	c, err := db.GetCategoryBySlug(context.Background(), "games")
	if err != nil {
		t.Fatalf("GetCategoryBySlug() error = %v", err)
	}

	c.Name = "Gaming"
	c.Slug = "gaming"
	if err := db.UpdateCategory(context.Background(), c); err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}

	if _, err := db.GetCategoryBySlug(context.Background(), "games"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("old slug still resolves, err = %v", err)
	}
	if _, err := db.GetCategoryBySlug(context.Background(), "gaming"); err != nil {
		t.Errorf("new slug does not resolve: %v", err)
	}
}

func TestDeleteCategory(t *testing.T) {
	db := newTestDB(t)

	c, err := db.GetCategoryBySlug(context.Background(), "other")
	if err != nil {
		t.Fatalf("GetCategoryBySlug() error = %v", err)
	}

	if err := db.DeleteCategory(context.Background(), c.ID); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if err := db.DeleteCategory(context.Background(), c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteCategory() error = %v, want ErrNotFound", err)
	}
}

func TestCategorySlugExists(t *testing.T) {
	db := newTestDB(t)

	taken, err := db.CategorySlugExists(context.Background(), "design", "")
	if err != nil {
		t.Fatalf("CategorySlugExists() error = %v", err)
	}
	if !taken {
		t.Error("CategorySlugExists(design) = false, want true")
	}

	taken, err = db.CategorySlugExists(context.Background(), "never-used", "")
	if err != nil {
		t.Fatalf("CategorySlugExists() error = %v", err)
	}
	if taken {
		t.Error("CategorySlugExists(never-used) = true, want false")
	}
}

func TestCountCategories(t *testing.T) {
	db := newTestDB(t)

	count, err := db.CountCategories(context.Background())
	if err != nil {
		t.Fatalf("CountCategories() error = %v", err)
	}
	if count != 9 {
		t.Errorf("count = %d, want 9 (seed)", count)
	}
}
