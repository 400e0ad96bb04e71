// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"

	"mediaportal/internal/models"
)

// materialFixture creates the role, user, and category a material needs.
func materialFixture(t *testing.T, db *sql.DB, prefix string) (uuid.UUID, *models.Category) {
	t.Helper()
	role := testRole(t, db, prefix+"-role")
	user, err := NewUserStore(db).Create(prefix+"-user", "pass", "Uploader", role.ID)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() { cleanUsers(t, db, prefix+"-user") })

	cat := mkCategory(t, NewCategoryStore(db), prefix+"-cat", nil)
	t.Cleanup(func() { cleanCategories(t, db, prefix+"-cat") })
	return user.ID, cat
}

func TestMaterialStoreCreateAndFind(t *testing.T) {
	db := testDB(t)
	s := NewMaterialStore(db)
	userID, cat := materialFixture(t, db, "mt-create")

	key := "test/mt-create.mp4"
	t.Cleanup(func() { cleanMaterials(t, db, key) })

	created, err := s.Create(&models.Material{
		CategoryID:  cat.ID,
		Name:        "Intro video",
		FileType:    models.FileTypeVideo,
		ObjectKey:   key,
		ContentType: "video/mp4",
		SizeBytes:   1 << 20,
		CreatedBy:   userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Error("expected non-zero id")
	}
	if !created.IsActive {
		t.Error("new material should be active")
	}

	got, err := s.FindByID(created.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got == nil {
		t.Fatal("expected material, got nil")
	}
	if got.ObjectKey != key || got.FileType != models.FileTypeVideo {
		t.Errorf("got %q %q", got.ObjectKey, got.FileType)
	}

	// Not found.
	got, err = s.FindByID(-1)
	if err != nil {
		t.Fatalf("FindByID (missing): %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing material")
	}
}

func TestMaterialStoreListByCategories(t *testing.T) {
	db := testDB(t)
	s := NewMaterialStore(db)
	userID, catA := materialFixture(t, db, "mt-list")
	catB := mkCategory(t, NewCategoryStore(db), "mt-list-cat-b", nil)
	t.Cleanup(func() { cleanCategories(t, db, "mt-list-cat-b") })

	keys := []string{"test/mt-list-a.pdf", "test/mt-list-b.pdf", "test/mt-list-off.pdf"}
	t.Cleanup(func() { cleanMaterials(t, db, keys...) })

	inA, err := s.Create(&models.Material{
		CategoryID: catA.ID, Name: "In A", FileType: models.FileTypeDocument,
		ObjectKey: keys[0], CreatedBy: userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	inB, err := s.Create(&models.Material{
		CategoryID: catB.ID, Name: "In B", FileType: models.FileTypeDocument,
		ObjectKey: keys[1], CreatedBy: userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	off, err := s.Create(&models.Material{
		CategoryID: catA.ID, Name: "Inactive", FileType: models.FileTypeDocument,
		ObjectKey: keys[2], CreatedBy: userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.SetActive(off.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	// Empty id list yields no rows — never all rows.
	items, err := s.ListByCategories(nil, 100, 0)
	if err != nil {
		t.Fatalf("ListByCategories (empty): %v", err)
	}
	if len(items) != 0 {
		t.Errorf("empty scope must list nothing, got %d items", len(items))
	}

	// Restricted to category A: only the active material there.
	items, err = s.ListByCategories([]int64{catA.ID}, 100, 0)
	if err != nil {
		t.Fatalf("ListByCategories: %v", err)
	}
	got := map[int64]bool{}
	for _, m := range items {
		got[m.ID] = true
	}
	if !got[inA.ID] {
		t.Errorf("expected material %d in scope", inA.ID)
	}
	if got[inB.ID] {
		t.Errorf("material %d outside scope must be excluded", inB.ID)
	}
	if got[off.ID] {
		t.Errorf("inactive material %d must be excluded", off.ID)
	}
}

func TestMaterialStoreUpdateAndSetActive(t *testing.T) {
	db := testDB(t)
	s := NewMaterialStore(db)
	userID, cat := materialFixture(t, db, "mt-update")
	catB := mkCategory(t, NewCategoryStore(db), "mt-update-cat-b", nil)
	t.Cleanup(func() { cleanCategories(t, db, "mt-update-cat-b") })

	key := "test/mt-update.png"
	t.Cleanup(func() { cleanMaterials(t, db, key) })

	m, err := s.Create(&models.Material{
		CategoryID: cat.ID, Name: "Old", FileType: models.FileTypeImage,
		ObjectKey: key, CreatedBy: userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	m.Name = "New"
	m.CategoryID = catB.ID
	if err := s.Update(m); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := s.FindByID(m.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Name != "New" || got.CategoryID != catB.ID {
		t.Errorf("update lost: %q category %d", got.Name, got.CategoryID)
	}

	if err := s.SetActive(m.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	n, err := s.CountActiveByCategory(catB.ID)
	if err != nil {
		t.Fatalf("CountActiveByCategory: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 active materials after deactivation, got %d", n)
	}
}

func TestMaterialStoreDelete(t *testing.T) {
	db := testDB(t)
	s := NewMaterialStore(db)
	userID, cat := materialFixture(t, db, "mt-delete")

	key := "test/mt-delete.pdf"
	t.Cleanup(func() { cleanMaterials(t, db, key) })

	m, err := s.Create(&models.Material{
		CategoryID: cat.ID, Name: "Doomed", FileType: models.FileTypeDocument,
		ObjectKey: key, CreatedBy: userID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Delete(m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := s.FindByID(m.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got != nil {
		t.Error("expected material gone after delete")
	}
}
