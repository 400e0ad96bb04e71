// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"testing"

	"mediaportal/internal/models"
)

func TestRoleStoreCreateWithGrants(t *testing.T) {
	db := testDB(t)
	roles := NewRoleStore(db)
	categories := NewCategoryStore(db)

	t.Cleanup(func() {
		cleanRoles(t, db, "rt-create")
		cleanCategories(t, db, "rt-create-cat-a", "rt-create-cat-b")
	})

	a := mkCategory(t, categories, "rt-create-cat-a", nil)
	b := mkCategory(t, categories, "rt-create-cat-b", nil)

	role, err := roles.Create(&models.Role{
		Name:                 "rt-create",
		Description:          "restricted viewers",
		CategoryAccessType:   models.CategoryAccessSelected,
		CanViewMaterials:     true,
		CanDownloadMaterials: true,
		AllowedCategoryIDs:   []int64{a.ID, b.ID},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if role.ID == 0 {
		t.Error("expected non-zero role id")
	}
	if !role.CanViewMaterials || !role.CanDownloadMaterials {
		t.Error("permission flags lost on create")
	}
	if role.CanDeleteMaterials {
		t.Error("unset flags must stay false")
	}

	// Reload and verify the grants were hydrated.
	got, err := roles.FindByID(role.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got == nil {
		t.Fatal("expected role, got nil")
	}
	if len(got.AllowedCategoryIDs) != 2 {
		t.Fatalf("grants: got %v, want 2 ids", got.AllowedCategoryIDs)
	}
}

func TestRoleStoreFindByIDNotFound(t *testing.T) {
	db := testDB(t)
	roles := NewRoleStore(db)

	role, err := roles.FindByID(-1)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if role != nil {
		t.Error("expected nil for missing role")
	}
}

func TestRoleStoreUpdateReplacesGrants(t *testing.T) {
	db := testDB(t)
	roles := NewRoleStore(db)
	categories := NewCategoryStore(db)

	t.Cleanup(func() {
		cleanRoles(t, db, "rt-update")
		cleanCategories(t, db, "rt-update-cat-a", "rt-update-cat-b")
	})

	a := mkCategory(t, categories, "rt-update-cat-a", nil)
	b := mkCategory(t, categories, "rt-update-cat-b", nil)

	role, err := roles.Create(&models.Role{
		Name:               "rt-update",
		CategoryAccessType: models.CategoryAccessSelected,
		AllowedCategoryIDs: []int64{a.ID},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	role.CanViewMaterials = true
	role.AllowedCategoryIDs = []int64{b.ID}
	if err := roles.Update(role); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := roles.FindByID(role.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !got.CanViewMaterials {
		t.Error("flag update lost")
	}
	if len(got.AllowedCategoryIDs) != 1 || got.AllowedCategoryIDs[0] != b.ID {
		t.Errorf("grants after update: got %v, want [%d]", got.AllowedCategoryIDs, b.ID)
	}
}

func TestRoleStoreSetAllowedCategories(t *testing.T) {
	db := testDB(t)
	roles := NewRoleStore(db)
	categories := NewCategoryStore(db)

	t.Cleanup(func() {
		cleanRoles(t, db, "rt-grants")
		cleanCategories(t, db, "rt-grants-cat")
	})

	cat := mkCategory(t, categories, "rt-grants-cat", nil)

	role, err := roles.Create(&models.Role{Name: "rt-grants", CategoryAccessType: models.CategoryAccessSelected})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := roles.SetAllowedCategories(role.ID, []int64{cat.ID}); err != nil {
		t.Fatalf("SetAllowedCategories: %v", err)
	}
	got, err := roles.FindByID(role.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(got.AllowedCategoryIDs) != 1 {
		t.Fatalf("grants: got %v, want 1 id", got.AllowedCategoryIDs)
	}

	// Clearing leaves an empty, non-nil grant list.
	if err := roles.SetAllowedCategories(role.ID, nil); err != nil {
		t.Fatalf("SetAllowedCategories (clear): %v", err)
	}
	got, err = roles.FindByID(role.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(got.AllowedCategoryIDs) != 0 {
		t.Errorf("grants after clear: got %v, want empty", got.AllowedCategoryIDs)
	}
}

func TestRoleStoreDeleteGuardedByUsers(t *testing.T) {
	db := testDB(t)
	roles := NewRoleStore(db)
	users := NewUserStore(db)

	t.Cleanup(func() {
		cleanUsers(t, db, "rt-del-user")
		cleanRoles(t, db, "rt-del")
	})

	role, err := roles.Create(&models.Role{Name: "rt-del", CategoryAccessType: models.CategoryAccessAll})
	if err != nil {
		t.Fatalf("Create role: %v", err)
	}
	user, err := users.Create("rt-del-user", "pass", "Del User", role.ID)
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	if err := roles.Delete(role.ID); err != ErrRoleInUse {
		t.Errorf("delete assigned role: expected ErrRoleInUse, got %v", err)
	}

	if err := users.Delete(user.ID); err != nil {
		t.Fatalf("Delete user: %v", err)
	}
	if err := roles.Delete(role.ID); err != nil {
		t.Fatalf("Delete role: %v", err)
	}
}

func TestRoleStoreList(t *testing.T) {
	db := testDB(t)
	roles := NewRoleStore(db)

	t.Cleanup(func() { cleanRoles(t, db, "rt-list-a", "rt-list-b") })

	if _, err := roles.Create(&models.Role{Name: "rt-list-b", CategoryAccessType: models.CategoryAccessAll}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := roles.Create(&models.Role{Name: "rt-list-a", CategoryAccessType: models.CategoryAccessAll}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := roles.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	posA, posB := -1, -1
	for i, r := range all {
		switch r.Name {
		case "rt-list-a":
			posA = i
		case "rt-list-b":
			posB = i
		}
		if r.AllowedCategoryIDs == nil {
			t.Errorf("role %q grants not hydrated", r.Name)
		}
	}
	if posA == -1 || posB == -1 {
		t.Fatal("created roles missing from List")
	}
	if posA > posB {
		t.Error("List should order roles by name")
	}
}
