package access

import (
	"errors"
	"sort"
	"testing"

	"mediaportal/internal/models"
)

// fakeCategories is an in-memory CategoryFinder for resolver tests.
type fakeCategories struct {
	byID map[int64]*models.Category
	err  error
}

func newFakeCategories(cats ...models.Category) *fakeCategories {
	f := &fakeCategories{byID: make(map[int64]*models.Category)}
	for i := range cats {
		c := cats[i]
		f.byID[c.ID] = &c
	}
	return f
}

func (f *fakeCategories) FindByID(id int64) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCategories) ActiveDescendants(id int64) ([]models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	root, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	var out []models.Category
	for _, c := range f.byID {
		if c.IsActive && c.IsDescendantOf(root.Path) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (f *fakeCategories) ListActive() ([]models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Category
	for _, c := range f.byID {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func cat(id int64, parent *int64, path string, level int, active bool) models.Category {
	return models.Category{ID: id, ParentID: parent, Path: path, Level: level, IsActive: active}
}

func ptr(v int64) *int64 { return &v }

// testTree builds the reference hierarchy used across resolver tests:
//
//	1 (/1)
//	└── 5 (/1/5)
//	    └── 12 (/1/5/12)
//	2 (/2)
//	└── 9 (/2/9)
func testTree() *fakeCategories {
	return newFakeCategories(
		cat(1, nil, "/1", 0, true),
		cat(5, ptr(1), "/1/5", 1, true),
		cat(12, ptr(5), "/1/5/12", 2, true),
		cat(2, nil, "/2", 0, true),
		cat(9, ptr(2), "/2/9", 1, true),
	)
}

func role(grants ...int64) *models.Role {
	return &models.Role{ID: 42, Name: "viewer", AllowedCategoryIDs: grants}
}

func TestHasCategoryAccessAdminOverride(t *testing.T) {
	r := NewResolver(testTree())
	admin := &models.Role{IsAdmin: true}

	for _, id := range []int64{1, 5, 12, 9, 999} {
		ok, err := r.HasCategoryAccess(admin, id)
		if err != nil {
			t.Fatalf("HasCategoryAccess(admin, %d): %v", id, err)
		}
		if !ok {
			t.Errorf("admin denied category %d", id)
		}
	}
}

func TestHasCategoryAccessManageAll(t *testing.T) {
	r := NewResolver(testTree())
	manager := &models.Role{CanManageAllCategories: true}

	ok, err := r.HasCategoryAccess(manager, 12)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("manage-all role denied category 12")
	}
}

func TestHasCategoryAccessCascade(t *testing.T) {
	r := NewResolver(testTree())

	// Grant on 5: the node itself and its descendant 12 are reachable,
	// the ancestor 1 and the sibling subtree are not.
	tests := []struct {
		name       string
		categoryID int64
		want       bool
	}{
		{"directly granted category", 5, true},
		{"descendant of granted category", 12, true},
		{"ancestor of granted category", 1, false},
		{"unrelated root", 2, false},
		{"unrelated child", 9, false},
		{"unknown category", 404, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.HasCategoryAccess(role(5), tt.categoryID)
			if err != nil {
				t.Fatalf("HasCategoryAccess: %v", err)
			}
			if got != tt.want {
				t.Errorf("category %d: got %v, want %v", tt.categoryID, got, tt.want)
			}
		})
	}
}

func TestHasCategoryAccessEmptyGrants(t *testing.T) {
	r := NewResolver(testTree())

	for _, id := range []int64{1, 5, 12} {
		ok, err := r.HasCategoryAccess(role(), id)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Errorf("empty-grant role allowed category %d", id)
		}
	}
}

func TestHasCategoryAccessInactiveAncestorStillCounts(t *testing.T) {
	// 5 is deactivated but remains in the path of 12. A grant on 5 must
	// still reach 12 through the path walk: deactivation hides nodes
	// from listings, it does not revoke the subtree.
	f := newFakeCategories(
		cat(1, nil, "/1", 0, true),
		cat(5, ptr(1), "/1/5", 1, false),
		cat(12, ptr(5), "/1/5/12", 2, true),
	)
	r := NewResolver(f)

	ok, err := r.HasCategoryAccess(role(5), 12)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("grant on deactivated ancestor should still cascade")
	}
}

func TestHasCategoryAccessIdempotent(t *testing.T) {
	r := NewResolver(testTree())
	rl := role(5)

	first, err := r.HasCategoryAccess(rl, 12)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.HasCategoryAccess(rl, 12)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("repeated query changed answer: %v then %v", first, second)
	}
}

func TestHasCategoryAccessStoreErrorPropagates(t *testing.T) {
	f := testTree()
	f.err = errors.New("connection reset")
	r := NewResolver(f)

	_, err := r.HasCategoryAccess(role(5), 12)
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestAccessibleCategoriesUnrestricted(t *testing.T) {
	r := NewResolver(testTree())

	for _, rl := range []*models.Role{
		{IsAdmin: true},
		{CanManageAllCategories: true},
	} {
		got, err := r.AccessibleCategories(rl)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 5 {
			t.Errorf("unrestricted role: got %d categories, want 5", len(got))
		}
	}
}

func TestAccessibleCategoriesCascadeAndDedupe(t *testing.T) {
	r := NewResolver(testTree())

	// Grants on 1 and 5 overlap: 5 and 12 are reachable through both.
	got, err := r.AccessibleCategories(role(1, 5))
	if err != nil {
		t.Fatal(err)
	}

	ids := make(map[int64]int)
	for _, c := range got {
		ids[c.ID]++
	}
	for id, n := range ids {
		if n > 1 {
			t.Errorf("category %d appears %d times", id, n)
		}
	}
	for _, want := range []int64{1, 5, 12} {
		if ids[want] == 0 {
			t.Errorf("category %d missing from effective set", want)
		}
	}
	if ids[2] != 0 || ids[9] != 0 {
		t.Error("ungranted subtree leaked into effective set")
	}
}

func TestAccessibleCategoriesEmptyGrants(t *testing.T) {
	r := NewResolver(testTree())

	got, err := r.AccessibleCategories(role())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("empty-grant role: got %d categories, want 0", len(got))
	}
}

func TestAccessibleCategoriesExcludesInactive(t *testing.T) {
	// 5 is deactivated: it must not appear in the effective set, but its
	// active descendant 12 still does.
	f := newFakeCategories(
		cat(1, nil, "/1", 0, true),
		cat(5, ptr(1), "/1/5", 1, false),
		cat(12, ptr(5), "/1/5/12", 2, true),
	)
	r := NewResolver(f)

	got, err := r.AccessibleCategories(role(5))
	if err != nil {
		t.Fatal(err)
	}

	for _, c := range got {
		if c.ID == 5 {
			t.Error("deactivated category included in effective set")
		}
	}
	found := false
	for _, c := range got {
		if c.ID == 12 {
			found = true
		}
	}
	if !found {
		t.Error("active descendant of deactivated grant missing")
	}
}

func TestAccessibleCategoriesDanglingGrant(t *testing.T) {
	r := NewResolver(testTree())

	// Grant on a deleted category id contributes nothing but does not fail.
	got, err := r.AccessibleCategories(role(404, 2))
	if err != nil {
		t.Fatal(err)
	}

	ids := make(map[int64]bool)
	for _, c := range got {
		ids[c.ID] = true
	}
	if !ids[2] || !ids[9] {
		t.Error("valid grant not expanded alongside dangling grant")
	}
	if len(got) != 2 {
		t.Errorf("got %d categories, want 2", len(got))
	}
}

// TestSpecScenarioGrantOnMiddleNode mirrors the canonical tree from the
// access design: tree 1 -> 5 -> 12 with a single grant on 5.
func TestSpecScenarioGrantOnMiddleNode(t *testing.T) {
	r := NewResolver(testTree())
	rl := role(5)

	for _, tt := range []struct {
		categoryID int64
		want       bool
	}{
		{5, true},
		{12, true},
		{1, false},
	} {
		got, err := r.HasCategoryAccess(rl, tt.categoryID)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("HasCategoryAccess(role{5}, %d): got %v, want %v", tt.categoryID, got, tt.want)
		}
	}
}

func TestAccessibleCategoryIDs(t *testing.T) {
	r := NewResolver(testTree())

	ids, err := r.AccessibleCategoryIDs(role(2))
	if err != nil {
		t.Fatal(err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 9 {
		t.Errorf("got %v, want [2 9]", ids)
	}
}

func TestUnrestricted(t *testing.T) {
	if !Unrestricted(&models.Role{IsAdmin: true}) {
		t.Error("admin should be unrestricted")
	}
	if !Unrestricted(&models.Role{CanManageAllCategories: true}) {
		t.Error("manage-all should be unrestricted")
	}
	if Unrestricted(role(1, 2)) {
		t.Error("granted role should not be unrestricted")
	}
}
