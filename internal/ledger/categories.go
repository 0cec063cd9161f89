package ledger

import (
	"context"
	"fmt"

	"moneyflow/internal/core"
	"moneyflow/internal/storage"
)

// categoryIndex is an arena over flat Category records: a by-id map plus
// ordered child-id lists keyed by parent id (empty string for roots).
// Tree views are rebuilt by lookup; nothing nested is ever mutated in
// place, so there are no aliasing hazards.
type categoryIndex struct {
	byID     map[string]core.Category
	children map[string][]string
	roots    []string
}

func newCategoryIndex(flat []core.Category) *categoryIndex {
	ix := &categoryIndex{
		byID:     make(map[string]core.Category, len(flat)),
		children: make(map[string][]string),
	}
	for _, c := range flat {
		ix.insert(c)
	}
	return ix
}

func (ix *categoryIndex) insert(c core.Category) {
	if _, exists := ix.byID[c.ID]; exists {
		return
	}
	ix.byID[c.ID] = c
	if c.ParentID == "" {
		ix.roots = append(ix.roots, c.ID)
	} else {
		ix.children[c.ParentID] = append(ix.children[c.ParentID], c.ID)
	}
}

func (ix *categoryIndex) remove(id string) {
	c, ok := ix.byID[id]
	if !ok {
		return
	}
	delete(ix.byID, id)
	if c.ParentID == "" {
		ix.roots = removeID(ix.roots, id)
	} else {
		ix.children[c.ParentID] = removeID(ix.children[c.ParentID], id)
	}
	// Drop the whole subtree: children are meaningless without the parent.
	for _, childID := range append([]string(nil), ix.children[id]...) {
		ix.remove(childID)
	}
	delete(ix.children, id)
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func (ix *categoryIndex) find(id string) (core.Category, bool) {
	c, ok := ix.byID[id]
	return c, ok
}

func (ix *categoryIndex) findWithParent(id string) (cat, parent core.Category, ok bool) {
	c, found := ix.byID[id]
	if !found {
		return core.Category{}, core.Category{}, false
	}
	if c.ParentID != "" {
		parent = ix.byID[c.ParentID]
	}
	return c, parent, true
}

// subtree returns id plus all descendant ids, depth-first.
func (ix *categoryIndex) subtree(id string) []string {
	out := []string{id}
	for _, childID := range ix.children[id] {
		out = append(out, ix.subtree(childID)...)
	}
	return out
}

// tree materializes the full category forest depth-first. In practice the
// forest is two levels deep, but the traversal is unbounded.
func (ix *categoryIndex) tree() []core.CategoryNode {
	return ix.nodesFor(ix.roots)
}

func (ix *categoryIndex) nodesFor(ids []string) []core.CategoryNode {
	out := make([]core.CategoryNode, 0, len(ids))
	for _, id := range ids {
		c, ok := ix.byID[id]
		if !ok {
			continue
		}
		out = append(out, core.CategoryNode{
			Category: c,
			Children: ix.nodesFor(ix.children[id]),
		})
	}
	return out
}

// flat returns all records parents-first, the persisted representation.
func (ix *categoryIndex) flat() []core.Category {
	var walk func(ids []string) []core.Category
	walk = func(ids []string) []core.Category {
		var out []core.Category
		for _, id := range ids {
			if c, ok := ix.byID[id]; ok {
				out = append(out, c)
				out = append(out, walk(ix.children[id])...)
			}
		}
		return out
	}
	return walk(ix.roots)
}

func (ix *categoryIndex) size() int {
	return len(ix.byID)
}

// --- LocalStore category operations ---

func (s *LocalStore) CategoryTree(_ context.Context) ([]core.CategoryNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cats.tree(), nil
}

// FindCategory resolves a category id anywhere in the forest.
func (s *LocalStore) FindCategory(id string) (core.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cats.find(id)
}

// FindCategoryWithParent resolves a category and its parent (zero value
// when the category is a root).
func (s *LocalStore) FindCategoryWithParent(id string) (cat, parent core.Category, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cats.findWithParent(id)
}

func (s *LocalStore) AddCategory(ctx context.Context, c core.Category, parentID string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if parentID != "" {
		parent, ok := s.cats.find(parentID)
		if !ok {
			s.center.Error("Parent category not found")
			return core.Category{}, fmt.Errorf("add category under %s: %w", parentID, core.ErrNotFound)
		}
		// Sub-categories inherit the parent's type.
		c.Type = parent.Type
	}
	c.ID = s.ids.Next()
	c.ParentID = parentID
	s.cats.insert(c)
	s.persist(ctx, storage.KeyCategories)
	s.center.Success("Category added")
	return c, nil
}

func (s *LocalStore) UpdateCategory(ctx context.Context, id string, patch CategoryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cats.find(id)
	if !ok {
		s.center.Error("Category not found")
		return fmt.Errorf("update category %s: %w", id, core.ErrNotFound)
	}
	applyIf(&c.Name, patch.Name)
	applyIf(&c.Icon, patch.Icon)
	s.cats.byID[id] = c

	s.persist(ctx, storage.KeyCategories)
	s.center.Success("Category updated")
	return nil
}

// DeleteCategory removes a category and its sub-categories. The delete is
// refused if any transaction references the category or anything in its
// subtree, leaving the forest unchanged.
func (s *LocalStore) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cats.find(id); !ok {
		s.center.Error("Category not found")
		return fmt.Errorf("delete category %s: %w", id, core.ErrNotFound)
	}
	for _, cid := range s.cats.subtree(id) {
		for i := range s.transactions {
			if s.transactions[i].UsesCategory(cid) {
				s.center.Error("This category is used by transactions and cannot be deleted")
				return fmt.Errorf("delete category %s: %w", id, core.ErrCategoryInUse)
			}
		}
	}
	s.cats.remove(id)
	s.persist(ctx, storage.KeyCategories)
	s.center.Success("Category deleted")
	return nil
}

// categoryName resolves a display name without taking the store lock;
// callers already hold it.
func (s *LocalStore) categoryName(id string) string {
	if c, ok := s.cats.find(id); ok {
		return c.Name
	}
	return ""
}
