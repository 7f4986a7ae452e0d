package core

import (
	"sort"
	"strings"
)

// Category is a classification tag with a display icon.
type Category struct {
	Key     string
	Icon    string
	BuiltIn bool
}

// DefaultIcon is used for user categories created without an icon.
const DefaultIcon = "🏷️"

var builtInCategories = []Category{
	{Key: "food", Icon: "🍔", BuiltIn: true},
	{Key: "transport", Icon: "🚗", BuiltIn: true},
	{Key: "shopping", Icon: "🛍️", BuiltIn: true},
	{Key: "entertainment", Icon: "🎬", BuiltIn: true},
	{Key: "bills", Icon: "💡", BuiltIn: true},
	{Key: "health", Icon: "🏥", BuiltIn: true},
	{Key: "education", Icon: "📚", BuiltIn: true},
	{Key: "salary", Icon: "💰", BuiltIn: true},
	{Key: "freelance", Icon: "💻", BuiltIn: true},
	{Key: "investment", Icon: "📈", BuiltIn: true},
	{Key: "other", Icon: "📦", BuiltIn: true},
}

// BuiltInCategories returns the immutable default set.
func BuiltInCategories() []Category {
	return append([]Category(nil), builtInCategories...)
}

// IsBuiltInCategory reports whether key belongs to the default set.
func IsBuiltInCategory(key string) bool {
	for _, c := range builtInCategories {
		if c.Key == key {
			return true
		}
	}
	return false
}

// CategoryRegistry is the built-in set plus user added entries. It has
// value semantics: With and Without return a modified copy.
type CategoryRegistry struct {
	user map[string]string
}

// NewCategoryRegistry builds a registry from user entries. Entries that
// shadow a built-in key are dropped.
func NewCategoryRegistry(user map[string]string) CategoryRegistry {
	r := CategoryRegistry{user: make(map[string]string, len(user))}
	for k, icon := range user {
		k = NormalizeCategoryKey(k)
		if k == "" || IsBuiltInCategory(k) {
			continue
		}
		if strings.TrimSpace(icon) == "" {
			icon = DefaultIcon
		}
		r.user[k] = icon
	}
	return r
}

// NormalizeCategoryKey lowercases and trims a category key.
func NormalizeCategoryKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Icon returns the icon for key, if the category exists.
func (r CategoryRegistry) Icon(key string) (string, bool) {
	for _, c := range builtInCategories {
		if c.Key == key {
			return c.Icon, true
		}
	}
	icon, ok := r.user[key]
	return icon, ok
}

// Has reports whether key is a known category.
func (r CategoryRegistry) Has(key string) bool {
	_, ok := r.Icon(key)
	return ok
}

// All lists built-ins in their fixed order, then user entries sorted by key.
func (r CategoryRegistry) All() []Category {
	out := BuiltInCategories()
	keys := make([]string, 0, len(r.user))
	for k := range r.user {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, Category{Key: k, Icon: r.user[k]})
	}
	return out
}

// User returns a copy of the user added entries.
func (r CategoryRegistry) User() map[string]string {
	out := make(map[string]string, len(r.user))
	for k, v := range r.user {
		out[k] = v
	}
	return out
}

// Map returns every category key with its icon.
func (r CategoryRegistry) Map() map[string]string {
	out := r.User()
	for _, c := range builtInCategories {
		out[c.Key] = c.Icon
	}
	return out
}

// With returns a copy with key added or its icon replaced. Built-in keys
// cannot be redefined.
func (r CategoryRegistry) With(key, icon string) (CategoryRegistry, error) {
	key = NormalizeCategoryKey(key)
	if key == "" {
		return r, ErrEmptyCategory
	}
	if IsBuiltInCategory(key) {
		return r, &ValidationError{Field: "category", Reason: "built-in category " + key + " cannot be redefined"}
	}
	if strings.TrimSpace(icon) == "" {
		icon = DefaultIcon
	}
	next := r.User()
	next[key] = strings.TrimSpace(icon)
	return CategoryRegistry{user: next}, nil
}

// Without returns a copy with the user category key removed. Removing an
// unknown key is a no-op; removing a built-in is rejected.
func (r CategoryRegistry) Without(key string) (CategoryRegistry, error) {
	key = NormalizeCategoryKey(key)
	if IsBuiltInCategory(key) {
		return r, &ValidationError{Field: "category", Reason: "built-in category " + key + " cannot be deleted"}
	}
	if _, ok := r.user[key]; !ok {
		return r, nil
	}
	next := r.User()
	delete(next, key)
	return CategoryRegistry{user: next}, nil
}
