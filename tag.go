package forms

// Tag is a type-safe key for scope metadata
type Tag[T any] struct {
	key string
}

// NewTag creates a new tag with the given key
func NewTag[T any](key string) Tag[T] {
	return Tag[T]{key: key}
}

// Key returns the tag's key (for debugging)
func (t Tag[T]) Key() string {
	return t.key
}

// GetFromScope retrieves the tag value from a scope or its nearest ancestor
func (t Tag[T]) GetFromScope(scope *Scope) (T, bool) {
	val, ok := scope.GetTag(t)
	if !ok {
		var zero T
		return zero, false
	}
	return val.(T), true
}

// MustGetFromScope retrieves the tag value or panics if not found
func (t Tag[T]) MustGetFromScope(scope *Scope) T {
	val, ok := t.GetFromScope(scope)
	if !ok {
		panic("tag " + t.key + " not found")
	}
	return val
}

// GetOrDefault retrieves the tag value or returns a default
func (t Tag[T]) GetOrDefault(scope *Scope, defaultVal T) T {
	if val, ok := t.GetFromScope(scope); ok {
		return val
	}
	return defaultVal
}

// SetOnScope stores the tag value on a scope
func (t Tag[T]) SetOnScope(scope *Scope, val T) {
	scope.SetTag(t, val)
}

// GetOrSetOnScope retrieves the tag value stored on scope itself, storing
// the one made by create when missing. Ancestors are not consulted.
func (t Tag[T]) GetOrSetOnScope(scope *Scope, create func() T) T {
	if val, ok := scope.tags.Load(t); ok {
		return val.(T)
	}
	val, _ := scope.tags.LoadOrStore(t, create())
	return val.(T)
}
