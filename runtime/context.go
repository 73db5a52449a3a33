package runtime

// marker is the absence sentinel. It is a private type, so no user-visible
// value can ever compare equal to one.
type marker struct {
	name string
}

func (m *marker) String() string {
	return "<marker " + m.name + ">"
}

// Missing is the process-wide absence sentinel used by backup/restore
// bookkeeping and slot lookups.
var Missing any = &marker{"default"}

// NewMarker returns a fresh named sentinel distinct from every other value.
func NewMarker(name string) any {
	return &marker{name}
}

// Context is a run-time name-binding mapping. A render call takes two: the
// dynamic context (read and written by the program, copied into nested macro
// calls) and the propagating context (assignments visible to the caller
// after a nested call returns).
type Context struct {
	values map[string]any
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// NewContextWith returns a context seeded with the given bindings.
func NewContextWith(values map[string]any) *Context {
	c := NewContext()
	for k, v := range values {
		c.values[k] = v
	}
	return c
}

// Get returns the bound value, or def when the key is absent.
func (c *Context) Get(key string, def any) any {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Item returns the bound value; a missing key is a recoverable name error.
func (c *Context) Item(key string) (any, error) {
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	return nil, nameError(key)
}

// Set binds key to value.
func (c *Context) Set(key string, value any) {
	c.values[key] = value
}

// SetDefault binds key to value only when the key is absent.
func (c *Context) SetDefault(key string, value any) {
	if _, ok := c.values[key]; !ok {
		c.values[key] = value
	}
}

// Delete removes the binding for key, if any.
func (c *Context) Delete(key string) {
	delete(c.values, key)
}

// Pop removes and returns the binding for key, or Missing when absent.
func (c *Context) Pop(key string) any {
	if v, ok := c.values[key]; ok {
		delete(c.values, key)
		return v
	}
	return Missing
}

// Copy returns a shallow copy. Nested macro calls receive one so that
// callee mutations do not leak back except through the propagating context.
func (c *Context) Copy() *Context {
	d := &Context{values: make(map[string]any, len(c.values))}
	for k, v := range c.values {
		d.values[k] = v
	}
	return d
}

// Update folds every binding of other into c.
func (c *Context) Update(other *Context) {
	for k, v := range other.values {
		c.values[k] = v
	}
}

// Len returns the number of bindings.
func (c *Context) Len() int {
	return len(c.values)
}

// Repeat is the loop collaborator: it wraps the raw iterable and registers
// per-name loop metadata under the context's "repeat" entry. The returned
// iterator advances that metadata as it yields items.
func (c *Context) Repeat(names []string, iterable any) (*RepeatIter, error) {
	items, err := Iterate(iterable)
	if err != nil {
		return nil, err
	}

	rd, ok := c.values["repeat"].(RepeatDict)
	if !ok {
		rd = make(RepeatDict)
		c.values["repeat"] = rd
	}

	it := &RepeatIter{items: items}
	for _, name := range names {
		item := &RepeatItem{length: len(items)}
		rd[name] = item
		it.meta = append(it.meta, item)
	}
	return it, nil
}
