package entity

// ordered is a map that remembers insertion order.
type ordered[V any] struct {
	keys   []string
	values map[string]V
}

func newOrdered[V any]() ordered[V] {
	return ordered[V]{values: make(map[string]V)}
}

func (o *ordered[V]) get(k string) (V, bool) {
	v, ok := o.values[k]
	return v, ok
}

func (o *ordered[V]) has(k string) bool {
	_, ok := o.values[k]
	return ok
}

// set stores v under k. A replaced value keeps its position.
func (o *ordered[V]) set(k string, v V) {
	if o.values == nil {
		o.values = make(map[string]V)
	}
	if _, ok := o.values[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.values[k] = v
}

func (o *ordered[V]) delete(k string) {
	if _, ok := o.values[k]; !ok {
		return
	}
	delete(o.values, k)
	for i, key := range o.keys {
		if key == k {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
}

func (o *ordered[V]) len() int { return len(o.keys) }

// list returns the values in insertion order.
func (o *ordered[V]) list() []V {
	vs := make([]V, len(o.keys))
	for i, k := range o.keys {
		vs[i] = o.values[k]
	}
	return vs
}

// names returns the keys in insertion order.
func (o *ordered[V]) names() []string {
	return append([]string(nil), o.keys...)
}

func cloneOrdered[V any](o ordered[V]) ordered[V] {
	c := ordered[V]{keys: append([]string(nil), o.keys...), values: make(map[string]V, len(o.values))}
	for k, v := range o.values {
		c.values[k] = v
	}
	return c
}
