package job

import "iter"

// Env is an ordered set of environment assignments. Keys are case-sensitive,
// keep the position of their first assignment, and the last value written
// wins.
//
// Env is a value: Set and Delete return a modified copy and never alter the
// receiver, so an accumulator can be handed to a job and keep evolving.
type Env struct {
	keys []string
	vals map[string]string
}

func (e Env) Len() int { return len(e.keys) }

func (e Env) Get(key string) (string, bool) {
	v, ok := e.vals[key]
	return v, ok
}

func (e Env) Has(key string) bool {
	_, ok := e.vals[key]
	return ok
}

// Keys returns the keys in assignment order.
func (e Env) Keys() []string { return append([]string(nil), e.keys...) }

// All iterates assignments in order.
func (e Env) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range e.keys {
			if !yield(k, e.vals[k]) {
				return
			}
		}
	}
}

func (e Env) Set(key, value string) Env {
	out := e.clone()
	if _, ok := out.vals[key]; !ok {
		out.keys = append(out.keys, key)
	}
	out.vals[key] = value
	return out
}

func (e Env) Delete(key string) Env {
	if !e.Has(key) {
		return e
	}
	out := e.clone()
	delete(out.vals, key)
	for i, k := range out.keys {
		if k == key {
			out.keys = append(out.keys[:i], out.keys[i+1:]...)
			break
		}
	}
	return out
}

func (e Env) clone() Env {
	out := Env{
		keys: make([]string, len(e.keys), len(e.keys)+1),
		vals: make(map[string]string, len(e.vals)+1),
	}
	copy(out.keys, e.keys)
	for k, v := range e.vals {
		out.vals[k] = v
	}
	return out
}
