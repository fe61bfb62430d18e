package space

import (
	"fmt"
	"strings"
)

// insert walks a dotted name and stores the dimension returned by build.
//
// Each segment but the last descends into the subspace of that name,
// creating it when missing. When a segment names an existing leaf the walk
// stops and the rest of the path, that segment included, becomes a literal
// dotted key in the current tree. So with a leaf "optimizer" in place,
// "optimizer.lr" is stored as a sibling named "optimizer.lr".
//
// Missing subspaces are attached only once build succeeds, so a rejected
// declaration leaves the tree untouched.
func (s *Space) insert(name string, build func(parent *Space, local string) (Dimension, error)) error {
	if err := s.checkMutable(); err != nil {
		return err
	}
	segments := strings.Split(name, ".")
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}

	parent := s
	local := segments[len(segments)-1]
	var missing []string
	for i, seg := range segments[:len(segments)-1] {
		if len(missing) > 0 {
			missing = append(missing, seg)
			continue
		}
		child, ok := parent.tree[seg]
		if !ok {
			missing = append(missing, seg)
			continue
		}
		if sub, ok := child.(*Space); ok {
			parent = sub
			continue
		}
		local = strings.Join(segments[i:], ".")
		break
	}

	if _, exists := parent.tree[local]; exists && len(missing) == 0 {
		return fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}

	chain := make([]*Space, 0, len(missing))
	target := parent
	for _, seg := range missing {
		target = target.newChild(seg)
		chain = append(chain, target)
	}
	d, err := build(target, local)
	if err != nil {
		return err
	}
	target.put(local, d)

	for i := len(chain) - 1; i >= 0; i-- {
		chain[i].parent.put(chain[i].name, chain[i])
	}
	return nil
}

func (s *Space) put(name string, d Dimension) {
	s.order = append(s.order, name)
	s.tree[name] = d
}

// locate finds the tree a dotted path lives in and its local key there,
// without creating anything. parent is nil when an intermediate subspace
// is missing.
func (s *Space) locate(path string) (parent *Space, local string) {
	segments := strings.Split(path, ".")
	parent = s
	local = segments[len(segments)-1]
	for i, seg := range segments[:len(segments)-1] {
		child, ok := parent.tree[seg]
		if !ok {
			return nil, ""
		}
		if sub, ok := child.(*Space); ok {
			parent = sub
			continue
		}
		local = strings.Join(segments[i:], ".")
		break
	}
	return parent, local
}

// Unflatten nests a flat sample following the live tree: a key is split
// only as deep as the tree has matching subspaces, the unmatched suffix
// stays a single dotted key.
func (s *Space) Unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for key, value := range flat {
		segments := strings.Split(key, ".")
		local := segments[len(segments)-1]
		node := out
		parent := s
		for i, seg := range segments[:len(segments)-1] {
			sub, ok := parent.tree[seg].(*Space)
			if !ok {
				local = strings.Join(segments[i:], ".")
				break
			}
			next, ok := node[seg].(map[string]any)
			if !ok {
				next = make(map[string]any)
				node[seg] = next
			}
			node = next
			parent = sub
		}
		node[local] = value
	}
	return out
}

// Flatten is the inverse of Unflatten: nested maps stored under a subspace
// name are joined back into dotted keys.
func (s *Space) Flatten(nested map[string]any) map[string]any {
	out := make(map[string]any, len(nested))
	s.flattenInto(out, "", nested)
	return out
}

func (s *Space) flattenInto(out map[string]any, prefix string, nested map[string]any) {
	for key, value := range nested {
		m, isMap := value.(map[string]any)
		sub, isSpace := s.tree[key].(*Space)
		if isMap && isSpace {
			sub.flattenInto(out, JoinPath(prefix, key), m)
			continue
		}
		out[JoinPath(prefix, key)] = value
	}
}
