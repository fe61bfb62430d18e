// Package space declares hierarchical parameter spaces.
//
// A Space is an ordered tree of leaves (continuous, categorical, ordinal
// and free variables) and nested subspaces. Leaves may carry a condition
// gating their activation and a forbidden clause excluding some
// configurations. Trees are compiled by a registered backend through the
// Visitor contract, and the resulting Sampler draws reproducible samples.
//
//	s := space.New()
//	opt, _ := s.Categorical("optimizer", "sgd", "adam")
//	lr, _ := s.LogUniform("optimizer.lr", 1, 2)
//	_ = lr.EnableIf(space.Either(opt.Eq("adam"), opt.Eq("sgd")))
//	samples, err := s.Sample(2, 0, nil)
//
// Backends live in pkg/backends and register themselves on import.
package space
