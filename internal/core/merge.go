package core

import "prescription-chatbot/pkg"

// Merge applies a turn's extracted fields to prior.  A present value always
// replaces the stored one, so users can correct earlier answers; fields the
// turn did not mention keep their previous value.
func Merge(prior pkg.Record, partial map[pkg.Field]string) pkg.Record {
	next := prior
	for _, f := range pkg.Fields {
		v, ok := partial[f]
		if !ok || pkg.IsAbsent(v) {
			continue
		}
		next.Set(f, v)
	}
	return next
}
