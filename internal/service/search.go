package service

import apperrors "oshikatsu/internal/errors"

// SearchMode selects exact or substring name matching.
type SearchMode int

const (
	SearchExact SearchMode = iota + 1
	SearchFuzzy
)

// ResolveSearchMode requires exactly one of full and fuzzy.
func ResolveSearchMode(full, fuzzy bool) (SearchMode, error) {
	switch {
	case full && !fuzzy:
		return SearchExact, nil
	case fuzzy && !full:
		return SearchFuzzy, nil
	default:
		return 0, apperrors.ErrInvalidSearchMode
	}
}
