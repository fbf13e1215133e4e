package syllable

import "errors"

// ErrInvalidPositions indicates a hyphenator returned break positions
// that are unordered or outside the word.
var ErrInvalidPositions = errors.New("invalid break positions")
