package pack

import "errors"

var (
	ErrTruncated     = errors.New("pack: truncated input")
	ErrNameTooLong   = errors.New("pack: item name exceeds 63 bytes")
	ErrTooManyItems  = errors.New("pack: item count exceeds bound")
	ErrTooManyValues = errors.New("pack: value count exceeds 262144")
	ErrBadType       = errors.New("pack: unknown value type tag")
	ErrValueTooLarge = errors.New("pack: value length exceeds bound")
)

// maxItems bounds the decoded item count defensively; the wire format has
// no declared limit, but an unbounded count from an untrusted peer is a
// resource-exhaustion vector.
const maxItems = 1 << 16

// maxValueLen bounds a single Str/Unistr/Data value's declared length.
const maxValueLen = 16 << 20
