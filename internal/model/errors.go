package model

import "github.com/rotisserie/eris"

// Error taxonomy. MALFORMED_RECORD and AMBIGUOUS_MERGE are recoverable and
// accumulate into the run report; INVALID_CONFIG aborts before any record is
// processed. Check with errors.Is through eris wrap chains.
var (
	ErrMalformedRecord = eris.New("MALFORMED_RECORD")
	ErrAmbiguousMerge  = eris.New("AMBIGUOUS_MERGE")
	ErrInvalidConfig   = eris.New("INVALID_CONFIG")
)
